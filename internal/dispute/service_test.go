package dispute

import (
	"context"
	"errors"
	"testing"

	"gamelo-backend/internal/audit"
	"gamelo-backend/internal/catalog"
	"gamelo-backend/internal/codecrypt"
	"gamelo-backend/internal/codes"
	"gamelo-backend/internal/discount"
	"gamelo-backend/internal/order"
	"gamelo-backend/internal/wallet"
)

type env struct {
	disputes  *Service
	orders    *order.Service
	wallets   *wallet.Service
	pool      *codes.Service
	products  *catalog.Service
	auditRepo *audit.MemoryRepo
}

func newEnv(t *testing.T) *env {
	t.Helper()

	key := make([]byte, 32)
	copy(key, "0123456789abcdef0123456789abcdef")
	cipher, err := codecrypt.New(key)
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}

	e := &env{
		wallets:   wallet.NewService(wallet.NewMemoryRepo()),
		pool:      codes.NewService(codes.NewMemoryRepo(), cipher, nil),
		auditRepo: audit.NewMemoryRepo(),
	}
	e.products = catalog.NewService(catalog.NewMemoryRepo(), e.pool, nil, nil)
	auditor := audit.NewService(e.auditRepo)
	e.orders = order.NewService(order.NewMemoryRepo(), e.wallets, e.pool, e.products, discount.NewService(discount.NewMemoryRepo()), auditor, nil, nil)
	e.disputes = NewService(NewMemoryRepo(), e.orders, auditor, nil, nil)
	return e
}

// placeOrder funds the wallet and buys one digital code for 10.00 JOD.
func (e *env) placeOrder(t *testing.T, userID string) order.Order {
	t.Helper()
	ctx := context.Background()
	p, err := e.products.Create(ctx, catalog.CreateInput{
		Slug: "psn-10-" + userID, Name: "بطاقة", Type: catalog.TypeDigitalCode, PriceMinor: 1000,
	})
	if err != nil {
		t.Fatalf("product: %v", err)
	}
	if _, err := e.pool.Upload(ctx, p.ID, []string{"CODE-" + userID}); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if _, err := e.wallets.Credit(ctx, userID, 1000, wallet.EntryTypeCredit, "topup", ""); err != nil {
		t.Fatalf("fund: %v", err)
	}
	o, err := e.orders.Create(ctx, order.CreateInput{UserID: userID, Product: p.ID})
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	return o
}

func TestCreateDispute(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	o := e.placeOrder(t, "u1")

	d, err := e.disputes.Create(ctx, o.ID, "u1", "الكود لا يعمل")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if d.Status != StatusOpen {
		t.Fatalf("expected open, got %s", d.Status)
	}

	got, err := e.orders.GetAny(ctx, o.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.Status != order.StatusDisputed {
		t.Fatalf("order not disputed: %s", got.Status)
	}

	// Opening message carries the reason.
	_, msgs, err := e.disputes.Get(ctx, d.ID, "u1", false)
	if err != nil {
		t.Fatalf("get dispute: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Body != "الكود لا يعمل" {
		t.Fatalf("opening message missing: %+v", msgs)
	}
}

func TestOneOpenDisputePerOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	o := e.placeOrder(t, "u1")

	if _, err := e.disputes.Create(ctx, o.ID, "u1", "مشكلة"); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := e.disputes.Create(ctx, o.ID, "u1", "مشكلة أخرى"); !errors.Is(err, ErrDisputeOpen) {
		t.Fatalf("expected ErrDisputeOpen, got %v", err)
	}
}

func TestCreateDisputeNotOwner(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	o := e.placeOrder(t, "u1")

	if _, err := e.disputes.Create(ctx, o.ID, "intruder", "x"); !errors.Is(err, order.ErrForbidden) {
		t.Fatalf("expected order.ErrForbidden, got %v", err)
	}
}

func TestReplyMovesToInProgress(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	o := e.placeOrder(t, "u1")
	d, err := e.disputes.Create(ctx, o.ID, "u1", "مشكلة")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := e.disputes.Reply(ctx, d.ID, "support-1", "support", "جاري المراجعة"); err != nil {
		t.Fatalf("reply: %v", err)
	}
	got, msgs, err := e.disputes.Get(ctx, d.ID, "", true)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusInProgress {
		t.Fatalf("expected in_progress, got %s", got.Status)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
}

func TestResolveRefund(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	o := e.placeOrder(t, "u1")
	d, err := e.disputes.Create(ctx, o.ID, "u1", "الكود مستخدم")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := e.disputes.Resolve(ctx, d.ID, "admin-1", "admin", DecisionRefund, "verified")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Status != StatusResolved || got.Decision != DecisionRefund || got.ResolvedAt == nil {
		t.Fatalf("resolution not recorded: %+v", got)
	}

	// Money came back and the order is refunded.
	b, _ := e.wallets.GetBalance(ctx, "u1")
	if b.BalanceMinor != 1000 {
		t.Fatalf("expected refund of 1000, got %d", b.BalanceMinor)
	}
	ord, _ := e.orders.GetAny(ctx, o.ID)
	if ord.Status != order.StatusRefunded {
		t.Fatalf("expected refunded order, got %s", ord.Status)
	}

	// Resolved means closed for good.
	if _, err := e.disputes.Resolve(ctx, d.ID, "admin-1", "admin", DecisionReject, ""); !errors.Is(err, ErrResolved) {
		t.Fatalf("expected ErrResolved, got %v", err)
	}
	if _, err := e.disputes.Reply(ctx, d.ID, "u1", "buyer", "متابعة"); !errors.Is(err, ErrResolved) {
		t.Fatalf("expected ErrResolved on reply, got %v", err)
	}

	var audited bool
	for _, ev := range e.auditRepo.Events() {
		if ev.Type == audit.EventTypeDisputeResolved && ev.DisputeID == d.ID {
			audited = true
		}
	}
	if !audited {
		t.Fatal("resolution not audit-logged")
	}
}

func TestResolveRejectAndRedeliver(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	o1 := e.placeOrder(t, "u1")
	d1, _ := e.disputes.Create(ctx, o1.ID, "u1", "x")
	if _, err := e.disputes.Resolve(ctx, d1.ID, "admin-1", "admin", DecisionReject, "code works"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	ord, _ := e.orders.GetAny(ctx, o1.ID)
	if ord.Status != order.StatusCompleted {
		t.Fatalf("reject should restore completed, got %s", ord.Status)
	}
	b, _ := e.wallets.GetBalance(ctx, "u1")
	if b.BalanceMinor != 0 {
		t.Fatalf("reject must not refund, balance %d", b.BalanceMinor)
	}

	o2 := e.placeOrder(t, "u2")
	d2, _ := e.disputes.Create(ctx, o2.ID, "u2", "y")
	if _, err := e.disputes.Resolve(ctx, d2.ID, "admin-1", "admin", DecisionRedeliver, ""); err != nil {
		t.Fatalf("redeliver: %v", err)
	}
	ord2, _ := e.orders.GetAny(ctx, o2.ID)
	if ord2.Status != order.StatusAwaitingAdmin {
		t.Fatalf("redeliver should park at awaiting_admin, got %s", ord2.Status)
	}
}

func TestResolveInvalidDecision(t *testing.T) {
	e := newEnv(t)
	if _, err := e.disputes.Resolve(context.Background(), "d1", "admin-1", "admin", "split", ""); !errors.Is(err, ErrInvalidDecision) {
		t.Fatalf("expected ErrInvalidDecision, got %v", err)
	}
}
