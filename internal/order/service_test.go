package order

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"gamelo-backend/internal/audit"
	"gamelo-backend/internal/catalog"
	"gamelo-backend/internal/codecrypt"
	"gamelo-backend/internal/codes"
	"gamelo-backend/internal/discount"
	"gamelo-backend/internal/wallet"
)

type captureNotifier struct {
	mu            sync.Mutex
	created       []Order
	statusChanges []Order
}

func (n *captureNotifier) OrderCreated(_ context.Context, o Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, o)
}

func (n *captureNotifier) OrderStatusChanged(_ context.Context, o Order, _ Status) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statusChanges = append(n.statusChanges, o)
}

func (n *captureNotifier) createdCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.created)
}

type env struct {
	orders    *Service
	repo      *MemoryRepo
	wallets   *wallet.Service
	pool      *codes.Service
	products  *catalog.Service
	discounts *discount.Service
	auditRepo *audit.MemoryRepo
	notifier  *captureNotifier
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
		repo:      NewMemoryRepo(),
		wallets:   wallet.NewService(wallet.NewMemoryRepo()),
		pool:      codes.NewService(codes.NewMemoryRepo(), cipher, nil),
		discounts: discount.NewService(discount.NewMemoryRepo()),
		auditRepo: audit.NewMemoryRepo(),
		notifier:  &captureNotifier{},
	}
	e.products = catalog.NewService(catalog.NewMemoryRepo(), e.pool, nil, nil)
	e.orders = NewService(e.repo, e.wallets, e.pool, e.products, e.discounts, audit.NewService(e.auditRepo), e.notifier, nil)
	e.orders.clock = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func (e *env) mustProduct(t *testing.T, slug string, typ catalog.ProductType, priceMinor int64) catalog.Product {
	t.Helper()
	p, err := e.products.Create(context.Background(), catalog.CreateInput{
		Slug: slug, Name: "منتج " + slug, Type: typ, PriceMinor: priceMinor,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func (e *env) mustStock(t *testing.T, productID string, values ...string) {
	t.Helper()
	if _, err := e.pool.Upload(context.Background(), productID, values); err != nil {
		t.Fatalf("upload: %v", err)
	}
}

func (e *env) mustFund(t *testing.T, userID string, amountMinor int64) {
	t.Helper()
	if _, err := e.wallets.Credit(context.Background(), userID, amountMinor, wallet.EntryTypeCredit, "topup", ""); err != nil {
		t.Fatalf("fund: %v", err)
	}
}

func (e *env) balance(t *testing.T, userID string) int64 {
	t.Helper()
	b, err := e.wallets.GetBalance(context.Background(), userID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return b.BalanceMinor
}

func TestCreateDigitalOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p := e.mustProduct(t, "psn-10", catalog.TypeDigitalCode, 1000)
	e.mustStock(t, p.ID, "CODE-A", "CODE-B")
	e.mustFund(t, "u1", 2500)

	o, err := e.orders.Create(ctx, CreateInput{UserID: "u1", Product: "psn-10", Quantity: 2})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", o.Status)
	}
	if o.TotalMinor != 2000 {
		t.Fatalf("expected total 2000, got %d", o.TotalMinor)
	}
	if got := e.balance(t, "u1"); got != 500 {
		t.Fatalf("expected balance 500, got %d", got)
	}
	if n, _ := e.pool.CountAvailable(ctx, p.ID); n != 0 {
		t.Fatalf("expected 0 codes left, got %d", n)
	}
	if got := e.notifier.createdCount(); got != 1 {
		t.Fatalf("expected 1 creation notification, got %d", got)
	}
	if want := strings.ToUpper(o.ID[:8]); o.OrderNumber != want {
		t.Fatalf("expected order number %s, got %s", want, o.OrderNumber)
	}
	stored, err := e.orders.Get(ctx, o.ID, "u1")
	if err != nil || stored.OrderNumber != o.OrderNumber {
		t.Fatalf("order number not persisted: %v, %+v", err, stored)
	}
}

func TestCreateInsufficientFunds(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p := e.mustProduct(t, "psn-10", catalog.TypeDigitalCode, 1000)
	e.mustStock(t, p.ID, "CODE-A")
	e.mustFund(t, "u1", 500)

	_, err := e.orders.Create(ctx, CreateInput{UserID: "u1", Product: p.ID})
	if !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := e.balance(t, "u1"); got != 500 {
		t.Fatalf("balance changed on failed order: %d", got)
	}
	if n, _ := e.pool.CountAvailable(ctx, p.ID); n != 1 {
		t.Fatalf("stock touched on failed order: %d", n)
	}
	if list, _ := e.orders.ListByUser(ctx, "u1", 10); len(list) != 0 {
		t.Fatalf("order persisted on failed debit: %d", len(list))
	}
}

// Balance 10.00, price 10.00, but the pool is empty: the debit must be
// compensated exactly and no order may exist afterwards.
func TestCompensationOnStockExhaustion(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p := e.mustProduct(t, "psn-10", catalog.TypeDigitalCode, 1000)
	e.mustFund(t, "u1", 1000)

	_, err := e.orders.Create(ctx, CreateInput{UserID: "u1", Product: p.ID})
	if !errors.Is(err, codes.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if got := e.balance(t, "u1"); got != 1000 {
		t.Fatalf("expected balance restored to 1000, got %d", got)
	}
	if list, _ := e.orders.ListByUser(ctx, "u1", 10); len(list) != 0 {
		t.Fatalf("order persisted despite stock failure: %d", len(list))
	}

	// The ledger must show both sides, not a silent rollback.
	entries, _ := e.wallets.History(ctx, "u1", 10)
	if len(entries) != 3 {
		t.Fatalf("expected topup+debit+reversal entries, got %d", len(entries))
	}
	if entries[0].Type != wallet.EntryTypeReversal || entries[0].AmountMinor != 1000 {
		t.Fatalf("expected reversal of 1000 on top, got %+v", entries[0])
	}
}

func TestInsertFailureReleasesCodesAndRefunds(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p := e.mustProduct(t, "psn-10", catalog.TypeDigitalCode, 1000)
	e.mustStock(t, p.ID, "CODE-A")
	e.mustFund(t, "u1", 1000)
	e.repo.FailInsert = errors.New("db down")

	_, err := e.orders.Create(ctx, CreateInput{UserID: "u1", Product: p.ID})
	if err == nil {
		t.Fatal("expected insert failure")
	}
	if got := e.balance(t, "u1"); got != 1000 {
		t.Fatalf("expected balance restored, got %d", got)
	}
	if n, _ := e.pool.CountAvailable(ctx, p.ID); n != 1 {
		t.Fatalf("expected code released back to pool, got %d", n)
	}
}

func TestCreateWithDiscount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p := e.mustProduct(t, "psn-10", catalog.TypeDigitalCode, 1000)
	e.mustStock(t, p.ID, "CODE-A")
	e.mustFund(t, "u1", 1000)

	d, err := e.discounts.Create(ctx, discount.CreateInput{Code: "SAVE20", Type: discount.TypePercentage, Value: 20})
	if err != nil {
		t.Fatalf("create discount: %v", err)
	}

	o, err := e.orders.Create(ctx, CreateInput{UserID: "u1", Product: p.ID, DiscountCode: "save20"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.DiscountMinor != 200 || o.TotalMinor != 800 {
		t.Fatalf("expected 200 off of 1000, got %d/%d", o.DiscountMinor, o.TotalMinor)
	}
	if got := e.balance(t, "u1"); got != 200 {
		t.Fatalf("expected balance 200, got %d", got)
	}

	got, err := e.discounts.List(ctx)
	if err != nil || len(got) != 1 {
		t.Fatalf("list discounts: %v, %d", err, len(got))
	}
	if got[0].ID == d.ID && got[0].UsedCount != 1 {
		t.Fatalf("expected used_count 1, got %d", got[0].UsedCount)
	}
}

func TestFirstPurchaseDiscountGate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p := e.mustProduct(t, "psn-10", catalog.TypeDigitalCode, 1000)
	e.mustStock(t, p.ID, "CODE-A", "CODE-B")
	e.mustFund(t, "u1", 2000)

	if _, err := e.discounts.Create(ctx, discount.CreateInput{Code: "WELCOME", Type: discount.TypeFixed, Value: 100, FirstPurchaseOnly: true}); err != nil {
		t.Fatalf("create discount: %v", err)
	}

	// First order qualifies.
	if _, err := e.orders.Create(ctx, CreateInput{UserID: "u1", Product: p.ID, DiscountCode: "WELCOME"}); err != nil {
		t.Fatalf("first order: %v", err)
	}
	// Second one no longer does.
	_, err := e.orders.Create(ctx, CreateInput{UserID: "u1", Product: p.ID, DiscountCode: "WELCOME"})
	if !errors.Is(err, discount.ErrFirstPurchaseOnly) {
		t.Fatalf("expected ErrFirstPurchaseOnly, got %v", err)
	}
}

func TestRevealOwnershipStatusAndAudit(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p := e.mustProduct(t, "psn-10", catalog.TypeDigitalCode, 1000)
	e.mustStock(t, p.ID, "GIFT-XYZ")
	e.mustFund(t, "u1", 1000)

	o, err := e.orders.Create(ctx, CreateInput{UserID: "u1", Product: p.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := e.orders.Reveal(ctx, o.ID, "intruder", "1.2.3.4", "ua"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	first, err := e.orders.Reveal(ctx, o.ID, "u1", "1.2.3.4", "ua")
	if err != nil {
		t.Fatalf("reveal: %v", err)
	}
	second, err := e.orders.Reveal(ctx, o.ID, "u1", "1.2.3.4", "ua")
	if err != nil {
		t.Fatalf("repeat reveal: %v", err)
	}
	if len(first) != 1 || len(second) != 1 || first[0].Value != second[0].Value || first[0].Value != "GIFT-XYZ" {
		t.Fatalf("reveals disagree: %+v vs %+v", first, second)
	}

	events := e.auditRepo.Events()
	var reveals int
	for _, ev := range events {
		if ev.Type == audit.EventTypeCodeReveal && ev.OrderID == o.ID {
			reveals++
			if ev.IPAddress != "1.2.3.4" || ev.UserAgent != "ua" {
				t.Fatalf("audit missing network identity: %+v", ev)
			}
		}
	}
	if reveals != 2 {
		t.Fatalf("expected 2 reveal audit events, got %d", reveals)
	}
}

func TestRevealAccountOrderRejected(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p := e.mustProduct(t, "netflix-acc", catalog.TypeExistingAccount, 1500)
	e.mustFund(t, "u1", 1500)

	o, err := e.orders.Create(ctx, CreateInput{UserID: "u1", Product: p.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.Status != StatusAwaitingAdmin {
		t.Fatalf("expected awaiting_admin, got %s", o.Status)
	}
	if _, err := e.orders.Reveal(ctx, o.ID, "u1", "", ""); !errors.Is(err, ErrNotRevealable) {
		t.Fatalf("expected ErrNotRevealable, got %v", err)
	}
}

func TestRefundCreditsWallet(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p := e.mustProduct(t, "psn-10", catalog.TypeDigitalCode, 1000)
	e.mustStock(t, p.ID, "CODE-A")
	e.mustFund(t, "u1", 1000)

	o, err := e.orders.Create(ctx, CreateInput{UserID: "u1", Product: p.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := e.balance(t, "u1"); got != 0 {
		t.Fatalf("expected balance 0, got %d", got)
	}

	got, err := e.orders.SetStatus(ctx, o.ID, StatusRefunded, "admin-1", "admin", "damaged code")
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if got.Status != StatusRefunded {
		t.Fatalf("expected refunded, got %s", got.Status)
	}
	if bal := e.balance(t, "u1"); bal != 1000 {
		t.Fatalf("expected refund credit of 1000, got %d", bal)
	}

	// Refunded is terminal.
	if _, err := e.orders.SetStatus(ctx, o.ID, StatusCompleted, "admin-1", "admin", ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	hist, err := e.orders.History(ctx, o.ID)
	if err != nil || len(hist) != 1 {
		t.Fatalf("history: %v, %d", err, len(hist))
	}
	if hist[0].From != StatusCompleted || hist[0].To != StatusRefunded {
		t.Fatalf("unexpected history row: %+v", hist[0])
	}
}

func TestDeliverManualOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p := e.mustProduct(t, "netflix-acc", catalog.TypeNewAccount, 1500)
	e.mustFund(t, "u1", 1500)

	o, err := e.orders.Create(ctx, CreateInput{UserID: "u1", Product: p.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := e.orders.Deliver(ctx, o.ID, "admin-1", "admin", "user@example.com / secret")
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if got.Status != StatusDelivered || got.DeliveryNote == "" || got.DeliveredAt == nil {
		t.Fatalf("delivery not recorded: %+v", got)
	}

	// Digital orders (never awaiting_admin) cannot be manually delivered.
	pd := e.mustProduct(t, "psn-10", catalog.TypeDigitalCode, 100)
	e.mustStock(t, pd.ID, "X")
	e.mustFund(t, "u2", 100)
	od, err := e.orders.Create(ctx, CreateInput{UserID: "u2", Product: pd.ID})
	if err != nil {
		t.Fatalf("digital create: %v", err)
	}
	if _, err := e.orders.Deliver(ctx, od.ID, "admin-1", "admin", "note"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

// Five funded buyers race for three codes through the full checkout path.
// Exactly three orders may exist, the pool must empty, and every loser keeps
// their money.
func TestConcurrentCreateNoOversell(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p := e.mustProduct(t, "psn-10", catalog.TypeDigitalCode, 1000)
	e.mustStock(t, p.ID, "C1", "C2", "C3")

	const buyers = 5
	users := make([]string, buyers)
	for i := range users {
		users[i] = "u" + string(rune('1'+i))
		e.mustFund(t, users[i], 1000)
	}

	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i, uid := range users {
		wg.Add(1)
		go func(i int, uid string) {
			defer wg.Done()
			_, errs[i] = e.orders.Create(ctx, CreateInput{UserID: uid, Product: p.ID})
		}(i, uid)
	}
	wg.Wait()

	var won, lost int
	for i, err := range errs {
		switch {
		case err == nil:
			won++
			if got := e.balance(t, users[i]); got != 0 {
				t.Errorf("winner %s balance %d, want 0", users[i], got)
			}
		case errors.Is(err, codes.ErrInsufficientStock):
			lost++
			if got := e.balance(t, users[i]); got != 1000 {
				t.Errorf("loser %s balance %d, want full compensation", users[i], got)
			}
		default:
			t.Errorf("unexpected error for %s: %v", users[i], err)
		}
	}
	if won != 3 || lost != 2 {
		t.Fatalf("expected 3 winners and 2 losers, got %d/%d", won, lost)
	}
	if n, _ := e.pool.CountAvailable(ctx, p.ID); n != 0 {
		t.Fatalf("expected empty pool, got %d", n)
	}
	if got := e.notifier.createdCount(); got != 3 {
		t.Fatalf("expected 3 creation notifications, got %d", got)
	}
}

func TestCreateInactiveProductRejected(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p := e.mustProduct(t, "psn-10", catalog.TypeDigitalCode, 1000)
	off := false
	if _, err := e.products.Update(ctx, p.ID, catalog.UpdateInput{IsActive: &off}); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	e.mustFund(t, "u1", 1000)

	if _, err := e.orders.Create(ctx, CreateInput{UserID: "u1", Product: p.ID}); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected catalog.ErrNotFound, got %v", err)
	}
}
