package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"gamelo-backend/internal/audit"
	"gamelo-backend/internal/catalog"
	"gamelo-backend/internal/codes"
	"gamelo-backend/internal/discount"
	"gamelo-backend/internal/wallet"
)

var (
	ErrNotFound          = errors.New("order: not found")
	ErrForbidden         = errors.New("order: not the order owner")
	ErrInvalidArgument   = errors.New("order: invalid argument")
	ErrInvalidTransition = errors.New("order: status transition not allowed")
	ErrNotRevealable     = errors.New("order: codes not revealable in this status")
)

// Repository persists orders and their status history.
type Repository interface {
	Insert(ctx context.Context, o Order) error
	GetByID(ctx context.Context, id string) (Order, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Order, error)
	ListByStatus(ctx context.Context, status Status, limit int) ([]Order, error)
	SetStatus(ctx context.Context, o Order, change StatusChange) error
	History(ctx context.Context, orderID string) ([]StatusChange, error)
	CountFulfilledByUser(ctx context.Context, userID string) (int, error)
}

// Notifier delivers best-effort side effects. Failures are logged, never
// propagated: a buyer with debited money and reserved codes gets their order
// whether or not Telegram is up.
type Notifier interface {
	OrderCreated(ctx context.Context, o Order)
	OrderStatusChanged(ctx context.Context, o Order, from Status)
}

// NopNotifier is used when notifications are not configured.
type NopNotifier struct{}

func (NopNotifier) OrderCreated(context.Context, Order)               {}
func (NopNotifier) OrderStatusChanged(context.Context, Order, Status) {}

// Service orchestrates checkout and fulfillment.
//
// Money and stock stay consistent through compensation, not a cross-store
// transaction: the wallet debit and the code reservation are each atomic, and
// a reservation failure after a successful debit credits the money back before
// the error is returned.
type Service struct {
	repo      Repository
	wallets   *wallet.Service
	pool      *codes.Service
	products  *catalog.Service
	discounts *discount.Service
	auditor   *audit.Service
	notifier  Notifier
	log       *slog.Logger
	clock     func() time.Time
}

func NewService(
	repo Repository,
	wallets *wallet.Service,
	pool *codes.Service,
	products *catalog.Service,
	discounts *discount.Service,
	auditor *audit.Service,
	notifier Notifier,
	log *slog.Logger,
) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:      repo,
		wallets:   wallets,
		pool:      pool,
		products:  products,
		discounts: discounts,
		auditor:   auditor,
		notifier:  notifier,
		log:       log,
		clock:     time.Now,
	}
}

// CreateInput is a checkout request.
type CreateInput struct {
	UserID       string
	Product      string // id or slug
	VariantID    string
	Quantity     int
	DiscountCode string
}

// Create runs the checkout:
//
//	resolve product -> price -> optional discount -> debit wallet ->
//	reserve codes -> persist order -> consume discount -> assign codes ->
//	best-effort notifications
//
// Insufficient funds and insufficient stock come back as the wallet/codes
// sentinels with no lasting side effects.
func (s *Service) Create(ctx context.Context, in CreateInput) (Order, error) {
	if in.UserID == "" || in.Product == "" {
		return Order{}, ErrInvalidArgument
	}
	if in.Quantity <= 0 {
		in.Quantity = 1
	}

	p, err := s.products.Get(ctx, in.Product)
	if err != nil {
		return Order{}, err
	}
	if !p.IsActive {
		return Order{}, catalog.ErrNotFound
	}
	unitPrice, err := catalog.ResolvePrice(p, in.VariantID)
	if err != nil {
		return Order{}, err
	}

	now := s.clock().UTC()
	id := uuid.NewString()
	o := Order{
		ID:             id,
		OrderNumber:    orderNumber(id),
		UserID:         in.UserID,
		ProductID:      p.ID,
		ProductName:    p.Name,
		ProductType:    p.Type,
		VariantID:      in.VariantID,
		Quantity:       in.Quantity,
		UnitPriceMinor: unitPrice,
		SubtotalMinor:  unitPrice * int64(in.Quantity),
		Currency:       wallet.DefaultCurrency,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	o.TotalMinor = o.SubtotalMinor

	var discountID string
	if in.DiscountCode != "" {
		fulfilled, err := s.repo.CountFulfilledByUser(ctx, in.UserID)
		if err != nil {
			return Order{}, err
		}
		q, err := s.discounts.QuoteCode(ctx, discount.QuoteInput{
			Code:            in.DiscountCode,
			UserID:          in.UserID,
			ProductID:       p.ID,
			CategoryID:      p.CategoryID,
			SubtotalMinor:   o.SubtotalMinor,
			ItemCount:       in.Quantity,
			IsFirstPurchase: fulfilled == 0,
		})
		if err != nil {
			return Order{}, err
		}
		discountID = q.Discount.ID
		o.DiscountCode = q.Discount.Code
		o.DiscountMinor = q.DiscountMinor
		o.TotalMinor = q.TotalMinor
	}

	if _, err := s.wallets.Debit(ctx, in.UserID, o.TotalMinor, wallet.EntryTypePurchase, "شراء "+p.Name, o.ID); err != nil {
		return Order{}, err
	}

	reserved := false
	if p.Type == catalog.TypeDigitalCode {
		if _, err := s.pool.Reserve(ctx, p.ID, in.Quantity, o.ID); err != nil {
			s.compensateDebit(ctx, o)
			return Order{}, err
		}
		reserved = true
		o.Status = StatusCompleted
	} else {
		o.Status = StatusAwaitingAdmin
	}

	if err := s.repo.Insert(ctx, o); err != nil {
		if reserved {
			if relErr := s.pool.Release(ctx, o.ID); relErr != nil {
				s.log.Error("reservation release failed", "order_id", o.ID, "error", relErr)
			}
		}
		s.compensateDebit(ctx, o)
		return Order{}, err
	}

	// The order is committed; everything below must not undo it.
	if discountID != "" {
		if err := s.discounts.ConsumeCode(ctx, discountID, in.UserID, o.ID); err != nil {
			s.log.Error("discount consume failed after commit", "order_id", o.ID, "discount_id", discountID, "error", err)
		}
	}
	if reserved {
		if err := s.pool.Finalize(ctx, o.ID, in.UserID); err != nil {
			s.log.Error("code assignment failed", "order_id", o.ID, "error", err)
		}
		s.products.InvalidateStock(ctx, p.ID)
	}
	s.notifier.OrderCreated(ctx, o)

	return o, nil
}

// orderNumber derives the short human-facing reference from the order id.
func orderNumber(id string) string {
	if len(id) < 8 {
		return strings.ToUpper(id)
	}
	return strings.ToUpper(id[:8])
}

// compensateDebit credits back the full order total after a failed checkout.
func (s *Service) compensateDebit(ctx context.Context, o Order) {
	if o.TotalMinor == 0 {
		return
	}
	if _, err := s.wallets.Credit(ctx, o.UserID, o.TotalMinor, wallet.EntryTypeReversal, "إلغاء عملية شراء غير مكتملة", o.ID); err != nil {
		// Should not happen (credits are unconditional); loud log for manual repair.
		s.log.Error("compensating credit failed", "order_id", o.ID, "user_id", o.UserID, "amount", o.TotalMinor, "error", err)
	}
}

// Get returns an order if the caller owns it. Admin paths use GetAny.
func (s *Service) Get(ctx context.Context, orderID, userID string) (Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if o.UserID != userID {
		return Order{}, ErrForbidden
	}
	return o, nil
}

func (s *Service) GetAny(ctx context.Context, orderID string) (Order, error) {
	return s.repo.GetByID(ctx, orderID)
}

func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]Order, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListByUser(ctx, userID, limit)
}

func (s *Service) ListByStatus(ctx context.Context, status Status, limit int) ([]Order, error) {
	if status != "" && !status.Valid() {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListByStatus(ctx, status, limit)
}

// Reveal hands the buyer their purchased codes. Ownership and status are
// checked here; idempotency lives in the pool (repeat reveals return the same
// values). Every reveal is audit-logged with the caller's network identity.
func (s *Service) Reveal(ctx context.Context, orderID, userID, ip, userAgent string) ([]codes.RevealedCode, error) {
	o, err := s.Get(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	if o.ProductType != catalog.TypeDigitalCode {
		return nil, ErrNotRevealable
	}
	if !o.Status.Revealable() {
		return nil, ErrNotRevealable
	}

	out, err := s.pool.Reveal(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	if err := s.auditor.LogCodeReveal(ctx, userID, o.ID, ip, userAgent); err != nil {
		s.log.Error("reveal audit failed", "order_id", o.ID, "error", err)
	}
	return out, nil
}

// SetStatus applies an admin transition. Moving to refunded credits the order
// total back to the buyer's wallet before the status is persisted.
func (s *Service) SetStatus(ctx context.Context, orderID string, to Status, actorID, actorRole, reason string) (Order, error) {
	if !to.Valid() {
		return Order{}, ErrInvalidArgument
	}
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if !transitionAllowed(o.Status, to) {
		return Order{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}

	from := o.Status
	now := s.clock().UTC()

	if to == StatusRefunded {
		if _, err := s.wallets.Credit(ctx, o.UserID, o.TotalMinor, wallet.EntryTypeRefund, "استرداد قيمة الطلب", o.ID); err != nil {
			return Order{}, err
		}
	}
	if to == StatusDelivered && o.DeliveredAt == nil {
		o.DeliveredAt = &now
	}

	o.Status = to
	o.UpdatedAt = now
	change := StatusChange{
		ID:        uuid.NewString(),
		OrderID:   o.ID,
		From:      from,
		To:        to,
		ActorID:   actorID,
		Reason:    reason,
		CreatedAt: now,
	}
	if err := s.repo.SetStatus(ctx, o, change); err != nil {
		return Order{}, err
	}

	if err := s.auditor.LogOrderStatusChange(ctx, actorID, actorRole, o.ID, string(from), string(to)); err != nil {
		s.log.Error("status change audit failed", "order_id", o.ID, "error", err)
	}
	s.notifier.OrderStatusChanged(ctx, o, from)
	return o, nil
}

// MarkDisputed flips an order to disputed on behalf of the dispute workflow.
// No admin actor; the buyer initiated it.
func (s *Service) MarkDisputed(ctx context.Context, orderID string) (Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if !transitionAllowed(o.Status, StatusDisputed) {
		return Order{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, StatusDisputed)
	}

	from := o.Status
	now := s.clock().UTC()
	o.Status = StatusDisputed
	o.UpdatedAt = now
	err = s.repo.SetStatus(ctx, o, StatusChange{
		ID:        uuid.NewString(),
		OrderID:   o.ID,
		From:      from,
		To:        StatusDisputed,
		Reason:    "dispute opened",
		CreatedAt: now,
	})
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

// Deliver completes a manual (account) order: stores the credentials note and
// moves awaiting_admin -> delivered.
func (s *Service) Deliver(ctx context.Context, orderID, actorID, actorRole, note string) (Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if o.Status != StatusAwaitingAdmin {
		return Order{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, StatusDelivered)
	}

	from := o.Status
	now := s.clock().UTC()
	o.Status = StatusDelivered
	o.DeliveryNote = note
	o.DeliveredAt = &now
	o.UpdatedAt = now
	err = s.repo.SetStatus(ctx, o, StatusChange{
		ID:        uuid.NewString(),
		OrderID:   o.ID,
		From:      from,
		To:        StatusDelivered,
		ActorID:   actorID,
		Reason:    "manual delivery",
		CreatedAt: now,
	})
	if err != nil {
		return Order{}, err
	}

	if err := s.auditor.LogAdminAction(ctx, actorID, actorRole, "", "manual delivery", fmt.Sprintf(`{"order_id":%q}`, o.ID)); err != nil {
		s.log.Error("delivery audit failed", "order_id", o.ID, "error", err)
	}
	s.notifier.OrderStatusChanged(ctx, o, from)
	return o, nil
}

// CountFulfilled reports how many completed or delivered orders a user has.
// Zero means the next purchase is their first.
func (s *Service) CountFulfilled(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrInvalidArgument
	}
	return s.repo.CountFulfilledByUser(ctx, userID)
}

// History returns the order's status changes, oldest first.
func (s *Service) History(ctx context.Context, orderID string) ([]StatusChange, error) {
	if orderID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.History(ctx, orderID)
}
