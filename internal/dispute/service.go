package dispute

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"gamelo-backend/internal/audit"
	"gamelo-backend/internal/order"
)

var (
	ErrNotFound        = errors.New("dispute: not found")
	ErrDisputeOpen     = errors.New("dispute: order already has an open dispute")
	ErrResolved        = errors.New("dispute: already resolved")
	ErrInvalidDecision = errors.New("dispute: invalid decision")
	ErrInvalidArgument = errors.New("dispute: invalid argument")
)

// Repository persists disputes and their messages.
type Repository interface {
	Insert(ctx context.Context, d Dispute) error
	Update(ctx context.Context, d Dispute) error
	GetByID(ctx context.Context, id string) (Dispute, error)
	OpenByOrder(ctx context.Context, orderID string) (Dispute, error)
	ListByUser(ctx context.Context, userID string) ([]Dispute, error)
	ListUnresolved(ctx context.Context) ([]Dispute, error)
	AddMessage(ctx context.Context, m Message) error
	Messages(ctx context.Context, disputeID string) ([]Message, error)
}

// Notifier delivers best-effort dispute notifications.
type Notifier interface {
	DisputeOpened(ctx context.Context, d Dispute)
	DisputeResolved(ctx context.Context, d Dispute)
}

type NopNotifier struct{}

func (NopNotifier) DisputeOpened(context.Context, Dispute)   {}
func (NopNotifier) DisputeResolved(context.Context, Dispute) {}

// Service runs the dispute/refund workflow on top of the order service, which
// owns status transitions and the refund credit.
type Service struct {
	repo     Repository
	orders   *order.Service
	auditor  *audit.Service
	notifier Notifier
	log      *slog.Logger
	clock    func() time.Time
}

func NewService(repo Repository, orders *order.Service, auditor *audit.Service, notifier Notifier, log *slog.Logger) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:     repo,
		orders:   orders,
		auditor:  auditor,
		notifier: notifier,
		log:      log,
		clock:    time.Now,
	}
}

// Create opens a dispute on the buyer's own order: the order flips to
// disputed, a dispute row with the opening message is written and ops are
// notified. One non-resolved dispute per order.
func (s *Service) Create(ctx context.Context, orderID, userID, reason string) (Dispute, error) {
	reason = strings.TrimSpace(reason)
	if orderID == "" || userID == "" || reason == "" {
		return Dispute{}, ErrInvalidArgument
	}

	o, err := s.orders.Get(ctx, orderID, userID)
	if err != nil {
		return Dispute{}, err
	}

	if _, err := s.repo.OpenByOrder(ctx, o.ID); err == nil {
		return Dispute{}, ErrDisputeOpen
	} else if !errors.Is(err, ErrNotFound) {
		return Dispute{}, err
	}

	if _, err := s.orders.MarkDisputed(ctx, o.ID); err != nil {
		return Dispute{}, err
	}

	now := s.clock().UTC()
	d := Dispute{
		ID:        uuid.NewString(),
		OrderID:   o.ID,
		UserID:    userID,
		Status:    StatusOpen,
		Reason:    reason,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, d); err != nil {
		return Dispute{}, err
	}
	if err := s.repo.AddMessage(ctx, Message{
		ID:         uuid.NewString(),
		DisputeID:  d.ID,
		AuthorID:   userID,
		AuthorRole: "buyer",
		Body:       reason,
		CreatedAt:  now,
	}); err != nil {
		s.log.Error("dispute opening message failed", "dispute_id", d.ID, "error", err)
	}

	s.notifier.DisputeOpened(ctx, d)
	return d, nil
}

// Reply appends a message to the conversation. Any reply on an open dispute
// moves it to in_progress; resolved disputes are closed for writing.
func (s *Service) Reply(ctx context.Context, disputeID, authorID, authorRole, body string) (Message, error) {
	body = strings.TrimSpace(body)
	if disputeID == "" || authorID == "" || body == "" {
		return Message{}, ErrInvalidArgument
	}

	d, err := s.repo.GetByID(ctx, disputeID)
	if err != nil {
		return Message{}, err
	}
	if d.Status == StatusResolved {
		return Message{}, ErrResolved
	}

	now := s.clock().UTC()
	m := Message{
		ID:         uuid.NewString(),
		DisputeID:  d.ID,
		AuthorID:   authorID,
		AuthorRole: authorRole,
		Body:       body,
		CreatedAt:  now,
	}
	if err := s.repo.AddMessage(ctx, m); err != nil {
		return Message{}, err
	}

	if d.Status == StatusOpen {
		d.Status = StatusInProgress
		d.UpdatedAt = now
		if err := s.repo.Update(ctx, d); err != nil {
			s.log.Error("dispute status bump failed", "dispute_id", d.ID, "error", err)
		}
	}
	return m, nil
}

// Resolve adjudicates a dispute:
//
//	refund    -> order refunded, wallet credited
//	reject    -> order back to completed
//	redeliver -> order back to awaiting_admin for another delivery
//
// The decision is final; resolved disputes cannot be reopened.
func (s *Service) Resolve(ctx context.Context, disputeID, adminID, adminRole string, decision Decision, notes string) (Dispute, error) {
	if !decision.Valid() {
		return Dispute{}, ErrInvalidDecision
	}
	d, err := s.repo.GetByID(ctx, disputeID)
	if err != nil {
		return Dispute{}, err
	}
	if d.Status == StatusResolved {
		return Dispute{}, ErrResolved
	}

	var target order.Status
	switch decision {
	case DecisionRefund:
		target = order.StatusRefunded
	case DecisionReject:
		target = order.StatusCompleted
	case DecisionRedeliver:
		target = order.StatusAwaitingAdmin
	}
	if _, err := s.orders.SetStatus(ctx, d.OrderID, target, adminID, adminRole, "dispute "+string(decision)); err != nil {
		return Dispute{}, err
	}

	now := s.clock().UTC()
	d.Status = StatusResolved
	d.Decision = decision
	d.ResolutionNotes = notes
	d.ResolvedBy = adminID
	d.UpdatedAt = now
	d.ResolvedAt = &now
	if err := s.repo.Update(ctx, d); err != nil {
		return Dispute{}, err
	}

	if err := s.auditor.LogDisputeResolved(ctx, adminID, adminRole, d.ID, d.OrderID, string(decision)); err != nil {
		s.log.Error("dispute audit failed", "dispute_id", d.ID, "error", err)
	}
	s.notifier.DisputeResolved(ctx, d)
	return d, nil
}

// Get returns a dispute with its messages. Buyers may only read their own;
// staff pass allowAny.
func (s *Service) Get(ctx context.Context, disputeID, callerID string, allowAny bool) (Dispute, []Message, error) {
	d, err := s.repo.GetByID(ctx, disputeID)
	if err != nil {
		return Dispute{}, nil, err
	}
	if !allowAny && d.UserID != callerID {
		return Dispute{}, nil, order.ErrForbidden
	}
	msgs, err := s.repo.Messages(ctx, disputeID)
	if err != nil {
		return Dispute{}, nil, err
	}
	return d, msgs, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Dispute, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	return s.repo.ListByUser(ctx, userID)
}

func (s *Service) ListUnresolved(ctx context.Context) ([]Dispute, error) {
	return s.repo.ListUnresolved(ctx)
}
