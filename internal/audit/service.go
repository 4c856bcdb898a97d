package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to buyers.
// - Callers should treat audit logging as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogAdminAction records a privileged action (wallet adjustments, status overrides).
func (s *Service) LogAdminAction(ctx context.Context, actorUserID, actorRole, ip, message string, metadata string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeAdminAction,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		IPAddress:   ip,
		Message:     message,
		Metadata:    metadata,
	})
}

// LogCodeReveal records a buyer viewing purchased codes.
func (s *Service) LogCodeReveal(ctx context.Context, userID, orderID, ip, userAgent string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeCodeReveal,
		ActorUserID: userID,
		IPAddress:   ip,
		UserAgent:   userAgent,
		OrderID:     orderID,
		Message:     "codes revealed",
	})
}

// LogOrderStatusChange records a status transition applied by staff.
func (s *Service) LogOrderStatusChange(ctx context.Context, actorUserID, actorRole, orderID, from, to string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeOrderStatus,
		ActorUserID: actorUserID,
		ActorRole:   actorRole,
		OrderID:     orderID,
		Message:     "order status: " + from + " -> " + to,
	})
}

// LogDisputeResolved records an adjudication decision.
func (s *Service) LogDisputeResolved(ctx context.Context, adminID, adminRole, disputeID, orderID, decision string) error {
	return s.Append(ctx, Event{
		Type:        EventTypeDisputeResolved,
		ActorUserID: adminID,
		ActorRole:   adminRole,
		DisputeID:   disputeID,
		OrderID:     orderID,
		Message:     "dispute resolved: " + decision,
	})
}
