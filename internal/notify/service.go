package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidArgument = errors.New("notify: invalid argument")

// Repository persists in-app notifications.
type Repository interface {
	Insert(ctx context.Context, n Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}

// Service stores user-facing notifications. Writes are best-effort from the
// caller's point of view; business flows never depend on them.
type Service struct {
	repo  Repository
	log   *slog.Logger
	clock func() time.Time
}

func NewService(repo Repository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, log: log, clock: time.Now}
}

func (s *Service) Push(ctx context.Context, userID, typ, title, body string) error {
	if userID == "" || typ == "" || title == "" {
		return ErrInvalidArgument
	}
	return s.repo.Insert(ctx, Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Body:      body,
		CreatedAt: s.clock().UTC(),
	})
}

func (s *Service) ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.ListByUser(ctx, userID, limit)
}

// MarkRead flags a notification as read. Scoped to the owner.
func (s *Service) MarkRead(ctx context.Context, id, userID string) error {
	if id == "" || userID == "" {
		return ErrInvalidArgument
	}
	return s.repo.MarkRead(ctx, id, userID)
}
