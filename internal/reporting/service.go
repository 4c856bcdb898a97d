package reporting

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidRange = errors.New("reporting: invalid date range")

// Repository answers read-only aggregation queries. All sources (orders,
// wallet entries) are immutable or append-only, so these reads need no
// locking.
type Repository interface {
	OrdersSummary(ctx context.Context, from, to time.Time) (OrdersSummary, error)
	WalletSummary(ctx context.Context, from, to time.Time) (WalletSummary, error)
}

// Service serves the admin dashboard. A zero range defaults to the last 30
// days.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) normalize(from, to time.Time) (time.Time, time.Time, error) {
	now := s.clock().UTC()
	if to.IsZero() {
		to = now
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	return from, to, nil
}

func (s *Service) Orders(ctx context.Context, from, to time.Time) (OrdersSummary, error) {
	from, to, err := s.normalize(from, to)
	if err != nil {
		return OrdersSummary{}, err
	}
	return s.repo.OrdersSummary(ctx, from, to)
}

func (s *Service) Wallet(ctx context.Context, from, to time.Time) (WalletSummary, error) {
	from, to, err := s.normalize(from, to)
	if err != nil {
		return WalletSummary{}, err
	}
	return s.repo.WalletSummary(ctx, from, to)
}
