package reporting

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubRepo struct {
	gotFrom, gotTo time.Time
}

func (s *stubRepo) OrdersSummary(_ context.Context, from, to time.Time) (OrdersSummary, error) {
	s.gotFrom, s.gotTo = from, to
	return OrdersSummary{From: from, To: to}, nil
}

func (s *stubRepo) WalletSummary(_ context.Context, from, to time.Time) (WalletSummary, error) {
	s.gotFrom, s.gotTo = from, to
	return WalletSummary{From: from, To: to}, nil
}

func TestDefaultWindowIsThirtyDays(t *testing.T) {
	repo := &stubRepo{}
	s := NewService(repo)
	now := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	s.clock = func() time.Time { return now }

	if _, err := s.Orders(context.Background(), time.Time{}, time.Time{}); err != nil {
		t.Fatalf("orders: %v", err)
	}
	if !repo.gotTo.Equal(now) {
		t.Fatalf("expected to=now, got %v", repo.gotTo)
	}
	if !repo.gotFrom.Equal(now.AddDate(0, 0, -30)) {
		t.Fatalf("expected from=now-30d, got %v", repo.gotFrom)
	}
}

func TestInvertedRangeRejected(t *testing.T) {
	s := NewService(&stubRepo{})
	from := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, -1)

	if _, err := s.Wallet(context.Background(), from, to); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}
