package wallet

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository with the same atomicity guarantees as
// the Postgres implementation: the balance check and the append happen under
// one lock. Useful for tests.
type MemoryRepo struct {
	mu       sync.Mutex
	balances map[string]int64
	entries  map[string][]Entry
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		balances: make(map[string]int64),
		entries:  make(map[string][]Entry),
	}
}

func (r *MemoryRepo) AppendCredit(ctx context.Context, e Entry) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.balances[e.UserID] += e.AmountMinor
	e.BalanceAfterMinor = r.balances[e.UserID]
	r.entries[e.UserID] = append(r.entries[e.UserID], e)
	return e, nil
}

func (r *MemoryRepo) AppendDebit(ctx context.Context, e Entry) (Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.balances[e.UserID]+e.AmountMinor < 0 {
		return Entry{}, ErrInsufficientFunds
	}
	r.balances[e.UserID] += e.AmountMinor
	e.BalanceAfterMinor = r.balances[e.UserID]
	r.entries[e.UserID] = append(r.entries[e.UserID], e)
	return e, nil
}

func (r *MemoryRepo) Balance(ctx context.Context, userID string) (Balance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Balance{
		UserID:       userID,
		Currency:     DefaultCurrency,
		BalanceMinor: r.balances[userID],
		UpdatedAt:    time.Now().UTC(),
	}, nil
}

func (r *MemoryRepo) Entries(ctx context.Context, userID string, limit int) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := r.entries[userID]
	if len(all) == 0 {
		return nil, nil
	}
	// Newest first.
	out := make([]Entry, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}
