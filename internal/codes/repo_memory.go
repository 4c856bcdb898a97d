package codes

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo mirrors the Postgres repository's atomicity with one mutex:
// reservation is check-and-flip under the lock, so the no-oversell property
// holds in unit tests exactly as it does in the store.
type MemoryRepo struct {
	mu    sync.Mutex
	codes map[string]*Code // by code id
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{codes: make(map[string]*Code)}
}

func (r *MemoryRepo) InsertIfAbsent(ctx context.Context, c Code) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.codes {
		if existing.ProductID == c.ProductID && existing.Fingerprint == c.Fingerprint {
			return false, nil
		}
	}
	cp := c
	r.codes[c.ID] = &cp
	return true, nil
}

func (r *MemoryRepo) ReserveBatch(ctx context.Context, productID string, qty int, orderID string, at time.Time) ([]Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var free []*Code
	for _, c := range r.codes {
		if c.ProductID == productID && c.Status == StatusUnused {
			free = append(free, c)
		}
	}
	if len(free) < qty {
		return nil, ErrInsufficientStock
	}
	sort.Slice(free, func(i, j int) bool {
		if free[i].CreatedAt.Equal(free[j].CreatedAt) {
			return free[i].ID < free[j].ID
		}
		return free[i].CreatedAt.Before(free[j].CreatedAt)
	})

	out := make([]Code, 0, qty)
	for _, c := range free[:qty] {
		c.Status = StatusReserved
		c.OrderID = orderID
		ts := at
		c.ReservedAt = &ts
		out = append(out, *c)
	}
	return out, nil
}

func (r *MemoryRepo) ReleaseReservation(ctx context.Context, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.codes {
		if c.OrderID == orderID && c.Status == StatusReserved {
			c.Status = StatusUnused
			c.OrderID = ""
			c.ReservedAt = nil
		}
	}
	return nil
}

func (r *MemoryRepo) AssignReserved(ctx context.Context, orderID, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.codes {
		if c.OrderID == orderID && c.Status == StatusReserved {
			c.Status = StatusAssigned
			c.UserID = userID
			ts := at
			c.AssignedAt = &ts
		}
	}
	return nil
}

func (r *MemoryRepo) ByOrder(ctx context.Context, orderID string) ([]Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Code
	for _, c := range r.codes {
		if c.OrderID == orderID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepo) MarkRevealed(ctx context.Context, orderID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.codes {
		if c.OrderID == orderID && c.Status == StatusAssigned {
			c.Status = StatusRevealed
			ts := at
			c.RevealedAt = &ts
		}
	}
	return nil
}

func (r *MemoryRepo) CountAvailable(ctx context.Context, productID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, c := range r.codes {
		if c.ProductID == productID && c.Status == StatusUnused {
			n++
		}
	}
	return n, nil
}
