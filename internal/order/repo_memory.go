package order

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repository for tests.
type MemoryRepo struct {
	mu      sync.Mutex
	orders  map[string]Order
	history map[string][]StatusChange

	// FailInsert makes the next Insert fail; lets tests exercise the
	// release-and-compensate path without a database.
	FailInsert error
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		orders:  make(map[string]Order),
		history: make(map[string][]StatusChange),
	}
}

func (r *MemoryRepo) Insert(ctx context.Context, o Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailInsert != nil {
		err := r.FailInsert
		r.FailInsert = nil
		return err
	}
	r.orders[o.ID] = o
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Order
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) ListByStatus(ctx context.Context, status Status, limit int) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Order
	for _, o := range r.orders {
		if status == "" || o.Status == status {
			out = append(out, o)
		}
	}
	sortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) SetStatus(ctx context.Context, o Order, change StatusChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.ID]; !ok {
		return ErrNotFound
	}
	r.orders[o.ID] = o
	r.history[o.ID] = append(r.history[o.ID], change)
	return nil
}

func (r *MemoryRepo) History(ctx context.Context, orderID string) ([]StatusChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]StatusChange, len(r.history[orderID]))
	copy(out, r.history[orderID])
	return out, nil
}

func (r *MemoryRepo) CountFulfilledByUser(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, o := range r.orders {
		if o.UserID == userID && (o.Status == StatusCompleted || o.Status == StatusDelivered) {
			n++
		}
	}
	return n, nil
}

func sortNewestFirst(list []Order) {
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
}
