package dispute

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repository for tests.
type MemoryRepo struct {
	mu       sync.Mutex
	byID     map[string]Dispute
	messages map[string][]Message
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:     make(map[string]Dispute),
		messages: make(map[string][]Message),
	}
}

func (r *MemoryRepo) Insert(ctx context.Context, d Dispute) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[d.ID] = d
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, d Dispute) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[d.ID]; !ok {
		return ErrNotFound
	}
	r.byID[d.ID] = d
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok {
		return Dispute{}, ErrNotFound
	}
	return d, nil
}

func (r *MemoryRepo) OpenByOrder(ctx context.Context, orderID string) (Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.byID {
		if d.OrderID == orderID && d.Status != StatusResolved {
			return d, nil
		}
	}
	return Dispute{}, ErrNotFound
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string) ([]Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Dispute
	for _, d := range r.byID {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) ListUnresolved(ctx context.Context) ([]Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Dispute
	for _, d := range r.byID {
		if d.Status != StatusResolved {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) AddMessage(ctx context.Context, m Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[m.DisputeID] = append(r.messages[m.DisputeID], m)
	return nil
}

func (r *MemoryRepo) Messages(ctx context.Context, disputeID string) ([]Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages[disputeID]))
	copy(out, r.messages[disputeID])
	return out, nil
}
