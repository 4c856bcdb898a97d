package discount

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repository for tests. Consume applies the same
// conditional cap as the Postgres implementation, under one lock.
type MemoryRepo struct {
	mu       sync.Mutex
	byID     map[string]Discount
	idByCode map[string]string
	usages   []Usage
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:     make(map[string]Discount),
		idByCode: make(map[string]string),
	}
}

func (r *MemoryRepo) Insert(ctx context.Context, d Discount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.idByCode[d.Code]; exists {
		return ErrAlreadyExists
	}
	r.byID[d.ID] = d
	r.idByCode[d.Code] = d.ID
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, d Discount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.byID[d.ID]
	if !ok {
		return ErrNotFound
	}
	// Counters are owned by Consume.
	d.UsedCount = old.UsedCount
	r.byID[d.ID] = d
	return nil
}

func (r *MemoryRepo) GetByCode(ctx context.Context, code string) (Discount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.idByCode[code]
	if !ok {
		return Discount{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Discount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok {
		return Discount{}, ErrNotFound
	}
	return d, nil
}

func (r *MemoryRepo) List(ctx context.Context) ([]Discount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Discount, 0, len(r.byID))
	for _, d := range r.byID {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) UserUsageCount(ctx context.Context, discountID, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, u := range r.usages {
		if u.DiscountID == discountID && u.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) Consume(ctx context.Context, u Usage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.byID[u.DiscountID]
	if !ok {
		return ErrNotFound
	}
	if d.MaxUses > 0 && d.UsedCount >= d.MaxUses {
		return ErrMaxUsesReached
	}
	d.UsedCount++
	r.byID[u.DiscountID] = d
	r.usages = append(r.usages, u)
	return nil
}
