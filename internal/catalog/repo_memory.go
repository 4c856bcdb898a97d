package catalog

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is an in-memory Repository for tests.
type MemoryRepo struct {
	mu       sync.Mutex
	byID     map[string]Product
	idBySlug map[string]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:     make(map[string]Product),
		idBySlug: make(map[string]string),
	}
}

func (r *MemoryRepo) Insert(ctx context.Context, p Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID] = p
	r.idBySlug[p.Slug] = p.ID
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, p Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.byID[p.ID]
	if !ok {
		return ErrNotFound
	}
	p.Variants = old.Variants
	r.byID[p.ID] = p
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepo) GetBySlug(ctx context.Context, slug string) (Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.idBySlug[slug]
	if !ok {
		return Product{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryRepo) List(ctx context.Context, activeOnly bool) ([]Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Product
	for _, p := range r.byID {
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
