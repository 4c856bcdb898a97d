package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"gamelo-backend/pkg/utils"
)

var (
	ErrNotFound        = errors.New("catalog: product not found")
	ErrVariantNotFound = errors.New("catalog: variant not found")
	ErrInvalidArgument = errors.New("catalog: invalid argument")
)

// Repository persists products and their variants.
type Repository interface {
	Insert(ctx context.Context, p Product) error
	Update(ctx context.Context, p Product) error
	GetByID(ctx context.Context, id string) (Product, error)
	GetBySlug(ctx context.Context, slug string) (Product, error)
	List(ctx context.Context, activeOnly bool) ([]Product, error)
}

// StockCounter reports how many unassigned codes a product has. Implemented by
// the code pool.
type StockCounter interface {
	CountAvailable(ctx context.Context, productID string) (int, error)
}

// Service exposes product lookup and admin catalog management.
//
// Stock counts are served through a short-TTL Redis cache: browsing does not
// need strong consistency and the pool is the source of truth at checkout.
type Service struct {
	repo  Repository
	stock StockCounter
	rdb   *redis.Client // nil disables the cache
	log   *slog.Logger

	stockCacheTTL time.Duration
	clock         func() time.Time
}

func NewService(repo Repository, stock StockCounter, rdb *redis.Client, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:          repo,
		stock:         stock,
		rdb:           rdb,
		log:           log,
		stockCacheTTL: 30 * time.Second,
		clock:         time.Now,
	}
}

// Get resolves a product by id first, then by slug. Storefront links carry
// slugs while internal references carry ids, and both arrive on the same route.
func (s *Service) Get(ctx context.Context, idOrSlug string) (Product, error) {
	if idOrSlug == "" {
		return Product{}, ErrInvalidArgument
	}
	p, err := s.repo.GetByID(ctx, idOrSlug)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Product{}, err
	}
	return s.repo.GetBySlug(ctx, idOrSlug)
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]Product, error) {
	return s.repo.List(ctx, activeOnly)
}

// ResolvePrice returns the unit price for a purchase. With a variant id the
// variant must exist on the product and be active.
func ResolvePrice(p Product, variantID string) (int64, error) {
	if variantID == "" {
		return p.PriceMinor, nil
	}
	for _, v := range p.Variants {
		if v.ID == variantID && v.IsActive {
			return v.PriceMinor, nil
		}
	}
	return 0, ErrVariantNotFound
}

// StockCount returns the available code count, preferring the cache. Cache
// failures degrade to a direct count, never to an error.
func (s *Service) StockCount(ctx context.Context, productID string) (int, error) {
	if n, ok, err := utils.CachedStockCount(ctx, s.rdb, productID); err == nil && ok {
		return n, nil
	} else if err != nil {
		s.log.Warn("stock cache read failed", "product_id", productID, "error", err)
	}

	n, err := s.stock.CountAvailable(ctx, productID)
	if err != nil {
		return 0, err
	}
	if err := utils.SetCachedStockCount(ctx, s.rdb, productID, n, s.stockCacheTTL); err != nil {
		s.log.Warn("stock cache write failed", "product_id", productID, "error", err)
	}
	return n, nil
}

// InvalidateStock drops the cached count after uploads or purchases.
func (s *Service) InvalidateStock(ctx context.Context, productID string) {
	if err := utils.InvalidateStockCount(ctx, s.rdb, productID); err != nil {
		s.log.Warn("stock cache invalidation failed", "product_id", productID, "error", err)
	}
}

// CreateInput is the admin creation payload.
type CreateInput struct {
	Slug        string
	Name        string
	Description string
	Type        ProductType
	PriceMinor  int64
	CategoryID  string
	Variants    []Variant
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Product, error) {
	in.Slug = strings.TrimSpace(strings.ToLower(in.Slug))
	in.Name = strings.TrimSpace(in.Name)
	if in.Slug == "" || in.Name == "" || !in.Type.Valid() || in.PriceMinor < 0 {
		return Product{}, ErrInvalidArgument
	}

	now := s.clock().UTC()
	p := Product{
		ID:          uuid.NewString(),
		Slug:        in.Slug,
		Name:        in.Name,
		Description: in.Description,
		Type:        in.Type,
		PriceMinor:  in.PriceMinor,
		CategoryID:  in.CategoryID,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, v := range in.Variants {
		if v.Label == "" || v.PriceMinor < 0 {
			return Product{}, ErrInvalidArgument
		}
		p.Variants = append(p.Variants, Variant{
			ID:         uuid.NewString(),
			ProductID:  p.ID,
			Label:      v.Label,
			PriceMinor: v.PriceMinor,
			IsActive:   true,
		})
	}

	if err := s.repo.Insert(ctx, p); err != nil {
		return Product{}, err
	}
	return p, nil
}

// UpdateInput carries only the fields an admin may change. Nil means keep.
type UpdateInput struct {
	Name        *string
	Description *string
	PriceMinor  *int64
	CategoryID  *string
	IsActive    *bool
}

func (s *Service) Update(ctx context.Context, productID string, in UpdateInput) (Product, error) {
	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return Product{}, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return Product{}, ErrInvalidArgument
		}
		p.Name = name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.PriceMinor != nil {
		if *in.PriceMinor < 0 {
			return Product{}, ErrInvalidArgument
		}
		p.PriceMinor = *in.PriceMinor
	}
	if in.CategoryID != nil {
		p.CategoryID = *in.CategoryID
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	p.UpdatedAt = s.clock().UTC()

	if err := s.repo.Update(ctx, p); err != nil {
		return Product{}, err
	}
	return p, nil
}
