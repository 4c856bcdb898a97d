package discount

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Validation failures are distinct sentinels so the HTTP layer can hand the
// buyer a precise message instead of a generic "invalid code".
var (
	ErrNotFound          = errors.New("discount: code not found or inactive")
	ErrNotStarted        = errors.New("discount: code not valid yet")
	ErrExpired           = errors.New("discount: code expired")
	ErrMaxUsesReached    = errors.New("discount: usage limit reached")
	ErrUserLimitReached  = errors.New("discount: per-user limit reached")
	ErrFirstPurchaseOnly = errors.New("discount: first purchase only")
	ErrMinItems          = errors.New("discount: minimum item count not met")
	ErrMinPurchase       = errors.New("discount: minimum purchase not met")
	ErrNotApplicable     = errors.New("discount: not applicable to this product")
	ErrInvalidArgument   = errors.New("discount: invalid argument")
	ErrAlreadyExists     = errors.New("discount: code already exists")
)

// Repository persists discounts and usage rows.
//
// Consume MUST be conditional on the global cap so concurrent checkouts cannot
// push used_count past max_uses.
type Repository interface {
	Insert(ctx context.Context, d Discount) error
	Update(ctx context.Context, d Discount) error
	GetByCode(ctx context.Context, code string) (Discount, error)
	GetByID(ctx context.Context, id string) (Discount, error)
	List(ctx context.Context) ([]Discount, error)
	UserUsageCount(ctx context.Context, discountID, userID string) (int, error)
	Consume(ctx context.Context, u Usage) error
}

// Service validates and applies discount codes.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// QuoteInput describes the cart a code is validated against.
type QuoteInput struct {
	Code            string
	UserID          string
	ProductID       string
	CategoryID      string
	SubtotalMinor   int64
	ItemCount       int
	IsFirstPurchase bool
}

// QuoteCode validates a code against a cart and computes the amounts. It is
// read-only: previewing a code any number of times changes nothing. Checks run
// in a fixed order and the first failure wins.
func (s *Service) QuoteCode(ctx context.Context, in QuoteInput) (Quote, error) {
	code := strings.TrimSpace(strings.ToUpper(in.Code))
	if code == "" || in.UserID == "" || in.SubtotalMinor < 0 || in.ItemCount <= 0 {
		return Quote{}, ErrInvalidArgument
	}

	d, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return Quote{}, err
	}
	if !d.IsActive {
		return Quote{}, ErrNotFound
	}

	now := s.clock().UTC()
	if d.ValidFrom != nil && now.Before(*d.ValidFrom) {
		return Quote{}, ErrNotStarted
	}
	if d.ValidUntil != nil && now.After(*d.ValidUntil) {
		return Quote{}, ErrExpired
	}
	if d.MaxUses > 0 && d.UsedCount >= d.MaxUses {
		return Quote{}, ErrMaxUsesReached
	}
	if d.MaxUsesPerUser > 0 {
		used, err := s.repo.UserUsageCount(ctx, d.ID, in.UserID)
		if err != nil {
			return Quote{}, err
		}
		if used >= d.MaxUsesPerUser {
			return Quote{}, ErrUserLimitReached
		}
	}
	if d.FirstPurchaseOnly && !in.IsFirstPurchase {
		return Quote{}, ErrFirstPurchaseOnly
	}
	if d.RequiresMinItems > 0 && in.ItemCount < d.RequiresMinItems {
		return Quote{}, ErrMinItems
	}
	if d.MinPurchaseMinor > 0 && in.SubtotalMinor < d.MinPurchaseMinor {
		return Quote{}, ErrMinPurchase
	}
	if len(d.ApplicableProducts) > 0 && !slices.Contains(d.ApplicableProducts, in.ProductID) {
		if len(d.ApplicableCategories) == 0 || !slices.Contains(d.ApplicableCategories, in.CategoryID) {
			return Quote{}, ErrNotApplicable
		}
	} else if len(d.ApplicableProducts) == 0 && len(d.ApplicableCategories) > 0 &&
		!slices.Contains(d.ApplicableCategories, in.CategoryID) {
		return Quote{}, ErrNotApplicable
	}

	amount := Apply(d, in.SubtotalMinor)
	return Quote{
		Discount:      d,
		SubtotalMinor: in.SubtotalMinor,
		DiscountMinor: amount,
		TotalMinor:    in.SubtotalMinor - amount,
	}, nil
}

// Apply computes the discount amount for a subtotal. The result is always in
// [0, subtotal]: percentage discounts are clamped to MaxDiscountMinor, fixed
// discounts to the subtotal itself.
func Apply(d Discount, subtotalMinor int64) int64 {
	var amount int64
	switch d.Type {
	case TypePercentage:
		amount = subtotalMinor * d.Value / 100
		if d.MaxDiscountMinor > 0 && amount > d.MaxDiscountMinor {
			amount = d.MaxDiscountMinor
		}
	case TypeFixed:
		amount = d.Value
	}
	if amount > subtotalMinor {
		amount = subtotalMinor
	}
	if amount < 0 {
		amount = 0
	}
	return amount
}

// ConsumeCode records one use at order creation: a usage row plus a used_count
// bump, atomically and capped at the repository.
func (s *Service) ConsumeCode(ctx context.Context, discountID, userID, orderID string) error {
	if discountID == "" || userID == "" || orderID == "" {
		return ErrInvalidArgument
	}
	return s.repo.Consume(ctx, Usage{
		ID:         uuid.NewString(),
		DiscountID: discountID,
		UserID:     userID,
		OrderID:    orderID,
		UsedAt:     s.clock().UTC(),
	})
}

// CreateInput is the admin creation payload.
type CreateInput struct {
	Code                 string
	Type                 Type
	Value                int64
	MinPurchaseMinor     int64
	MaxDiscountMinor     int64
	MaxUses              int
	MaxUsesPerUser       int
	ValidFrom            *time.Time
	ValidUntil           *time.Time
	ApplicableProducts   []string
	ApplicableCategories []string
	FirstPurchaseOnly    bool
	RequiresMinItems     int
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Discount, error) {
	in.Code = strings.TrimSpace(strings.ToUpper(in.Code))
	if in.Code == "" || !in.Type.Valid() || in.Value <= 0 {
		return Discount{}, ErrInvalidArgument
	}
	if in.Type == TypePercentage && in.Value > 100 {
		return Discount{}, ErrInvalidArgument
	}
	if in.MinPurchaseMinor < 0 || in.MaxDiscountMinor < 0 || in.MaxUses < 0 || in.MaxUsesPerUser < 0 || in.RequiresMinItems < 0 {
		return Discount{}, ErrInvalidArgument
	}
	if in.ValidFrom != nil && in.ValidUntil != nil && in.ValidUntil.Before(*in.ValidFrom) {
		return Discount{}, ErrInvalidArgument
	}

	now := s.clock().UTC()
	d := Discount{
		ID:                   uuid.NewString(),
		Code:                 in.Code,
		Type:                 in.Type,
		Value:                in.Value,
		MinPurchaseMinor:     in.MinPurchaseMinor,
		MaxDiscountMinor:     in.MaxDiscountMinor,
		MaxUses:              in.MaxUses,
		MaxUsesPerUser:       in.MaxUsesPerUser,
		ValidFrom:            in.ValidFrom,
		ValidUntil:           in.ValidUntil,
		ApplicableProducts:   in.ApplicableProducts,
		ApplicableCategories: in.ApplicableCategories,
		FirstPurchaseOnly:    in.FirstPurchaseOnly,
		RequiresMinItems:     in.RequiresMinItems,
		IsActive:             true,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.repo.Insert(ctx, d); err != nil {
		return Discount{}, err
	}
	return d, nil
}

// UpdateInput carries only the fields an admin may change; nil keeps the
// stored value. Counters and the code itself are immutable.
type UpdateInput struct {
	Value             *int64
	MinPurchaseMinor  *int64
	MaxDiscountMinor  *int64
	MaxUses           *int
	MaxUsesPerUser    *int
	ValidFrom         *time.Time
	ValidUntil        *time.Time
	FirstPurchaseOnly *bool
	RequiresMinItems  *int
	IsActive          *bool
}

func (s *Service) UpdateDiscount(ctx context.Context, id string, in UpdateInput) (Discount, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Discount{}, err
	}

	if in.Value != nil {
		if *in.Value <= 0 || (d.Type == TypePercentage && *in.Value > 100) {
			return Discount{}, ErrInvalidArgument
		}
		d.Value = *in.Value
	}
	if in.MinPurchaseMinor != nil {
		if *in.MinPurchaseMinor < 0 {
			return Discount{}, ErrInvalidArgument
		}
		d.MinPurchaseMinor = *in.MinPurchaseMinor
	}
	if in.MaxDiscountMinor != nil {
		if *in.MaxDiscountMinor < 0 {
			return Discount{}, ErrInvalidArgument
		}
		d.MaxDiscountMinor = *in.MaxDiscountMinor
	}
	if in.MaxUses != nil {
		if *in.MaxUses < 0 {
			return Discount{}, ErrInvalidArgument
		}
		d.MaxUses = *in.MaxUses
	}
	if in.MaxUsesPerUser != nil {
		if *in.MaxUsesPerUser < 0 {
			return Discount{}, ErrInvalidArgument
		}
		d.MaxUsesPerUser = *in.MaxUsesPerUser
	}
	if in.ValidFrom != nil {
		d.ValidFrom = in.ValidFrom
	}
	if in.ValidUntil != nil {
		d.ValidUntil = in.ValidUntil
	}
	if d.ValidFrom != nil && d.ValidUntil != nil && d.ValidUntil.Before(*d.ValidFrom) {
		return Discount{}, ErrInvalidArgument
	}
	if in.FirstPurchaseOnly != nil {
		d.FirstPurchaseOnly = *in.FirstPurchaseOnly
	}
	if in.RequiresMinItems != nil {
		if *in.RequiresMinItems < 0 {
			return Discount{}, ErrInvalidArgument
		}
		d.RequiresMinItems = *in.RequiresMinItems
	}
	if in.IsActive != nil {
		d.IsActive = *in.IsActive
	}
	d.UpdatedAt = s.clock().UTC()

	if err := s.repo.Update(ctx, d); err != nil {
		return Discount{}, err
	}
	return d, nil
}

func (s *Service) List(ctx context.Context) ([]Discount, error) {
	return s.repo.List(ctx)
}
