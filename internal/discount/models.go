package discount

import "time"

type Type string

const (
	// TypePercentage discounts value% of the subtotal, clamped to MaxDiscountMinor.
	TypePercentage Type = "percentage"
	// TypeFixed discounts ValueMinor, clamped to the subtotal.
	TypeFixed Type = "fixed"
)

func (t Type) Valid() bool { return t == TypePercentage || t == TypeFixed }

// Discount is a promo code definition. Zero means "no limit" for MaxUses,
// MaxUsesPerUser, MinPurchaseMinor, MaxDiscountMinor and RequiresMinItems;
// nil time bounds mean an open window on that side.
type Discount struct {
	ID   string `json:"id" db:"id"`
	Code string `json:"code" db:"code"`

	Type Type `json:"type" db:"type"`
	// Value is a percent for percentage discounts and minor units for fixed ones.
	Value int64 `json:"value" db:"value"`

	MinPurchaseMinor int64 `json:"min_purchase_minor" db:"min_purchase_minor"`
	MaxDiscountMinor int64 `json:"max_discount_minor" db:"max_discount_minor"`

	MaxUses        int `json:"max_uses" db:"max_uses"`
	UsedCount      int `json:"used_count" db:"used_count"`
	MaxUsesPerUser int `json:"max_uses_per_user" db:"max_uses_per_user"`

	ValidFrom  *time.Time `json:"valid_from,omitempty" db:"valid_from"`
	ValidUntil *time.Time `json:"valid_until,omitempty" db:"valid_until"`

	// Empty slices mean the code applies to everything.
	ApplicableProducts   []string `json:"applicable_products,omitempty" db:"-"`
	ApplicableCategories []string `json:"applicable_categories,omitempty" db:"-"`

	FirstPurchaseOnly bool `json:"first_purchase_only" db:"first_purchase_only"`
	RequiresMinItems  int  `json:"requires_min_items" db:"requires_min_items"`

	IsActive bool `json:"is_active" db:"is_active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Usage is one consumption of a code by a user, written at order creation.
type Usage struct {
	ID         string    `json:"id" db:"id"`
	DiscountID string    `json:"discount_id" db:"discount_id"`
	UserID     string    `json:"user_id" db:"user_id"`
	OrderID    string    `json:"order_id" db:"order_id"`
	UsedAt     time.Time `json:"used_at" db:"used_at"`
}

// Quote is the read-only result of validating a code against a cart.
type Quote struct {
	Discount      Discount `json:"discount"`
	SubtotalMinor int64    `json:"subtotal_minor"`
	DiscountMinor int64    `json:"discount_minor"`
	TotalMinor    int64    `json:"total_minor"`
}
