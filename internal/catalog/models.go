package catalog

import "time"

// ProductType determines the fulfillment path at checkout.
type ProductType string

const (
	// TypeDigitalCode products are fulfilled instantly from the code pool.
	TypeDigitalCode ProductType = "digital_code"
	// TypeExistingAccount and TypeNewAccount require manual admin delivery.
	TypeExistingAccount ProductType = "existing_account"
	TypeNewAccount      ProductType = "new_account"
)

func (t ProductType) Valid() bool {
	switch t {
	case TypeDigitalCode, TypeExistingAccount, TypeNewAccount:
		return true
	}
	return false
}

// RequiresManualDelivery reports whether an admin must hand over credentials
// after purchase instead of automatic code assignment.
func (t ProductType) RequiresManualDelivery() bool {
	return t == TypeExistingAccount || t == TypeNewAccount
}

// Variant is a purchasable denomination of a product (e.g. a card value).
// A variant overrides the product base price.
type Variant struct {
	ID         string `json:"id" db:"id"`
	ProductID  string `json:"product_id" db:"product_id"`
	Label      string `json:"label" db:"label"`
	PriceMinor int64  `json:"price_minor" db:"price_minor"`
	IsActive   bool   `json:"is_active" db:"is_active"`
}

type Product struct {
	ID          string      `json:"id" db:"id"`
	Slug        string      `json:"slug" db:"slug"`
	Name        string      `json:"name" db:"name"`
	Description string      `json:"description,omitempty" db:"description"`
	Type        ProductType `json:"type" db:"type"`

	// PriceMinor is the base price; variants override it.
	PriceMinor int64  `json:"price_minor" db:"price_minor"`
	CategoryID string `json:"category_id,omitempty" db:"category_id"`
	IsActive   bool   `json:"is_active" db:"is_active"`

	Variants []Variant `json:"variants,omitempty" db:"-"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
