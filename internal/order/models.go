package order

import (
	"time"

	"gamelo-backend/internal/catalog"
)

// Status is the order lifecycle.
//
// Wallet checkout is synchronous, so Create lands directly on completed (or
// awaiting_admin for account products). pending_payment and payment_failed are
// kept for externally paid orders recorded by support.
type Status string

const (
	StatusPendingPayment Status = "pending_payment"
	StatusPaymentFailed  Status = "payment_failed"
	StatusProcessing     Status = "processing"
	StatusAwaitingAdmin  Status = "awaiting_admin"
	StatusCompleted      Status = "completed"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
	StatusRefunded       Status = "refunded"
	StatusDisputed       Status = "disputed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPendingPayment, StatusPaymentFailed, StatusProcessing, StatusAwaitingAdmin,
		StatusCompleted, StatusDelivered, StatusCancelled, StatusRefunded, StatusDisputed:
		return true
	}
	return false
}

// Terminal statuses accept no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusRefunded || s == StatusPaymentFailed
}

// Revealable reports whether purchased codes may be shown to the buyer.
func (s Status) Revealable() bool {
	return s == StatusCompleted || s == StatusDelivered
}

// allowedTransitions drives admin status changes. Create and the dispute flow
// write their statuses directly.
var allowedTransitions = map[Status][]Status{
	StatusPendingPayment: {StatusProcessing, StatusPaymentFailed, StatusCancelled},
	StatusProcessing:     {StatusCompleted, StatusAwaitingAdmin, StatusCancelled},
	StatusAwaitingAdmin:  {StatusDelivered, StatusCancelled, StatusRefunded},
	StatusCompleted:      {StatusDelivered, StatusDisputed, StatusRefunded},
	StatusDelivered:      {StatusDisputed, StatusRefunded},
	StatusDisputed:       {StatusCompleted, StatusAwaitingAdmin, StatusRefunded},
}

func transitionAllowed(from, to Status) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Order struct {
	ID string `json:"id" db:"id"`

	// OrderNumber is the short human-facing reference used in messages and
	// admin search. Derived from the id at creation, immutable afterwards.
	OrderNumber string `json:"order_number" db:"order_number"`

	UserID string `json:"user_id" db:"user_id"`

	ProductID   string              `json:"product_id" db:"product_id"`
	ProductName string              `json:"product_name" db:"product_name"`
	ProductType catalog.ProductType `json:"product_type" db:"product_type"`
	VariantID   string              `json:"variant_id,omitempty" db:"variant_id"`
	Quantity    int                 `json:"quantity" db:"quantity"`

	UnitPriceMinor int64  `json:"unit_price_minor" db:"unit_price_minor"`
	SubtotalMinor  int64  `json:"subtotal_minor" db:"subtotal_minor"`
	DiscountCode   string `json:"discount_code,omitempty" db:"discount_code"`
	DiscountMinor  int64  `json:"discount_minor" db:"discount_minor"`
	TotalMinor     int64  `json:"total_minor" db:"total_minor"`
	Currency       string `json:"currency" db:"currency"`

	Status Status `json:"status" db:"status"`

	// DeliveryNote carries account credentials or instructions entered by an
	// admin on manual delivery. Only the order owner may read it.
	DeliveryNote string     `json:"delivery_note,omitempty" db:"delivery_note"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty" db:"delivered_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// StatusChange is one row of the order's status history.
type StatusChange struct {
	ID      string `json:"id" db:"id"`
	OrderID string `json:"order_id" db:"order_id"`
	From    Status `json:"from" db:"from_status"`
	To      Status `json:"to" db:"to_status"`
	ActorID string `json:"actor_id,omitempty" db:"actor_id"`
	Reason  string `json:"reason,omitempty" db:"reason"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
