package notify

import "time"

// Notification is an in-app message for one user.
type Notification struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`
	Type   string `json:"type" db:"type"`
	Title  string `json:"title" db:"title"`
	Body   string `json:"body" db:"body"`
	Read   bool   `json:"read" db:"read"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

const (
	TypeOrderCreated    = "order_created"
	TypeOrderStatus     = "order_status"
	TypeDisputeOpened   = "dispute_opened"
	TypeDisputeResolved = "dispute_resolved"
)
