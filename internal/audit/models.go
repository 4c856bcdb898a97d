package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - Actor, ip and user agent capture are best-effort; business flows must not
//   block on audit failures.
type Event struct {
	ID string `json:"id" db:"id"`

	// Type indicates the business category of the audit record.
	Type EventType `json:"type" db:"type"`

	// ActorUserID is the authenticated user causing the event (if applicable).
	ActorUserID string `json:"actor_user_id,omitempty" db:"actor_user_id"`
	ActorRole   string `json:"actor_role,omitempty" db:"actor_role"`

	// IPAddress should capture the original client IP when available.
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent string `json:"user_agent,omitempty" db:"user_agent"`

	// Target identifiers (optional, depending on the event type).
	OrderID   string `json:"order_id,omitempty" db:"order_id"`
	DisputeID string `json:"dispute_id,omitempty" db:"dispute_id"`
	WalletUID string `json:"wallet_user_id,omitempty" db:"wallet_user_id"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	// Metadata is optional JSON for full details.
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeAdminAction     EventType = "admin_action"
	EventTypeCodeReveal      EventType = "code_reveal"
	EventTypeDisputeResolved EventType = "dispute_resolved"
	EventTypeOrderStatus     EventType = "order_status_change"
)
