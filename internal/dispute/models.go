package dispute

import "time"

type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
)

// Decision is the adjudication outcome of a resolved dispute.
type Decision string

const (
	DecisionRefund    Decision = "refund"
	DecisionReject    Decision = "reject"
	DecisionRedeliver Decision = "redeliver"
)

func (d Decision) Valid() bool {
	return d == DecisionRefund || d == DecisionReject || d == DecisionRedeliver
}

// Dispute is a buyer complaint tied to exactly one order. An order can have at
// most one non-resolved dispute at a time.
type Dispute struct {
	ID      string `json:"id" db:"id"`
	OrderID string `json:"order_id" db:"order_id"`
	UserID  string `json:"user_id" db:"user_id"`

	Status Status `json:"status" db:"status"`
	Reason string `json:"reason" db:"reason"`

	Decision        Decision `json:"decision,omitempty" db:"decision"`
	ResolutionNotes string   `json:"resolution_notes,omitempty" db:"resolution_notes"`
	ResolvedBy      string   `json:"resolved_by,omitempty" db:"resolved_by"`

	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`
}

// Message is one entry in the dispute conversation.
type Message struct {
	ID         string    `json:"id" db:"id"`
	DisputeID  string    `json:"dispute_id" db:"dispute_id"`
	AuthorID   string    `json:"author_id" db:"author_id"`
	AuthorRole string    `json:"author_role" db:"author_role"`
	Body       string    `json:"body" db:"body"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
