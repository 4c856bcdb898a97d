package codes

import "time"

// Status is the lifecycle of a pooled code.
//
// unused -> reserved -> assigned -> revealed
//
// reserved is a short-lived checkout state; a failed checkout releases the
// reservation back to unused. assigned and revealed codes belong to an order
// forever.
type Status string

const (
	StatusUnused   Status = "unused"
	StatusReserved Status = "reserved"
	StatusAssigned Status = "assigned"
	StatusRevealed Status = "revealed"
)

// Code is one sellable unit in the pool. The plaintext value exists only in
// transit: at rest there is only the AES-GCM ciphertext plus a SHA-256
// fingerprint used for duplicate detection on upload.
type Code struct {
	ID        string `json:"id" db:"id"`
	ProductID string `json:"product_id" db:"product_id"`

	Ciphertext  string `json:"-" db:"ciphertext"`
	Fingerprint string `json:"-" db:"fingerprint"`

	Status  Status `json:"status" db:"status"`
	OrderID string `json:"order_id,omitempty" db:"order_id"`
	UserID  string `json:"user_id,omitempty" db:"user_id"`

	ReservedAt *time.Time `json:"reserved_at,omitempty" db:"reserved_at"`
	AssignedAt *time.Time `json:"assigned_at,omitempty" db:"assigned_at"`
	RevealedAt *time.Time `json:"revealed_at,omitempty" db:"revealed_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// UploadResult reports what happened to an uploaded batch.
type UploadResult struct {
	Added      int `json:"added"`
	Duplicates int `json:"duplicates"`
}

// RevealedCode is a decrypted code handed to the buyer. A per-code decrypt
// failure fills Error and leaves Value empty; it never fails the whole reveal.
type RevealedCode struct {
	CodeID string `json:"code_id"`
	Value  string `json:"value,omitempty"`
	Error  string `json:"error,omitempty"`
}
