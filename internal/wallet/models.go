package wallet

import "time"

// DefaultCurrency is the marketplace settlement currency.
// Amounts are int64 minor units: 1 JOD = 100 qirsh. Two-decimal rounding of
// display amounts is exact by construction.
const DefaultCurrency = "JOD"

// Entry is an immutable append-only ledger row.
//
// Money invariants:
// - No balance change without a ledger entry.
// - Entries are never mutated or deleted.
// - The sum of a user's entries never goes negative at append time
//   (enforced by the debit path, see Repository).
type Entry struct {
	ID     string `json:"id" db:"id"`
	UserID string `json:"user_id" db:"user_id"`

	// Type categorizes the entry. Keep stable.
	Type EntryType `json:"type" db:"type"`

	// AmountMinor is signed: credits positive, debits negative.
	AmountMinor int64  `json:"amount_minor" db:"amount_minor"`
	Currency    string `json:"currency" db:"currency"`

	Reason string `json:"reason,omitempty" db:"reason"`

	// ReferenceID links the entry to its cause: order id, dispute id, admin action.
	ReferenceID string `json:"reference_id,omitempty" db:"reference_id"`

	// BalanceAfterMinor snapshots the projection right after this entry posted.
	BalanceAfterMinor int64 `json:"balance_after_minor" db:"balance_after_minor"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EntryType string

const (
	EntryTypePurchase EntryType = "purchase" // order debit
	EntryTypeRefund   EntryType = "refund"   // dispute/cancellation credit
	EntryTypeReversal EntryType = "reversal" // compensating credit after a failed reservation
	EntryTypeCredit   EntryType = "credit"   // admin top-up
	EntryTypeDebit    EntryType = "debit"    // admin deduction
)

// Balance is the projection row kept in sync with the entry log in the same
// transaction. Missing row means a wallet that never posted: balance zero.
type Balance struct {
	UserID       string    `json:"user_id" db:"user_id"`
	Currency     string    `json:"currency" db:"currency"`
	BalanceMinor int64     `json:"balance_minor" db:"balance_minor"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
