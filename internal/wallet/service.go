package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInsufficientFunds = errors.New("wallet: insufficient funds")
	ErrInvalidArgument   = errors.New("wallet: invalid argument")
)

// Repository is the atomic boundary for money operations.
//
// AppendDebit MUST be conditional: it appends only if the user's current
// balance covers the (negative) amount, so two concurrent debits can never
// both pass the check and overdraw. AppendCredit always succeeds. Both update
// the balance projection in the same transaction and fill BalanceAfterMinor.
type Repository interface {
	AppendCredit(ctx context.Context, e Entry) (Entry, error)
	AppendDebit(ctx context.Context, e Entry) (Entry, error)
	Balance(ctx context.Context, userID string) (Balance, error)
	Entries(ctx context.Context, userID string, limit int) ([]Entry, error)
}

// Service provides wallet operations.
//
// Money invariants:
// - No balance updates without a ledger entry.
// - Ledger is append-only (immutable).
// - Debits are serialized per user at the repository level.
type Service struct {
	repo Repository
	// clock is injectable for deterministic tests.
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// GetBalance returns the current projection. Consistent with the entry log at
// all times because both are written in one transaction.
func (s *Service) GetBalance(ctx context.Context, userID string) (Balance, error) {
	if userID == "" {
		return Balance{}, ErrInvalidArgument
	}
	return s.repo.Balance(ctx, userID)
}

// Credit appends a positive entry. No upper bound.
func (s *Service) Credit(ctx context.Context, userID string, amountMinor int64, entryType EntryType, reason, referenceID string) (Entry, error) {
	if userID == "" || amountMinor <= 0 {
		return Entry{}, ErrInvalidArgument
	}
	if entryType == "" {
		entryType = EntryTypeCredit
	}

	e := Entry{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        entryType,
		AmountMinor: amountMinor,
		Currency:    DefaultCurrency,
		Reason:      reason,
		ReferenceID: referenceID,
		CreatedAt:   s.clock().UTC(),
	}
	return s.repo.AppendCredit(ctx, e)
}

// Debit appends a negative entry if the balance covers it, otherwise
// ErrInsufficientFunds. The check-then-append is atomic in the repository.
func (s *Service) Debit(ctx context.Context, userID string, amountMinor int64, entryType EntryType, reason, referenceID string) (Entry, error) {
	if userID == "" || amountMinor <= 0 {
		return Entry{}, ErrInvalidArgument
	}
	if entryType == "" {
		entryType = EntryTypeDebit
	}

	e := Entry{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        entryType,
		AmountMinor: -amountMinor,
		Currency:    DefaultCurrency,
		Reason:      reason,
		ReferenceID: referenceID,
		CreatedAt:   s.clock().UTC(),
	}
	return s.repo.AppendDebit(ctx, e)
}

// History returns the most recent entries for a user.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]Entry, error) {
	if userID == "" {
		return nil, ErrInvalidArgument
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.repo.Entries(ctx, userID, limit)
}
