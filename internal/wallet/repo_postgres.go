package wallet

import (
	"context"
	"database/sql"

	"gamelo-backend/pkg/utils"
)

// PostgresRepo implements Repository over database/sql.
//
// Concurrency: every append locks the user's wallet_balances row with
// SELECT ... FOR UPDATE, so concurrent debits for the same user serialize and
// the balance check cannot race. Entry insert and projection update happen in
// the same transaction.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) AppendCredit(ctx context.Context, e Entry) (Entry, error) {
	err := utils.WithConflictRetry(ctx, r.db, nil, 3, func(ctx context.Context, tx *sql.Tx) error {
		balance, err := lockBalance(ctx, tx, e.UserID, e.Currency)
		if err != nil {
			return err
		}
		e.BalanceAfterMinor = balance + e.AmountMinor
		return postEntry(ctx, tx, e)
	})
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (r *PostgresRepo) AppendDebit(ctx context.Context, e Entry) (Entry, error) {
	err := utils.WithConflictRetry(ctx, r.db, nil, 3, func(ctx context.Context, tx *sql.Tx) error {
		balance, err := lockBalance(ctx, tx, e.UserID, e.Currency)
		if err != nil {
			return err
		}
		// AmountMinor is negative on debits.
		if balance+e.AmountMinor < 0 {
			return ErrInsufficientFunds
		}
		e.BalanceAfterMinor = balance + e.AmountMinor
		return postEntry(ctx, tx, e)
	})
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

func (r *PostgresRepo) Balance(ctx context.Context, userID string) (Balance, error) {
	const q = `
SELECT user_id, currency, balance_minor, updated_at
FROM wallet_balances
WHERE user_id = $1
`
	var b Balance
	err := r.db.QueryRowContext(ctx, q, userID).
		Scan(&b.UserID, &b.Currency, &b.BalanceMinor, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		// Wallet that never posted an entry.
		return Balance{UserID: userID, Currency: DefaultCurrency}, nil
	}
	if err != nil {
		return Balance{}, err
	}
	return b, nil
}

func (r *PostgresRepo) Entries(ctx context.Context, userID string, limit int) ([]Entry, error) {
	const q = `
SELECT id, user_id, type, amount_minor, currency, reason, reference_id, balance_after_minor, created_at
FROM wallet_entries
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Type, &e.AmountMinor, &e.Currency, &e.Reason, &e.ReferenceID, &e.BalanceAfterMinor, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// lockBalance ensures the projection row exists and returns its value with the
// row locked for the rest of the transaction.
func lockBalance(ctx context.Context, tx *sql.Tx, userID, currency string) (int64, error) {
	const upsert = `
INSERT INTO wallet_balances (user_id, currency, balance_minor, updated_at)
VALUES ($1, $2, 0, now())
ON CONFLICT (user_id) DO NOTHING
`
	if _, err := tx.ExecContext(ctx, upsert, userID, currency); err != nil {
		return 0, err
	}

	const lock = `
SELECT balance_minor FROM wallet_balances WHERE user_id = $1 FOR UPDATE
`
	var balance int64
	if err := tx.QueryRowContext(ctx, lock, userID).Scan(&balance); err != nil {
		return 0, err
	}
	return balance, nil
}

// postEntry writes the ledger row and moves the projection to BalanceAfterMinor.
func postEntry(ctx context.Context, tx *sql.Tx, e Entry) error {
	const insert = `
INSERT INTO wallet_entries (
  id, user_id, type, amount_minor, currency, reason, reference_id, balance_after_minor, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`
	if _, err := tx.ExecContext(ctx, insert,
		e.ID, e.UserID, e.Type, e.AmountMinor, e.Currency, e.Reason, e.ReferenceID, e.BalanceAfterMinor, e.CreatedAt,
	); err != nil {
		return err
	}

	const update = `
UPDATE wallet_balances SET balance_minor = $2, updated_at = now() WHERE user_id = $1
`
	_, err := tx.ExecContext(ctx, update, e.UserID, e.BalanceAfterMinor)
	return err
}
