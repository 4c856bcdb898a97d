package codes

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"gamelo-backend/pkg/utils"
)

// PostgresRepo implements Repository over database/sql.
//
// Concurrency: reservations use FOR UPDATE SKIP LOCKED so two concurrent
// checkouts never pick the same rows; a short batch means the lock window is
// small. If fewer than qty rows can be locked the transaction rolls back, so
// partial reservations never leak.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) InsertIfAbsent(ctx context.Context, c Code) (bool, error) {
	const q = `
INSERT INTO codes (id, product_id, ciphertext, fingerprint, status, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`
	_, err := r.db.ExecContext(ctx, q, c.ID, c.ProductID, c.Ciphertext, c.Fingerprint, c.Status, c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		// unique(product_id, fingerprint) makes re-uploads idempotent.
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *PostgresRepo) ReserveBatch(ctx context.Context, productID string, qty int, orderID string, at time.Time) ([]Code, error) {
	var out []Code
	err := utils.WithConflictRetry(ctx, r.db, nil, 3, func(ctx context.Context, tx *sql.Tx) error {
		out = out[:0]
		const q = `
UPDATE codes
SET status = 'reserved', order_id = $2, reserved_at = $3
WHERE id IN (
  SELECT id FROM codes
  WHERE product_id = $1 AND status = 'unused'
  ORDER BY created_at, id
  LIMIT $4
  FOR UPDATE SKIP LOCKED
)
RETURNING id, product_id, ciphertext, fingerprint, status, order_id, reserved_at, created_at
`
		rows, err := tx.QueryContext(ctx, q, productID, orderID, at, qty)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var c Code
			if err := rows.Scan(&c.ID, &c.ProductID, &c.Ciphertext, &c.Fingerprint, &c.Status, &c.OrderID, &c.ReservedAt, &c.CreatedAt); err != nil {
				return err
			}
			out = append(out, c)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if len(out) < qty {
			// Roll back so the partial flip never commits.
			return ErrInsufficientStock
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRepo) ReleaseReservation(ctx context.Context, orderID string) error {
	const q = `
UPDATE codes
SET status = 'unused', order_id = NULL, reserved_at = NULL
WHERE order_id = $1 AND status = 'reserved'
`
	_, err := r.db.ExecContext(ctx, q, orderID)
	return err
}

func (r *PostgresRepo) AssignReserved(ctx context.Context, orderID, userID string, at time.Time) error {
	const q = `
UPDATE codes
SET status = 'assigned', user_id = $2, assigned_at = $3
WHERE order_id = $1 AND status = 'reserved'
`
	_, err := r.db.ExecContext(ctx, q, orderID, userID, at)
	return err
}

func (r *PostgresRepo) ByOrder(ctx context.Context, orderID string) ([]Code, error) {
	const q = `
SELECT id, product_id, ciphertext, fingerprint, status, order_id, user_id,
       reserved_at, assigned_at, revealed_at, created_at
FROM codes
WHERE order_id = $1
ORDER BY created_at, id
`
	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Code
	for rows.Next() {
		var c Code
		var userID sql.NullString
		if err := rows.Scan(&c.ID, &c.ProductID, &c.Ciphertext, &c.Fingerprint, &c.Status, &c.OrderID, &userID,
			&c.ReservedAt, &c.AssignedAt, &c.RevealedAt, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.UserID = userID.String
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) MarkRevealed(ctx context.Context, orderID string, at time.Time) error {
	const q = `
UPDATE codes
SET status = 'revealed', revealed_at = $2
WHERE order_id = $1 AND status = 'assigned'
`
	_, err := r.db.ExecContext(ctx, q, orderID, at)
	return err
}

func (r *PostgresRepo) CountAvailable(ctx context.Context, productID string) (int, error) {
	const q = `SELECT count(*) FROM codes WHERE product_id = $1 AND status = 'unused'`
	var n int
	if err := r.db.QueryRowContext(ctx, q, productID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
