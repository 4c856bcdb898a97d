package order

import (
	"context"
	"database/sql"

	"gamelo-backend/pkg/utils"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const orderColumns = `
id, order_number, user_id, product_id, product_name, product_type, variant_id, quantity,
unit_price_minor, subtotal_minor, discount_code, discount_minor, total_minor, currency,
status, delivery_note, delivered_at, created_at, updated_at
`

func (r *PostgresRepo) Insert(ctx context.Context, o Order) error {
	const q = `
INSERT INTO orders (` + orderColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
`
	_, err := r.db.ExecContext(ctx, q,
		o.ID, o.OrderNumber, o.UserID, o.ProductID, o.ProductName, o.ProductType, o.VariantID, o.Quantity,
		o.UnitPriceMinor, o.SubtotalMinor, o.DiscountCode, o.DiscountMinor, o.TotalMinor, o.Currency,
		o.Status, o.DeliveryNote, o.DeliveredAt, o.CreatedAt, o.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	var o Order
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.ProductID, &o.ProductName, &o.ProductType, &o.VariantID, &o.Quantity,
		&o.UnitPriceMinor, &o.SubtotalMinor, &o.DiscountCode, &o.DiscountMinor, &o.TotalMinor, &o.Currency,
		&o.Status, &o.DeliveryNote, &o.DeliveredAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

func (r *PostgresRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Order, error) {
	const q = `
SELECT ` + orderColumns + ` FROM orders
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`
	return r.list(ctx, q, userID, limit)
}

func (r *PostgresRepo) ListByStatus(ctx context.Context, status Status, limit int) ([]Order, error) {
	if status == "" {
		const q = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC LIMIT $1`
		return r.list(ctx, q, limit)
	}
	const q = `
SELECT ` + orderColumns + ` FROM orders
WHERE status = $1
ORDER BY created_at DESC
LIMIT $2
`
	return r.list(ctx, q, status, limit)
}

func (r *PostgresRepo) list(ctx context.Context, q string, args ...any) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID, &o.OrderNumber, &o.UserID, &o.ProductID, &o.ProductName, &o.ProductType, &o.VariantID, &o.Quantity,
			&o.UnitPriceMinor, &o.SubtotalMinor, &o.DiscountCode, &o.DiscountMinor, &o.TotalMinor, &o.Currency,
			&o.Status, &o.DeliveryNote, &o.DeliveredAt, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// SetStatus writes the new order state and the history row in one transaction.
func (r *PostgresRepo) SetStatus(ctx context.Context, o Order, change StatusChange) error {
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		const upd = `
UPDATE orders
SET status = $2, delivery_note = $3, delivered_at = $4, updated_at = $5
WHERE id = $1
`
		res, err := tx.ExecContext(ctx, upd, o.ID, o.Status, o.DeliveryNote, o.DeliveredAt, o.UpdatedAt)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}

		const ins = `
INSERT INTO order_status_history (id, order_id, from_status, to_status, actor_id, reason, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`
		_, err = tx.ExecContext(ctx, ins, change.ID, change.OrderID, change.From, change.To, change.ActorID, change.Reason, change.CreatedAt)
		return err
	})
}

func (r *PostgresRepo) History(ctx context.Context, orderID string) ([]StatusChange, error) {
	const q = `
SELECT id, order_id, from_status, to_status, actor_id, reason, created_at
FROM order_status_history
WHERE order_id = $1
ORDER BY created_at, id
`
	rows, err := r.db.QueryContext(ctx, q, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StatusChange
	for rows.Next() {
		var c StatusChange
		if err := rows.Scan(&c.ID, &c.OrderID, &c.From, &c.To, &c.ActorID, &c.Reason, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) CountFulfilledByUser(ctx context.Context, userID string) (int, error) {
	const q = `
SELECT count(*) FROM orders
WHERE user_id = $1 AND status IN ('completed','delivered')
`
	var n int
	if err := r.db.QueryRowContext(ctx, q, userID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
