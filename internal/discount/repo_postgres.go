package discount

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"gamelo-backend/pkg/utils"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const discountColumns = `
id, code, type, value, min_purchase_minor, max_discount_minor,
max_uses, used_count, max_uses_per_user, valid_from, valid_until,
applicable_products, applicable_categories,
first_purchase_only, requires_min_items, is_active, created_at, updated_at
`

func (r *PostgresRepo) Insert(ctx context.Context, d Discount) error {
	const q = `
INSERT INTO discounts (` + discountColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
`
	_, err := r.db.ExecContext(ctx, q,
		d.ID, d.Code, d.Type, d.Value, d.MinPurchaseMinor, d.MaxDiscountMinor,
		d.MaxUses, d.UsedCount, d.MaxUsesPerUser, d.ValidFrom, d.ValidUntil,
		joinList(d.ApplicableProducts), joinList(d.ApplicableCategories),
		d.FirstPurchaseOnly, d.RequiresMinItems, d.IsActive, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *PostgresRepo) Update(ctx context.Context, d Discount) error {
	const q = `
UPDATE discounts
SET value = $2, min_purchase_minor = $3, max_discount_minor = $4,
    max_uses = $5, max_uses_per_user = $6, valid_from = $7, valid_until = $8,
    first_purchase_only = $9, requires_min_items = $10, is_active = $11, updated_at = $12
WHERE id = $1
`
	res, err := r.db.ExecContext(ctx, q,
		d.ID, d.Value, d.MinPurchaseMinor, d.MaxDiscountMinor,
		d.MaxUses, d.MaxUsesPerUser, d.ValidFrom, d.ValidUntil,
		d.FirstPurchaseOnly, d.RequiresMinItems, d.IsActive, d.UpdatedAt,
	)
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
	return nil
}

func (r *PostgresRepo) GetByCode(ctx context.Context, code string) (Discount, error) {
	const q = `SELECT ` + discountColumns + ` FROM discounts WHERE code = $1`
	return r.getOne(ctx, q, code)
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Discount, error) {
	const q = `SELECT ` + discountColumns + ` FROM discounts WHERE id = $1`
	return r.getOne(ctx, q, id)
}

func (r *PostgresRepo) getOne(ctx context.Context, q, arg string) (Discount, error) {
	row := r.db.QueryRowContext(ctx, q, arg)
	d, err := scanDiscount(row.Scan)
	if err == sql.ErrNoRows {
		return Discount{}, ErrNotFound
	}
	if err != nil {
		return Discount{}, err
	}
	return d, nil
}

func (r *PostgresRepo) List(ctx context.Context) ([]Discount, error) {
	const q = `SELECT ` + discountColumns + ` FROM discounts ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Discount
	for rows.Next() {
		d, err := scanDiscount(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) UserUsageCount(ctx context.Context, discountID, userID string) (int, error) {
	const q = `SELECT count(*) FROM discount_usage WHERE discount_id = $1 AND user_id = $2`
	var n int
	if err := r.db.QueryRowContext(ctx, q, discountID, userID).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *PostgresRepo) Consume(ctx context.Context, u Usage) error {
	return utils.WithConflictRetry(ctx, r.db, nil, 3, func(ctx context.Context, tx *sql.Tx) error {
		// Conditional bump: concurrent checkouts cannot push past max_uses.
		const bump = `
UPDATE discounts
SET used_count = used_count + 1, updated_at = now()
WHERE id = $1 AND (max_uses = 0 OR used_count < max_uses)
`
		res, err := tx.ExecContext(ctx, bump, u.DiscountID)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrMaxUsesReached
		}

		const insert = `
INSERT INTO discount_usage (id, discount_id, user_id, order_id, used_at)
VALUES ($1,$2,$3,$4,$5)
`
		_, err = tx.ExecContext(ctx, insert, u.ID, u.DiscountID, u.UserID, u.OrderID, u.UsedAt)
		return err
	})
}

// Applicability lists are small id sets; stored as comma-joined text.

func joinList(list []string) string { return strings.Join(list, ",") }

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func scanDiscount(scan func(dest ...any) error) (Discount, error) {
	var d Discount
	var products, categories sql.NullString
	err := scan(
		&d.ID, &d.Code, &d.Type, &d.Value, &d.MinPurchaseMinor, &d.MaxDiscountMinor,
		&d.MaxUses, &d.UsedCount, &d.MaxUsesPerUser, &d.ValidFrom, &d.ValidUntil,
		&products, &categories,
		&d.FirstPurchaseOnly, &d.RequiresMinItems, &d.IsActive, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return Discount{}, err
	}
	d.ApplicableProducts = splitList(products.String)
	d.ApplicableCategories = splitList(categories.String)
	return d, nil
}
