package reporting

import (
	"context"
	"database/sql"
	"time"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) OrdersSummary(ctx context.Context, from, to time.Time) (OrdersSummary, error) {
	out := OrdersSummary{From: from, To: to, ByStatus: make(map[string]int)}

	const statusQ = `
SELECT status, count(*)
FROM orders
WHERE created_at >= $1 AND created_at < $2
GROUP BY status
`
	rows, err := r.db.QueryContext(ctx, statusQ, from, to)
	if err != nil {
		return OrdersSummary{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return OrdersSummary{}, err
		}
		out.ByStatus[status] = n
		out.TotalOrders += n
	}
	if err := rows.Err(); err != nil {
		return OrdersSummary{}, err
	}

	const revenueQ = `
SELECT coalesce(sum(total_minor), 0), coalesce(sum(discount_minor), 0)
FROM orders
WHERE created_at >= $1 AND created_at < $2 AND status IN ('completed','delivered')
`
	if err := r.db.QueryRowContext(ctx, revenueQ, from, to).Scan(&out.RevenueMinor, &out.DiscountMinor); err != nil {
		return OrdersSummary{}, err
	}
	return out, nil
}

func (r *PostgresRepo) WalletSummary(ctx context.Context, from, to time.Time) (WalletSummary, error) {
	out := WalletSummary{From: from, To: to}

	const q = `
SELECT
  coalesce(sum(amount_minor) FILTER (WHERE amount_minor > 0 AND type <> 'refund'), 0),
  coalesce(sum(-amount_minor) FILTER (WHERE amount_minor < 0), 0),
  coalesce(sum(amount_minor) FILTER (WHERE type = 'refund'), 0)
FROM wallet_entries
WHERE created_at >= $1 AND created_at < $2
`
	if err := r.db.QueryRowContext(ctx, q, from, to).Scan(&out.CreditedMinor, &out.DebitedMinor, &out.RefundedMinor); err != nil {
		return WalletSummary{}, err
	}
	return out, nil
}
