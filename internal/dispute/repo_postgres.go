package dispute

import (
	"context"
	"database/sql"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const disputeColumns = `
id, order_id, user_id, status, reason, decision, resolution_notes, resolved_by,
created_at, updated_at, resolved_at
`

func (r *PostgresRepo) Insert(ctx context.Context, d Dispute) error {
	const q = `
INSERT INTO disputes (` + disputeColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`
	_, err := r.db.ExecContext(ctx, q,
		d.ID, d.OrderID, d.UserID, d.Status, d.Reason, d.Decision, d.ResolutionNotes, d.ResolvedBy,
		d.CreatedAt, d.UpdatedAt, d.ResolvedAt,
	)
	return err
}

func (r *PostgresRepo) Update(ctx context.Context, d Dispute) error {
	const q = `
UPDATE disputes
SET status = $2, decision = $3, resolution_notes = $4, resolved_by = $5,
    updated_at = $6, resolved_at = $7
WHERE id = $1
`
	res, err := r.db.ExecContext(ctx, q, d.ID, d.Status, d.Decision, d.ResolutionNotes, d.ResolvedBy, d.UpdatedAt, d.ResolvedAt)
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

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Dispute, error) {
	const q = `SELECT ` + disputeColumns + ` FROM disputes WHERE id = $1`
	return r.getOne(ctx, q, id)
}

func (r *PostgresRepo) OpenByOrder(ctx context.Context, orderID string) (Dispute, error) {
	const q = `
SELECT ` + disputeColumns + ` FROM disputes
WHERE order_id = $1 AND status <> 'resolved'
LIMIT 1
`
	return r.getOne(ctx, q, orderID)
}

func (r *PostgresRepo) getOne(ctx context.Context, q, arg string) (Dispute, error) {
	var d Dispute
	err := r.db.QueryRowContext(ctx, q, arg).Scan(
		&d.ID, &d.OrderID, &d.UserID, &d.Status, &d.Reason, &d.Decision, &d.ResolutionNotes, &d.ResolvedBy,
		&d.CreatedAt, &d.UpdatedAt, &d.ResolvedAt,
	)
	if err == sql.ErrNoRows {
		return Dispute{}, ErrNotFound
	}
	if err != nil {
		return Dispute{}, err
	}
	return d, nil
}

func (r *PostgresRepo) ListByUser(ctx context.Context, userID string) ([]Dispute, error) {
	const q = `SELECT ` + disputeColumns + ` FROM disputes WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, q, userID)
}

func (r *PostgresRepo) ListUnresolved(ctx context.Context) ([]Dispute, error) {
	const q = `SELECT ` + disputeColumns + ` FROM disputes WHERE status <> 'resolved' ORDER BY created_at`
	return r.list(ctx, q)
}

func (r *PostgresRepo) list(ctx context.Context, q string, args ...any) ([]Dispute, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Dispute
	for rows.Next() {
		var d Dispute
		if err := rows.Scan(
			&d.ID, &d.OrderID, &d.UserID, &d.Status, &d.Reason, &d.Decision, &d.ResolutionNotes, &d.ResolvedBy,
			&d.CreatedAt, &d.UpdatedAt, &d.ResolvedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) AddMessage(ctx context.Context, m Message) error {
	const q = `
INSERT INTO dispute_messages (id, dispute_id, author_id, author_role, body, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`
	_, err := r.db.ExecContext(ctx, q, m.ID, m.DisputeID, m.AuthorID, m.AuthorRole, m.Body, m.CreatedAt)
	return err
}

func (r *PostgresRepo) Messages(ctx context.Context, disputeID string) ([]Message, error) {
	const q = `
SELECT id, dispute_id, author_id, author_role, body, created_at
FROM dispute_messages
WHERE dispute_id = $1
ORDER BY created_at, id
`
	rows, err := r.db.QueryContext(ctx, q, disputeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.DisputeID, &m.AuthorID, &m.AuthorRole, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
