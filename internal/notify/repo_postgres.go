package notify

import (
	"context"
	"database/sql"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Insert(ctx context.Context, n Notification) error {
	const q = `
INSERT INTO notifications (id, user_id, type, title, body, read, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`
	_, err := r.db.ExecContext(ctx, q, n.ID, n.UserID, n.Type, n.Title, n.Body, n.Read, n.CreatedAt)
	return err
}

func (r *PostgresRepo) ListByUser(ctx context.Context, userID string, limit int) ([]Notification, error) {
	const q = `
SELECT id, user_id, type, title, body, read, created_at
FROM notifications
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2
`
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) MarkRead(ctx context.Context, id, userID string) error {
	const q = `UPDATE notifications SET read = true WHERE id = $1 AND user_id = $2`
	_, err := r.db.ExecContext(ctx, q, id, userID)
	return err
}
