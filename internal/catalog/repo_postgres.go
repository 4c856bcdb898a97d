package catalog

import (
	"context"
	"database/sql"

	"gamelo-backend/pkg/utils"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const productColumns = `
id, slug, name, description, type, price_minor, category_id, is_active, created_at, updated_at
`

func (r *PostgresRepo) Insert(ctx context.Context, p Product) error {
	return utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		const q = `
INSERT INTO products (` + productColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`
		if _, err := tx.ExecContext(ctx, q,
			p.ID, p.Slug, p.Name, p.Description, p.Type, p.PriceMinor, p.CategoryID, p.IsActive, p.CreatedAt, p.UpdatedAt,
		); err != nil {
			return err
		}
		for _, v := range p.Variants {
			const vq = `
INSERT INTO product_variants (id, product_id, label, price_minor, is_active)
VALUES ($1,$2,$3,$4,$5)
`
			if _, err := tx.ExecContext(ctx, vq, v.ID, v.ProductID, v.Label, v.PriceMinor, v.IsActive); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresRepo) Update(ctx context.Context, p Product) error {
	const q = `
UPDATE products
SET name = $2, description = $3, price_minor = $4, category_id = $5, is_active = $6, updated_at = $7
WHERE id = $1
`
	res, err := r.db.ExecContext(ctx, q, p.ID, p.Name, p.Description, p.PriceMinor, p.CategoryID, p.IsActive, p.UpdatedAt)
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

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return r.getOne(ctx, q, id)
}

func (r *PostgresRepo) GetBySlug(ctx context.Context, slug string) (Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products WHERE slug = $1`
	return r.getOne(ctx, q, slug)
}

func (r *PostgresRepo) getOne(ctx context.Context, q, arg string) (Product, error) {
	var p Product
	err := r.db.QueryRowContext(ctx, q, arg).Scan(
		&p.ID, &p.Slug, &p.Name, &p.Description, &p.Type, &p.PriceMinor, &p.CategoryID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, err
	}
	variants, err := r.variants(ctx, p.ID)
	if err != nil {
		return Product{}, err
	}
	p.Variants = variants
	return p, nil
}

func (r *PostgresRepo) variants(ctx context.Context, productID string) ([]Variant, error) {
	const q = `
SELECT id, product_id, label, price_minor, is_active
FROM product_variants
WHERE product_id = $1
ORDER BY price_minor ASC
`
	rows, err := r.db.QueryContext(ctx, q, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Variant
	for rows.Next() {
		var v Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Label, &v.PriceMinor, &v.IsActive); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) List(ctx context.Context, activeOnly bool) ([]Product, error) {
	q := `SELECT ` + productColumns + ` FROM products`
	if activeOnly {
		q += ` WHERE is_active = true`
	}
	q += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &p.Type, &p.PriceMinor, &p.CategoryID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Listings are small enough that a query per product keeps the code simple.
	for i := range out {
		variants, err := r.variants(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Variants = variants
	}
	return out, nil
}
