package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Product is a dairy product sold by a branch alongside raw milk.
type Product struct {
	ID        int64     `json:"id"`
	BranchID  int64     `json:"branchId"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Unit      string    `json:"unit,omitempty"`
	Category  string    `json:"category,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProductInput carries the writable product fields.
type ProductInput struct {
	BranchID int64
	Name     string
	Price    float64
	Unit     string
	Category string
	Active   bool
}

// Products provides access to the products table.
type Products struct {
	Pool *pgxpool.Pool
}

const productColumns = `id, branch_id, name, price, unit, category, active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.BranchID, &p.Name, &p.Price, &p.Unit,
		&p.Category, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// Insert creates a product.
func (r Products) Insert(ctx context.Context, in ProductInput) (Product, error) {
	row := r.Pool.QueryRow(ctx, `
		INSERT INTO products (branch_id, name, price, unit, category, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+productColumns,
		in.BranchID, in.Name, in.Price, in.Unit, in.Category, in.Active)
	return scanProduct(row)
}

// Update rewrites a product.
func (r Products) Update(ctx context.Context, id int64, in ProductInput) (Product, error) {
	row := r.Pool.QueryRow(ctx, `
		UPDATE products SET branch_id = $2, name = $3, price = $4, unit = $5,
			category = $6, active = $7, updated_at = now()
		WHERE id = $1
		RETURNING `+productColumns,
		id, in.BranchID, in.Name, in.Price, in.Unit, in.Category, in.Active)
	return scanProduct(row)
}

// Get fetches a product by id.
func (r Products) Get(ctx context.Context, id int64) (Product, error) {
	row := r.Pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

// Delete removes a product.
func (r Products) Delete(ctx context.Context, id int64) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListByBranch returns a page of a branch's products plus the unpaged
// total. When activeOnly is set, retired products are skipped. limit 0
// disables paging.
func (r Products) ListByBranch(ctx context.Context, branchID int64, activeOnly bool, limit, offset int) ([]Product, int64, error) {
	var total int64
	err := r.Pool.QueryRow(ctx, `
		SELECT count(*) FROM products
		WHERE branch_id = $1 AND (NOT $2::boolean OR active)`,
		branchID, activeOnly).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.Pool.Query(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE branch_id = $1 AND (NOT $2::boolean OR active)
		ORDER BY category, name
		LIMIT NULLIF($3::int, 0) OFFSET $4`,
		branchID, activeOnly, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}
