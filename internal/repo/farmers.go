package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Farmer is a registered member delivering milk to a branch.
type Farmer struct {
	ID        int64     `json:"id"`
	BranchID  int64     `json:"branchId"`
	Name      string    `json:"name"`
	MilkType  string    `json:"milkType"`
	Phone     string    `json:"phone,omitempty"`
	Shift     string    `json:"shift"`
	Status    string    `json:"status"`
	ManualID  string    `json:"manualId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FarmerInput carries the writable farmer fields.
type FarmerInput struct {
	BranchID int64
	Name     string
	MilkType string
	Phone    string
	Shift    string
	Status   string
	ManualID string
}

// Farmers provides access to the farmers table.
type Farmers struct {
	Pool *pgxpool.Pool
}

const farmerColumns = `id, branch_id, name, milk_type, phone, shift, status, manual_id, created_at, updated_at`

func scanFarmer(row pgx.Row) (Farmer, error) {
	var f Farmer
	err := row.Scan(&f.ID, &f.BranchID, &f.Name, &f.MilkType, &f.Phone,
		&f.Shift, &f.Status, &f.ManualID, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

func collectFarmers(rows pgx.Rows) ([]Farmer, error) {
	defer rows.Close()
	var out []Farmer
	for rows.Next() {
		f, err := scanFarmer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Insert registers a new farmer.
func (r Farmers) Insert(ctx context.Context, in FarmerInput) (Farmer, error) {
	row := r.Pool.QueryRow(ctx, `
		INSERT INTO farmers (branch_id, name, milk_type, phone, shift, status, manual_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+farmerColumns,
		in.BranchID, in.Name, in.MilkType, in.Phone, in.Shift, in.Status, in.ManualID)
	return scanFarmer(row)
}

// Update rewrites a farmer's profile.
func (r Farmers) Update(ctx context.Context, id int64, in FarmerInput) (Farmer, error) {
	row := r.Pool.QueryRow(ctx, `
		UPDATE farmers SET branch_id = $2, name = $3, milk_type = $4, phone = $5,
			shift = $6, status = $7, manual_id = $8, updated_at = now()
		WHERE id = $1
		RETURNING `+farmerColumns,
		id, in.BranchID, in.Name, in.MilkType, in.Phone, in.Shift, in.Status, in.ManualID)
	return scanFarmer(row)
}

// Get fetches a farmer by id.
func (r Farmers) Get(ctx context.Context, id int64) (Farmer, error) {
	row := r.Pool.QueryRow(ctx, `SELECT `+farmerColumns+` FROM farmers WHERE id = $1`, id)
	return scanFarmer(row)
}

// Delete removes a farmer record. Their entries are kept; reports label the
// dangling reference as an unknown farmer instead of dropping the data.
func (r Farmers) Delete(ctx context.Context, id int64) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM farmers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListByBranch returns a page of a branch's farmers, optionally restricted
// by status, plus the unpaged total. limit 0 disables paging.
func (r Farmers) ListByBranch(ctx context.Context, branchID int64, status string, limit, offset int) ([]Farmer, int64, error) {
	var total int64
	err := r.Pool.QueryRow(ctx, `
		SELECT count(*) FROM farmers
		WHERE branch_id = $1 AND ($2 = '' OR status = $2)`,
		branchID, status).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.Pool.Query(ctx, `
		SELECT `+farmerColumns+` FROM farmers
		WHERE branch_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY name
		LIMIT NULLIF($3::int, 0) OFFSET $4`,
		branchID, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	out, err := collectFarmers(rows)
	return out, total, err
}

// ListAll returns every farmer across branches, for cross-branch reports.
func (r Farmers) ListAll(ctx context.Context) ([]Farmer, error) {
	rows, err := r.Pool.Query(ctx, `SELECT `+farmerColumns+` FROM farmers ORDER BY branch_id, name`)
	if err != nil {
		return nil, err
	}
	return collectFarmers(rows)
}
