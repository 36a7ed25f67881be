package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Branch is one collection centre of the cooperative.
type Branch struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Location      string    `json:"location,omitempty"`
	MemberName    string    `json:"memberName,omitempty"`
	MemberMobile  string    `json:"memberMobile,omitempty"`
	ContactNumber string    `json:"contactNumber,omitempty"`
	Type          string    `json:"type"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// BranchInput carries the writable branch fields.
type BranchInput struct {
	Name          string
	Location      string
	MemberName    string
	MemberMobile  string
	ContactNumber string
	Type          string
}

// Branches provides access to the branches table.
type Branches struct {
	Pool *pgxpool.Pool
}

const branchColumns = `id, name, location, member_name, member_mobile, contact_number, type, created_at, updated_at`

func scanBranch(row pgx.Row) (Branch, error) {
	var b Branch
	err := row.Scan(&b.ID, &b.Name, &b.Location, &b.MemberName, &b.MemberMobile,
		&b.ContactNumber, &b.Type, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// Insert creates a branch.
func (r Branches) Insert(ctx context.Context, in BranchInput) (Branch, error) {
	row := r.Pool.QueryRow(ctx, `
		INSERT INTO branches (name, location, member_name, member_mobile, contact_number, type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+branchColumns,
		in.Name, in.Location, in.MemberName, in.MemberMobile, in.ContactNumber, in.Type)
	return scanBranch(row)
}

// Update rewrites a branch.
func (r Branches) Update(ctx context.Context, id int64, in BranchInput) (Branch, error) {
	row := r.Pool.QueryRow(ctx, `
		UPDATE branches SET name = $2, location = $3, member_name = $4,
			member_mobile = $5, contact_number = $6, type = $7, updated_at = now()
		WHERE id = $1
		RETURNING `+branchColumns,
		id, in.Name, in.Location, in.MemberName, in.MemberMobile, in.ContactNumber, in.Type)
	return scanBranch(row)
}

// Get fetches a branch by id.
func (r Branches) Get(ctx context.Context, id int64) (Branch, error) {
	row := r.Pool.QueryRow(ctx, `SELECT `+branchColumns+` FROM branches WHERE id = $1`, id)
	return scanBranch(row)
}

// Delete removes a branch and cascades to its farmers, entries and rates.
func (r Branches) Delete(ctx context.Context, id int64) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM branches WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// List returns every branch.
func (r Branches) List(ctx context.Context) ([]Branch, error) {
	rows, err := r.Pool.Query(ctx, `SELECT `+branchColumns+` FROM branches ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// IDs returns every branch id, used by the absence scan when no explicit
// branch list is configured.
func (r Branches) IDs(ctx context.Context) ([]int64, error) {
	rows, err := r.Pool.Query(ctx, `SELECT id FROM branches ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
