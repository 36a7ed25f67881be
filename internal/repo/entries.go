package repo

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is a persisted milk collection entry. Rate and Amount are the
// snapshot computed at save time and are never recomputed by readers.
type Entry struct {
	ID          int64     `json:"id"`
	BranchID    int64     `json:"branchId"`
	FarmerID    int64     `json:"farmerId"`
	Date        time.Time `json:"date"`
	Shift       string    `json:"shift"`
	MilkType    string    `json:"milkType"`
	Quantity    float64   `json:"quantity"`
	Fat         float64   `json:"fat"`
	SNF         float64   `json:"snf"`
	Rate        float64   `json:"rate"`
	Amount      float64   `json:"amount"`
	QualityNote string    `json:"qualityNote,omitempty"`
	RecordedAt  time.Time `json:"recordedAt"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// EntryInput carries the fields written on create or update.
type EntryInput struct {
	BranchID    int64
	FarmerID    int64
	Date        time.Time
	Shift       string
	MilkType    string
	Quantity    float64
	Fat         float64
	SNF         float64
	Rate        float64
	Amount      float64
	QualityNote string
}

// Entries provides access to the entries table.
type Entries struct {
	Pool *pgxpool.Pool
}

const entryColumns = `id, branch_id, farmer_id, entry_date, shift, milk_type,
	quantity, fat, snf, rate, amount, quality_note, recorded_at, created_at, updated_at`

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.BranchID, &e.FarmerID, &e.Date, &e.Shift, &e.MilkType,
		&e.Quantity, &e.Fat, &e.SNF, &e.Rate, &e.Amount, &e.QualityNote,
		&e.RecordedAt, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func collectEntries(rows pgx.Rows) ([]Entry, error) {
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Insert stores a new entry and returns the persisted row.
func (r Entries) Insert(ctx context.Context, in EntryInput) (Entry, error) {
	row := r.Pool.QueryRow(ctx, `
		INSERT INTO entries (branch_id, farmer_id, entry_date, shift, milk_type,
			quantity, fat, snf, rate, amount, quality_note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+entryColumns,
		in.BranchID, in.FarmerID, in.Date, in.Shift, in.MilkType,
		in.Quantity, in.Fat, in.SNF, in.Rate, in.Amount, in.QualityNote)
	return scanEntry(row)
}

// Update rewrites an existing entry, including its snapshot rate and amount.
func (r Entries) Update(ctx context.Context, id int64, in EntryInput) (Entry, error) {
	row := r.Pool.QueryRow(ctx, `
		UPDATE entries SET branch_id = $2, farmer_id = $3, entry_date = $4, shift = $5,
			milk_type = $6, quantity = $7, fat = $8, snf = $9, rate = $10, amount = $11,
			quality_note = $12, updated_at = now()
		WHERE id = $1
		RETURNING `+entryColumns,
		id, in.BranchID, in.FarmerID, in.Date, in.Shift, in.MilkType,
		in.Quantity, in.Fat, in.SNF, in.Rate, in.Amount, in.QualityNote)
	return scanEntry(row)
}

// Get fetches a single entry by id.
func (r Entries) Get(ctx context.Context, id int64) (Entry, error) {
	row := r.Pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = $1`, id)
	return scanEntry(row)
}

// Delete removes an entry.
func (r Entries) Delete(ctx context.Context, id int64) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM entries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListForDate returns a branch's entries for one collection date. Shift and
// farmerID are optional filters ("" and 0 mean any).
func (r Entries) ListForDate(ctx context.Context, branchID int64, date time.Time, shift string, farmerID int64) ([]Entry, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT `+entryColumns+` FROM entries
		WHERE branch_id = $1 AND entry_date = $2
			AND ($3 = '' OR lower(shift) = lower($3))
			AND ($4::bigint = 0 OR farmer_id = $4)
		ORDER BY id`,
		branchID, date, shift, farmerID)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

// ListRange returns entries whose date falls inside the inclusive window.
// branchID 0 fetches across branches; callers re-filter in memory anyway.
func (r Entries) ListRange(ctx context.Context, branchID int64, from, to time.Time) ([]Entry, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT `+entryColumns+` FROM entries
		WHERE entry_date BETWEEN $2 AND $3
			AND ($1::bigint = 0 OR branch_id = $1)
		ORDER BY entry_date, id`,
		branchID, from, to)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

// ListRangeByFarmer returns one farmer's entries inside the inclusive window.
func (r Entries) ListRangeByFarmer(ctx context.Context, farmerID int64, from, to time.Time) ([]Entry, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT `+entryColumns+` FROM entries
		WHERE farmer_id = $1 AND entry_date BETWEEN $2 AND $3
		ORDER BY entry_date, id`,
		farmerID, from, to)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

// FarmerIDsWithEntry reports which farmers delivered for a date and shift.
// Used by the absence scan to find who did not.
func (r Entries) FarmerIDsWithEntry(ctx context.Context, branchID int64, date time.Time, shift string) (map[int64]bool, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT DISTINCT farmer_id FROM entries
		WHERE branch_id = $1 AND entry_date = $2 AND lower(shift) = lower($3)`,
		branchID, date, shift)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = true
	}
	return out, rows.Err()
}
