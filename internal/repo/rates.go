package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/backend-dairy/internal/rate"
)

// RateRecord is one saved pricing configuration for a (branch, milk type,
// method) triple. At most one record per (branch, milk type) has IsActive
// set; the rest are drafts. The engine itself never sees this flag.
type RateRecord struct {
	ID        int64       `json:"id"`
	BranchID  int64       `json:"branchId"`
	MilkType  string      `json:"milkType"`
	Method    string      `json:"method"`
	Config    rate.Config `json:"config"`
	IsActive  bool        `json:"isActive"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Rates provides access to the rates table.
type Rates struct {
	Pool *pgxpool.Pool
}

const rateColumns = `id, branch_id, milk_type, method, config, is_active, created_at, updated_at`

func scanRate(row pgx.Row) (RateRecord, error) {
	var (
		rec RateRecord
		raw []byte
	)
	err := row.Scan(&rec.ID, &rec.BranchID, &rec.MilkType, &rec.Method, &raw,
		&rec.IsActive, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return RateRecord{}, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rec.Config); err != nil {
			return RateRecord{}, fmt.Errorf("decode rate config %d: %w", rec.ID, err)
		}
	}
	return rec, nil
}

// GetActive returns the live configuration for a branch and milk type.
// pgx.ErrNoRows means no method has been activated yet.
func (r Rates) GetActive(ctx context.Context, branchID int64, milkType string) (RateRecord, error) {
	row := r.Pool.QueryRow(ctx, `
		SELECT `+rateColumns+` FROM rates
		WHERE branch_id = $1 AND milk_type = $2 AND is_active`,
		branchID, milkType)
	return scanRate(row)
}

// List returns every saved configuration (active and drafts) for a branch
// and milk type, one row per method.
func (r Rates) List(ctx context.Context, branchID int64, milkType string) ([]RateRecord, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT `+rateColumns+` FROM rates
		WHERE branch_id = $1 AND milk_type = $2
		ORDER BY method`,
		branchID, milkType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RateRecord
	for rows.Next() {
		rec, err := scanRate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SaveDraft upserts a method's table without touching which method is live.
func (r Rates) SaveDraft(ctx context.Context, branchID int64, milkType, method string, cfg rate.Config) (RateRecord, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return RateRecord{}, fmt.Errorf("encode rate config: %w", err)
	}
	row := r.Pool.QueryRow(ctx, `
		INSERT INTO rates (branch_id, milk_type, method, config)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (branch_id, milk_type, method)
			DO UPDATE SET config = EXCLUDED.config, updated_at = now()
		RETURNING `+rateColumns,
		branchID, milkType, method, raw)
	return scanRate(row)
}

// Activate saves the method's table and makes it the live configuration,
// deactivating every other method for the pair in the same transaction.
func (r Rates) Activate(ctx context.Context, branchID int64, milkType, method string, cfg rate.Config) (RateRecord, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return RateRecord{}, fmt.Errorf("encode rate config: %w", err)
	}

	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return RateRecord{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `
		UPDATE rates SET is_active = FALSE, updated_at = now()
		WHERE branch_id = $1 AND milk_type = $2 AND is_active`,
		branchID, milkType); err != nil {
		return RateRecord{}, err
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO rates (branch_id, milk_type, method, config, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		ON CONFLICT (branch_id, milk_type, method)
			DO UPDATE SET config = EXCLUDED.config, is_active = TRUE, updated_at = now()
		RETURNING `+rateColumns,
		branchID, milkType, method, raw)
	rec, err := scanRate(row)
	if err != nil {
		return RateRecord{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return RateRecord{}, err
	}
	return rec, nil
}

// Deactivate turns off the live configuration without activating another,
// leaving the pair unpriced (new entries will save with a zero rate).
func (r Rates) Deactivate(ctx context.Context, branchID int64, milkType string) error {
	_, err := r.Pool.Exec(ctx, `
		UPDATE rates SET is_active = FALSE, updated_at = now()
		WHERE branch_id = $1 AND milk_type = $2 AND is_active`,
		branchID, milkType)
	return err
}
