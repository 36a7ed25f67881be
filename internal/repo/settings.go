package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// settingsID is the single row holding society-wide settings.
const settingsID = "global"

// Owner is one society owner listed in settings.
type Owner struct {
	Name   string `json:"name"`
	Mobile string `json:"mobile,omitempty"`
}

// Settings holds the society-wide configuration row.
type Settings struct {
	SocietyName string    `json:"societyName"`
	Location    string    `json:"location,omitempty"`
	OwnerMobile string    `json:"ownerMobile,omitempty"`
	Language    string    `json:"language"`
	Owners      []Owner   `json:"owners"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SettingsInput carries the writable settings fields.
type SettingsInput struct {
	SocietyName string
	Location    string
	OwnerMobile string
	Language    string
	Owners      []Owner
}

// SettingsStore provides access to the settings row.
type SettingsStore struct {
	Pool *pgxpool.Pool
}

func scanSettings(row pgx.Row) (Settings, error) {
	var (
		s   Settings
		raw []byte
	)
	err := row.Scan(&s.SocietyName, &s.Location, &s.OwnerMobile, &s.Language, &raw, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return Settings{}, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &s.Owners); err != nil {
			return Settings{}, fmt.Errorf("decode settings owners: %w", err)
		}
	}
	return s, nil
}

// Get fetches the society settings. The migration seeds the row, so a
// missing row means the schema was never applied.
func (r SettingsStore) Get(ctx context.Context) (Settings, error) {
	row := r.Pool.QueryRow(ctx, `
		SELECT society_name, location, owner_mobile, language, owners, created_at, updated_at
		FROM settings WHERE id = $1`, settingsID)
	return scanSettings(row)
}

// Save upserts the society settings.
func (r SettingsStore) Save(ctx context.Context, in SettingsInput) (Settings, error) {
	owners := in.Owners
	if owners == nil {
		owners = []Owner{}
	}
	raw, err := json.Marshal(owners)
	if err != nil {
		return Settings{}, fmt.Errorf("encode settings owners: %w", err)
	}
	row := r.Pool.QueryRow(ctx, `
		INSERT INTO settings (id, society_name, location, owner_mobile, language, owners)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			society_name = EXCLUDED.society_name,
			location = EXCLUDED.location,
			owner_mobile = EXCLUDED.owner_mobile,
			language = EXCLUDED.language,
			owners = EXCLUDED.owners,
			updated_at = now()
		RETURNING society_name, location, owner_mobile, language, owners, created_at, updated_at`,
		settingsID, in.SocietyName, in.Location, in.OwnerMobile, in.Language, raw)
	return scanSettings(row)
}
