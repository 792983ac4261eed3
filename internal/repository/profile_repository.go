package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/rpattn/catalog-export/internal/db"
	"github.com/rpattn/catalog-export/internal/domain"
)

const selectProfileByHash = `
SELECT id, name, format, filters, fields, is_active, client_user_id, currency_id,
       hash, last_downloaded_at, created_at, updated_at
FROM export_profiles
WHERE hash = $1`

const insertProfile = `
INSERT INTO export_profiles (name, format, filters, fields, is_active, client_user_id, currency_id, hash)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at, updated_at`

// profileRepository implements ProfileRepository and ProfileWriter
type profileRepository struct {
	pool db.Pool
}

// NewProfileRepository creates a new export profile repository
func NewProfileRepository(pool db.Pool) ProfileRepository {
	return &profileRepository{pool: pool}
}

// NewProfileWriter creates a writer over the same table
func NewProfileWriter(pool db.Pool) ProfileWriter {
	return &profileRepository{pool: pool}
}

// GetByHash loads a profile by its download slug. Inactive profiles are
// returned too; callers decide whether they are reachable.
func (r *profileRepository) GetByHash(ctx context.Context, hash string) (domain.ExportProfile, error) {
	var (
		profile     domain.ExportProfile
		format      string
		filtersJSON []byte
		fieldsJSON  []byte
	)
	err := r.pool.QueryRow(ctx, selectProfileByHash, hash).Scan(
		&profile.ID,
		&profile.Name,
		&format,
		&filtersJSON,
		&fieldsJSON,
		&profile.IsActive,
		&profile.ClientUserID,
		&profile.CurrencyID,
		&profile.Hash,
		&profile.LastDownloadedAt,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ExportProfile{}, ErrNotFound
		}
		return domain.ExportProfile{}, eris.Wrap(err, "repository: get export profile")
	}
	profile.Format = domain.ExportFormat(format)

	if profile.Filters, err = domain.FilterGroupFromJSON(filtersJSON); err != nil {
		return domain.ExportProfile{}, eris.Wrapf(err, "repository: decode filters of profile %d", profile.ID)
	}
	if profile.Fields, err = domain.SelectedFieldsFromJSON(fieldsJSON); err != nil {
		return domain.ExportProfile{}, eris.Wrapf(err, "repository: decode fields of profile %d", profile.ID)
	}
	return profile, nil
}

// MarkDownloaded stamps last_downloaded_at after a completed download.
func (r *profileRepository) MarkDownloaded(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE export_profiles SET last_downloaded_at = $2 WHERE id = $1`,
		id, at,
	)
	if err != nil {
		return eris.Wrap(err, "repository: mark profile downloaded")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Create inserts a profile. A fresh download hash is generated when none is set.
func (r *profileRepository) Create(ctx context.Context, profile domain.ExportProfile) (domain.ExportProfile, error) {
	if profile.Hash == "" {
		profile.Hash = domain.NewDownloadHash()
	}
	filtersJSON, err := profile.FiltersToJSON()
	if err != nil {
		return domain.ExportProfile{}, eris.Wrap(err, "repository: encode profile filters")
	}
	fieldsJSON, err := profile.FieldsToJSON()
	if err != nil {
		return domain.ExportProfile{}, eris.Wrap(err, "repository: encode profile fields")
	}

	err = r.pool.QueryRow(ctx, insertProfile,
		profile.Name,
		string(profile.Format),
		filtersJSON,
		fieldsJSON,
		profile.IsActive,
		profile.ClientUserID,
		profile.CurrencyID,
		profile.Hash,
	).Scan(&profile.ID, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		return domain.ExportProfile{}, eris.Wrap(err, "repository: create export profile")
	}
	return profile, nil
}
