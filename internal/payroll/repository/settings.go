package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/maplepay/maplepay-backend/internal/payroll/domain"
	"github.com/maplepay/maplepay-backend/pkg/database"
	"github.com/maplepay/maplepay-backend/pkg/errors"
	"github.com/maplepay/maplepay-backend/pkg/logger"
)

// SettingsRepository persists versioned company settings snapshots.
// Each save writes a new version row; loads always return the latest.
type SettingsRepository struct {
	db  *database.DB
	log *logger.Logger
}

// NewSettingsRepository creates a settings repository
func NewSettingsRepository(db *database.DB, log *logger.Logger) *SettingsRepository {
	return &SettingsRepository{
		db:  db,
		log: log.WithComponent("settings_repository"),
	}
}

// FetchCompanySettings loads the latest settings snapshot for the
// tenant. A tenant without settings gets a not-found error; callers
// refuse to run payroll without configuration.
func (r *SettingsRepository) FetchCompanySettings(ctx context.Context, tenantID string) (*domain.CompanySettings, error) {
	var settings *domain.CompanySettings

	err := r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		var row struct {
			TenantID string `db:"tenant_id"`
			Version  int    `db:"version"`
			Snapshot []byte `db:"snapshot"`
		}

		query := `
			SELECT tenant_id, version, snapshot
			FROM company_settings
			WHERE tenant_id = $1
			ORDER BY version DESC
			LIMIT 1`
		if err := r.db.GetContext(ctx, &row, query, tenantID); err != nil {
			if err == sql.ErrNoRows {
				return errors.NotFound("company settings")
			}
			return database.MapPQError(err)
		}

		settings = &domain.CompanySettings{}
		if err := json.Unmarshal(row.Snapshot, settings); err != nil {
			return errors.DataIntegrity("company settings snapshot is not valid JSON")
		}
		settings.TenantID = row.TenantID
		settings.Version = row.Version
		return nil
	})
	if err != nil {
		return nil, err
	}

	return settings, nil
}

// SaveCompanySettings writes a new settings version. The expected
// version must match the latest stored version; a mismatch means a
// concurrent save won and the caller should reload.
func (r *SettingsRepository) SaveCompanySettings(ctx context.Context, settings *domain.CompanySettings) (*domain.CompanySettings, error) {
	snapshot, err := json.Marshal(settings)
	if err != nil {
		return nil, errors.Internal("failed to serialize settings snapshot")
	}

	var saved *domain.CompanySettings

	err = r.db.WithTenantRLS(ctx, settings.TenantID, func(ctx context.Context) error {
		var current sql.NullInt64
		versionQuery := `
			SELECT MAX(version)
			FROM company_settings
			WHERE tenant_id = $1`
		if err := r.db.GetContext(ctx, &current, versionQuery, settings.TenantID); err != nil {
			return database.MapPQError(err)
		}

		if current.Valid && int(current.Int64) != settings.Version {
			return errors.Conflict("settings were modified by another request, reload and retry")
		}

		next := settings.Version + 1
		insert := `
			INSERT INTO company_settings (tenant_id, version, snapshot, created_at)
			VALUES ($1, $2, $3, NOW())`
		if _, err := r.db.ExecContext(ctx, insert, settings.TenantID, next, snapshot); err != nil {
			return database.MapPQError(err)
		}

		copied := *settings
		copied.Version = next
		saved = &copied
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.log.Info().
		Str("tenant_id", saved.TenantID).
		Int("version", saved.Version).
		Msg("company settings saved")
	return saved, nil
}
