package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/famboard/famboard-api/internal/models"
)

// SettingsRepository provides persistence for per-family display settings.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository creates the repository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetByFamily returns the stored settings for a family.
func (r *SettingsRepository) GetByFamily(ctx context.Context, familyID string) (*models.DisplaySettings, error) {
	const query = `SELECT family_id, night_mode_start, night_mode_end, volume, tts_voice, tts_speed, updated_at
FROM display_settings WHERE family_id = $1`
	var settings models.DisplaySettings
	if err := r.db.GetContext(ctx, &settings, query, familyID); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Upsert writes the settings row, replacing any previous values.
func (r *SettingsRepository) Upsert(ctx context.Context, settings *models.DisplaySettings) error {
	settings.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO display_settings (family_id, night_mode_start, night_mode_end, volume, tts_voice, tts_speed, updated_at)
VALUES (:family_id, :night_mode_start, :night_mode_end, :volume, :tts_voice, :tts_speed, :updated_at)
ON CONFLICT (family_id) DO UPDATE SET night_mode_start = EXCLUDED.night_mode_start, night_mode_end = EXCLUDED.night_mode_end,
volume = EXCLUDED.volume, tts_voice = EXCLUDED.tts_voice, tts_speed = EXCLUDED.tts_speed, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, settings); err != nil {
		return fmt.Errorf("upsert display settings: %w", err)
	}
	return nil
}
