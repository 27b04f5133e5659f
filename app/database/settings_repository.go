package database

import (
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// SQLiteSettingsRepository implements SettingsRepository on top of the
// profile_settings table.
type SQLiteSettingsRepository struct {
	db       *DB
	validate *validator.Validate
}

var _ SettingsRepository = (*SQLiteSettingsRepository)(nil)

func NewSettingsRepository(db *DB) *SQLiteSettingsRepository {
	return &SQLiteSettingsRepository{
		db:       db,
		validate: validator.New(),
	}
}

func (r *SQLiteSettingsRepository) GetSettings(profileID string) (Settings, error) {
	settings := DefaultSettings()

	err := r.db.QueryRow(`
		SELECT download_threads, default_quality, wifi_only
		FROM profile_settings
		WHERE profile_id = ?
	`, profileID).Scan(&settings.DownloadThreads, &settings.DefaultQuality, &settings.WifiOnly)

	if err == sql.ErrNoRows {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, storeErr("failed to load settings", err)
	}

	return settings, nil
}

func (r *SQLiteSettingsRepository) SaveSettings(profileID string, settings Settings) error {
	if err := r.validate.Struct(settings); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	_, err := r.db.Exec(`
		INSERT INTO profile_settings (profile_id, download_threads, default_quality, wifi_only, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (profile_id) DO UPDATE SET
			download_threads = excluded.download_threads,
			default_quality = excluded.default_quality,
			wifi_only = excluded.wifi_only,
			updated_at = CURRENT_TIMESTAMP
	`, profileID, settings.DownloadThreads, settings.DefaultQuality, settings.WifiOnly)

	if err != nil {
		return storeErr("failed to save settings", err)
	}

	return nil
}
