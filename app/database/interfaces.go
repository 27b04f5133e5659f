package database

// PreferenceRepository is the durable owner of the serialized
// preference sets. Saves are transactional: a reader never observes a
// partially written set.
type PreferenceRepository interface {
	// GetPreferences returns the stored preferred and blocked topics
	// for a profile. A never-seen profile yields two empty slices, not
	// an error.
	GetPreferences(profileID string) (preferred []string, blocked []string, err error)

	// SavePreferences replaces the stored sets for a profile in a
	// single transaction. Last write wins.
	SavePreferences(profileID string, preferred []string, blocked []string) error

	// ListProfiles returns every profile ID with stored preferences.
	ListProfiles() ([]string, error)

	GetProfileCount() (int, error)
}

// SettingsRepository persists scalar client settings. These live in the
// same database but the preference engine never reads them.
type SettingsRepository interface {
	// GetSettings returns the stored settings for a profile, or the
	// defaults for a never-seen profile.
	GetSettings(profileID string) (Settings, error)

	SaveSettings(profileID string, settings Settings) error
}
