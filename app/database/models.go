package database

// Preference kind values as stored in the topic_preferences table.
const (
	KindPreferred = "preferred"
	KindBlocked   = "blocked"
)

// Settings holds per-profile scalar client settings. Validation rules
// are enforced on save.
type Settings struct {
	DownloadThreads int    `json:"download_threads" validate:"min=1,max=8"`
	DefaultQuality  string `json:"default_quality" validate:"oneof=auto 144p 360p 480p 720p 1080p 1440p 2160p"`
	WifiOnly        bool   `json:"wifi_only"`
}

// DefaultSettings returns the settings applied to a profile that has
// never saved any.
func DefaultSettings() Settings {
	return Settings{
		DownloadThreads: 4,
		DefaultQuality:  "auto",
		WifiOnly:        false,
	}
}
