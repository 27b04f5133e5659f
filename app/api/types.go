package api

import (
	"github.com/feedtuner/feedtuner/app/database"
	"github.com/feedtuner/feedtuner/app/feed"
	"github.com/feedtuner/feedtuner/app/prefs"
	"github.com/feedtuner/feedtuner/app/taxonomy"
)

// ParserInterface decouples the handler from the ingest implementation.
type ParserInterface interface {
	Run(data []byte) (string, []feed.ContentItem, error)
}

type Handler struct {
	registry     *prefs.Registry
	personalizer *feed.Personalizer
	parser       ParserInterface
	taxonomy     *taxonomy.Taxonomy
	prefRepo     database.PreferenceRepository
	settingsRepo database.SettingsRepository
}

// topicRequest is the body of preference mutations.
type topicRequest struct {
	Topic string `json:"topic" binding:"required"`
}

// preferencesResponse is the immutable snapshot rendered to the UI
// after reads and mutations. SaveError carries the non-fatal warning
// for the most recent failed persistence attempt.
type preferencesResponse struct {
	ProfileID string   `json:"profile_id"`
	Preferred []string `json:"preferred"`
	Blocked   []string `json:"blocked"`
	Version   uint64   `json:"version"`
	SaveError string   `json:"save_error,omitempty"`
}

// feedResponse is the personalized listing for one feed payload.
type feedResponse struct {
	Title   string          `json:"title"`
	Total   int             `json:"total"`
	Visible int             `json:"visible"`
	Items   []feed.Decision `json:"items"`
}
