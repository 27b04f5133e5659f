package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feedtuner/feedtuner/app/cfg"
	"github.com/feedtuner/feedtuner/app/database"
	"github.com/feedtuner/feedtuner/app/feed"
	"github.com/feedtuner/feedtuner/app/prefs"
	"github.com/feedtuner/feedtuner/app/taxonomy"
	"github.com/feedtuner/feedtuner/app/topic"
)

// maxFeedPayload bounds the RSS/Atom documents accepted for
// personalization.
const maxFeedPayload = 10 << 20 // 10 MiB

func NewHandler(registry *prefs.Registry, personalizer *feed.Personalizer,
	parser ParserInterface, tax *taxonomy.Taxonomy,
	prefRepo database.PreferenceRepository, settingsRepo database.SettingsRepository) *Handler {
	return &Handler{
		registry:     registry,
		personalizer: personalizer,
		parser:       parser,
		taxonomy:     tax,
		prefRepo:     prefRepo,
		settingsRepo: settingsRepo,
	}
}

func (h *Handler) GetTaxonomy(c *gin.Context) {
	categories := h.taxonomy.Categories()

	out := make([]gin.H, 0, len(categories))
	for _, category := range categories {
		topics := make([]string, len(category.Topics))
		for i, t := range category.Topics {
			topics[i] = t.String()
		}
		out = append(out, gin.H{
			"name":   category.Name,
			"icon":   category.Icon,
			"topics": topics,
		})
	}

	c.JSON(http.StatusOK, gin.H{"categories": out})
}

func (h *Handler) GetPreferences(c *gin.Context) {
	profileID := c.Param("id")

	snapshot, err := h.registry.Snapshot(profileID)
	if err != nil {
		h.renderError(c, profileID, "get_preferences", err)
		return
	}

	c.JSON(http.StatusOK, h.snapshotResponse(snapshot))
}

func (h *Handler) AddPreferred(c *gin.Context) {
	h.mutate(c, h.registry.AddPreferred, "add_preferred", bodyTopic)
}

func (h *Handler) RemovePreferred(c *gin.Context) {
	h.mutate(c, h.registry.RemovePreferred, "remove_preferred", paramTopic)
}

func (h *Handler) AddBlocked(c *gin.Context) {
	h.mutate(c, h.registry.AddBlocked, "add_blocked", bodyTopic)
}

func (h *Handler) RemoveBlocked(c *gin.Context) {
	h.mutate(c, h.registry.RemoveBlocked, "remove_blocked", paramTopic)
}

// PersonalizeFeed parses the posted RSS/Atom document and returns the
// visible items ordered by relevance against the profile's current
// preference snapshot.
func (h *Handler) PersonalizeFeed(c *gin.Context) {
	profileID := c.Param("id")

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxFeedPayload))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}
	if len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty feed payload"})
		return
	}

	title, items, err := h.parser.Run(data)
	if err != nil {
		slog.Error("Feed parse error", "profile", profileID, "error", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Failed to parse feed payload"})
		return
	}

	snapshot, err := h.registry.Snapshot(profileID)
	if err != nil {
		h.renderError(c, profileID, "personalize_feed", err)
		return
	}

	decisions := h.personalizer.Evaluate(items, snapshot)

	c.Header("X-Preference-Version", strconv.FormatUint(snapshot.Version, 10))
	c.JSON(http.StatusOK, feedResponse{
		Title:   title,
		Total:   len(items),
		Visible: len(decisions),
		Items:   decisions,
	})
}

func (h *Handler) GetSettings(c *gin.Context) {
	profileID := c.Param("id")

	settings, err := h.settingsRepo.GetSettings(profileID)
	if err != nil {
		h.renderError(c, profileID, "get_settings", err)
		return
	}

	c.JSON(http.StatusOK, settings)
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	profileID := c.Param("id")

	var settings database.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid settings payload"})
		return
	}

	if err := h.settingsRepo.SaveSettings(profileID, settings); err != nil {
		if errors.Is(err, database.ErrStoreUnavailable) {
			h.renderError(c, profileID, "update_settings", err)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, settings)
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := gin.H{
		"status":    "ok",
		"version":   cfg.Get().Version,
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if count, err := h.prefRepo.GetProfileCount(); err == nil {
		health["profiles"] = count
	} else {
		health["status"] = "degraded"
		health["store_error"] = err.Error()
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := gin.H{
		"cached_profiles":     h.registry.ProfileCount(),
		"taxonomy_categories": h.taxonomy.CategoryCount(),
	}

	if count, err := h.prefRepo.GetProfileCount(); err == nil {
		stats["stored_profiles"] = count
	}

	c.JSON(http.StatusOK, stats)
}

type topicExtractor func(c *gin.Context) (string, bool)

func bodyTopic(c *gin.Context) (string, bool) {
	var req topicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body must be {\"topic\": \"...\"}"})
		return "", false
	}
	return req.Topic, true
}

func paramTopic(c *gin.Context) (string, bool) {
	raw := c.Param("topic")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing topic parameter"})
		return "", false
	}
	return raw, true
}

func (h *Handler) mutate(c *gin.Context, op func(string, string) (prefs.Snapshot, error),
	operation string, extract topicExtractor) {
	profileID := c.Param("id")

	raw, ok := extract(c)
	if !ok {
		return
	}

	snapshot, err := op(profileID, raw)
	if err != nil {
		if errors.Is(err, topic.ErrInvalid) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid topic", "topic": raw})
			return
		}
		h.renderError(c, profileID, operation, err)
		return
	}

	c.JSON(http.StatusOK, h.snapshotResponse(snapshot))
}

func (h *Handler) snapshotResponse(snapshot prefs.Snapshot) preferencesResponse {
	resp := preferencesResponse{
		ProfileID: snapshot.ProfileID,
		Preferred: topicStrings(snapshot.Preferred),
		Blocked:   topicStrings(snapshot.Blocked),
		Version:   snapshot.Version,
	}

	if err := h.registry.LastSaveError(snapshot.ProfileID); err != nil {
		resp.SaveError = err.Error()
	}

	return resp
}

func (h *Handler) renderError(c *gin.Context, profileID, operation string, err error) {
	slog.Error("Request failed", "operation", operation, "profile", profileID, "error", err)

	if errors.Is(err, database.ErrStoreUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Preference store unavailable"})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
}

func topicStrings(topics []topic.Topic) []string {
	out := make([]string, len(topics))
	for i, t := range topics {
		out[i] = t.String()
	}
	return out
}

