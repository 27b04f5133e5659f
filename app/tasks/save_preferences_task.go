package tasks

import (
	"context"
	"log/slog"

	"github.com/feedtuner/feedtuner/app/prefs"
)

// SavePreferencesTask persists one profile's preference sets. It reads
// the registry's live state at execution time, so mutations that
// arrived after scheduling are folded into the same save and an older
// pending save is naturally superseded.
type SavePreferencesTask struct {
	Task
	registry *prefs.Registry
}

func NewSavePreferencesTask(profileID string, registry *prefs.Registry) *SavePreferencesTask {
	return &SavePreferencesTask{
		Task:     NewTask(TaskTypeSavePreferences, profileID),
		registry: registry,
	}
}

func (t *SavePreferencesTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.registry.Flush(t.ProfileID); err != nil {
		return err
	}

	slog.Info("Task completed",
		"type", "SavePreferences",
		"profile", t.ProfileID,
		"duration", t.GetDuration())

	return nil
}
