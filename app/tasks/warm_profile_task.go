package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/feedtuner/feedtuner/app/prefs"
)

// WarmProfileTask preloads a stored profile into the registry cache so
// the first interactive read does not pay the load.
type WarmProfileTask struct {
	Task
	registry *prefs.Registry
}

func NewWarmProfileTask(profileID string, registry *prefs.Registry) *WarmProfileTask {
	return &WarmProfileTask{
		Task:     NewTask(TaskTypeWarmProfile, profileID),
		registry: registry,
	}
}

func (t *WarmProfileTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.registry.Warm(t.ProfileID); err != nil {
		return fmt.Errorf("failed to warm profile: %w", err)
	}

	slog.Info("Task completed",
		"type", "WarmProfile",
		"profile", t.ProfileID,
		"duration", t.GetDuration())

	return nil
}
