package prefs

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/feedtuner/feedtuner/app/database"
	"github.com/feedtuner/feedtuner/app/topic"
)

// Saver schedules an asynchronous durable save for a profile. The
// tasks scheduler implements it; the registry never blocks a mutating
// caller on store I/O.
type Saver interface {
	ScheduleSave(profileID string)
}

// Snapshot is an immutable copy of one profile's preference sets,
// handed to readers and to the feed pipeline. Topics are sorted for
// deterministic output.
type Snapshot struct {
	ProfileID string
	Preferred []topic.Topic
	Blocked   []topic.Topic
	Version   uint64
}

type profileState struct {
	mu          sync.RWMutex
	preferred   map[topic.Topic]struct{}
	blocked     map[topic.Topic]struct{}
	version     uint64
	savePending bool
	lastSaveErr error

	// saveMu serializes store writes for this profile. Flush holds it
	// across SavePreferences so two overlapping saves cannot commit out
	// of order and let a stale snapshot land last.
	saveMu sync.Mutex
}

// Registry owns the live preference sets, one per active profile. It
// is the only writer; the store holds the serialized form. Mutations
// update memory first, bump the profile version, and schedule an
// asynchronous save. A failed save leaves memory authoritative.
type Registry struct {
	repo database.PreferenceRepository

	mu       sync.RWMutex
	profiles map[string]*profileState
	saver    Saver
	onChange func(profileID string, version uint64)
}

func NewRegistry(repo database.PreferenceRepository) *Registry {
	return &Registry{
		repo:     repo,
		profiles: make(map[string]*profileState),
	}
}

// SetSaver wires the async persistence scheduler. Must be called
// before mutations are served; without a saver, mutations stay pending
// until Flush is called directly.
func (r *Registry) SetSaver(saver Saver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saver = saver
}

// SetOnChange registers a change notification callback, invoked after
// every effective mutation with the profile ID and its new version.
func (r *Registry) SetOnChange(fn func(profileID string, version uint64)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

// AddPreferred normalizes the topic, evicts it from the blocked set if
// present, inserts it into the preferred set and schedules a save.
// Returns the updated snapshot.
func (r *Registry) AddPreferred(profileID, raw string) (Snapshot, error) {
	return r.mutate(profileID, raw, func(state *profileState, t topic.Topic) bool {
		_, wasBlocked := state.blocked[t]
		_, wasPreferred := state.preferred[t]
		delete(state.blocked, t)
		state.preferred[t] = struct{}{}
		return wasBlocked || !wasPreferred
	})
}

// RemovePreferred removes the topic from the preferred set. Removing
// an absent topic is a no-op, not an error.
func (r *Registry) RemovePreferred(profileID, raw string) (Snapshot, error) {
	return r.mutate(profileID, raw, func(state *profileState, t topic.Topic) bool {
		_, present := state.preferred[t]
		delete(state.preferred, t)
		return present
	})
}

// AddBlocked is symmetric to AddPreferred with the sets swapped: a
// blocked topic is always evicted from preferred first.
func (r *Registry) AddBlocked(profileID, raw string) (Snapshot, error) {
	return r.mutate(profileID, raw, func(state *profileState, t topic.Topic) bool {
		_, wasPreferred := state.preferred[t]
		_, wasBlocked := state.blocked[t]
		delete(state.preferred, t)
		state.blocked[t] = struct{}{}
		return wasPreferred || !wasBlocked
	})
}

// RemoveBlocked removes the topic from the blocked set; no-op if absent.
func (r *Registry) RemoveBlocked(profileID, raw string) (Snapshot, error) {
	return r.mutate(profileID, raw, func(state *profileState, t topic.Topic) bool {
		_, present := state.blocked[t]
		delete(state.blocked, t)
		return present
	})
}

// Preferred returns an immutable copy of the preferred set.
func (r *Registry) Preferred(profileID string) ([]topic.Topic, error) {
	snapshot, err := r.Snapshot(profileID)
	if err != nil {
		return nil, err
	}
	return snapshot.Preferred, nil
}

// Blocked returns an immutable copy of the blocked set.
func (r *Registry) Blocked(profileID string) ([]topic.Topic, error) {
	snapshot, err := r.Snapshot(profileID)
	if err != nil {
		return nil, err
	}
	return snapshot.Blocked, nil
}

// Snapshot returns an immutable copy of both sets. Safe for any number
// of concurrent readers; an in-flight mutation is observed either
// fully applied or not at all.
func (r *Registry) Snapshot(profileID string) (Snapshot, error) {
	state, err := r.getOrLoad(profileID)
	if err != nil {
		return Snapshot{}, err
	}

	state.mu.RLock()
	defer state.mu.RUnlock()
	return r.snapshotLocked(profileID, state), nil
}

// Version returns the profile's mutation counter. Collaborators can
// poll it to detect changes without holding a snapshot.
func (r *Registry) Version(profileID string) (uint64, error) {
	state, err := r.getOrLoad(profileID)
	if err != nil {
		return 0, err
	}

	state.mu.RLock()
	defer state.mu.RUnlock()
	return state.version, nil
}

// LastSaveError reports the most recent persistence failure for the
// profile, or nil. Mutations never fail on store errors; this is the
// pollable warning channel for the UI.
func (r *Registry) LastSaveError(profileID string) error {
	r.mu.RLock()
	state, ok := r.profiles[profileID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	state.mu.RLock()
	defer state.mu.RUnlock()
	return state.lastSaveErr
}

// Flush persists the profile's current sets. Called by the save task;
// it reads the live state at execution time, so a save that was
// scheduled earlier naturally persists the latest mutations. Saves for
// one profile are serialized across the store write: a mutation that
// arrives while a write is in flight schedules a fresh save, and that
// save runs after the current one, overwriting it (last-committed-wins).
func (r *Registry) Flush(profileID string) error {
	r.mu.RLock()
	state, ok := r.profiles[profileID]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	state.saveMu.Lock()
	defer state.saveMu.Unlock()

	state.mu.Lock()
	preferred := topicsOf(state.preferred)
	blocked := topicsOf(state.blocked)
	version := state.version
	state.savePending = false
	state.mu.Unlock()

	err := r.repo.SavePreferences(profileID, topicStrings(preferred), topicStrings(blocked))

	state.mu.Lock()
	if err != nil {
		state.lastSaveErr = err
		// Keep the profile dirty so the reconcile sweep and the
		// shutdown flush pick it up again after the task's retries run
		// out.
		state.savePending = true
	} else {
		state.lastSaveErr = nil
	}
	state.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to persist preferences for profile '%s' (version %d): %w", profileID, version, err)
	}

	return nil
}

// PendingSave reports whether a save is queued for the profile.
func (r *Registry) PendingSave(profileID string) bool {
	r.mu.RLock()
	state, ok := r.profiles[profileID]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	state.mu.RLock()
	defer state.mu.RUnlock()
	return state.savePending
}

// DirtyProfiles returns the profiles with a save still pending. The
// scheduler uses it to re-enqueue saves that were dropped on a full
// queue.
func (r *Registry) DirtyProfiles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var dirty []string
	for profileID, state := range r.profiles {
		state.mu.RLock()
		pending := state.savePending
		state.mu.RUnlock()
		if pending {
			dirty = append(dirty, profileID)
		}
	}
	return dirty
}

func (r *Registry) ProfileCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.profiles)
}

// Warm preloads a profile from the store into the in-memory cache.
func (r *Registry) Warm(profileID string) error {
	_, err := r.getOrLoad(profileID)
	return err
}

func (r *Registry) mutate(profileID, raw string, apply func(*profileState, topic.Topic) bool) (Snapshot, error) {
	t, err := topic.New(raw)
	if err != nil {
		return Snapshot{}, fmt.Errorf("topic '%s': %w", raw, err)
	}

	state, err := r.getOrLoad(profileID)
	if err != nil {
		return Snapshot{}, err
	}

	state.mu.Lock()
	changed := apply(state, t)
	var scheduleSave bool
	if changed {
		state.version++
		if !state.savePending {
			state.savePending = true
			scheduleSave = true
		}
	}
	snapshot := r.snapshotLocked(profileID, state)
	state.mu.Unlock()

	if changed {
		r.mu.RLock()
		saver := r.saver
		onChange := r.onChange
		r.mu.RUnlock()

		if scheduleSave && saver != nil {
			saver.ScheduleSave(profileID)
		}
		if onChange != nil {
			onChange(profileID, snapshot.Version)
		}
	}

	return snapshot, nil
}

func (r *Registry) getOrLoad(profileID string) (*profileState, error) {
	r.mu.RLock()
	state, ok := r.profiles[profileID]
	r.mu.RUnlock()
	if ok {
		return state, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if state, ok := r.profiles[profileID]; ok {
		return state, nil
	}

	preferred, blocked, err := r.repo.GetPreferences(profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile '%s': %w", profileID, err)
	}

	state = &profileState{
		preferred: make(map[topic.Topic]struct{}, len(preferred)),
		blocked:   make(map[topic.Topic]struct{}, len(blocked)),
	}

	for _, raw := range preferred {
		t, err := topic.New(raw)
		if err != nil {
			slog.Warn("Skipping invalid stored preferred topic", "profile", profileID, "topic", raw)
			continue
		}
		state.preferred[t] = struct{}{}
	}
	for _, raw := range blocked {
		t, err := topic.New(raw)
		if err != nil {
			slog.Warn("Skipping invalid stored blocked topic", "profile", profileID, "topic", raw)
			continue
		}
		// Stored state predates the mutual-exclusion check; blocked wins.
		delete(state.preferred, t)
		state.blocked[t] = struct{}{}
	}

	r.profiles[profileID] = state

	slog.Debug("Profile loaded", "profile", profileID,
		"preferred", len(state.preferred), "blocked", len(state.blocked))

	return state, nil
}

// snapshotLocked copies both sets; callers hold at least a read lock
// on the profile state.
func (r *Registry) snapshotLocked(profileID string, state *profileState) Snapshot {
	return Snapshot{
		ProfileID: profileID,
		Preferred: topicsOf(state.preferred),
		Blocked:   topicsOf(state.blocked),
		Version:   state.version,
	}
}

func topicsOf(set map[topic.Topic]struct{}) []topic.Topic {
	topics := make([]topic.Topic, 0, len(set))
	for t := range set {
		topics = append(topics, t)
	}
	slices.Sort(topics)
	return topics
}

func topicStrings(topics []topic.Topic) []string {
	out := make([]string, len(topics))
	for i, t := range topics {
		out[i] = t.String()
	}
	return out
}
