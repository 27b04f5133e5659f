package prefs

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/feedtuner/feedtuner/app/topic"
)

// fakeRepo is an in-memory PreferenceRepository. failSave makes every
// save fail to exercise the non-fatal warning path.
type fakeRepo struct {
	mu        sync.Mutex
	preferred map[string][]string
	blocked   map[string][]string
	saveCalls int
	failSave  bool
	failLoad  bool
}

var errFake = errors.New("fake store failure")

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		preferred: make(map[string][]string),
		blocked:   make(map[string][]string),
	}
}

func (f *fakeRepo) GetPreferences(profileID string) ([]string, []string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLoad {
		return nil, nil, errFake
	}
	return f.preferred[profileID], f.blocked[profileID], nil
}

func (f *fakeRepo) SavePreferences(profileID string, preferred []string, blocked []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveCalls++
	if f.failSave {
		return errFake
	}
	f.preferred[profileID] = preferred
	f.blocked[profileID] = blocked
	return nil
}

func (f *fakeRepo) ListProfiles() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var profiles []string
	for id := range f.preferred {
		profiles = append(profiles, id)
	}
	return profiles, nil
}

func (f *fakeRepo) GetProfileCount() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.preferred), nil
}

// syncSaver flushes immediately on schedule, so tests observe the
// persisted state without a worker pool.
type syncSaver struct {
	registry *Registry
}

func (s *syncSaver) ScheduleSave(profileID string) {
	s.registry.Flush(profileID)
}

func newTestRegistry(t *testing.T) (*Registry, *fakeRepo) {
	t.Helper()
	repo := newFakeRepo()
	registry := NewRegistry(repo)
	registry.SetSaver(&syncSaver{registry: registry})
	return registry, repo
}

func contains(topics []topic.Topic, s string) bool {
	for _, t := range topics {
		if t.String() == s {
			return true
		}
	}
	return false
}

func TestRegistry_MutualExclusion(t *testing.T) {
	registry, _ := newTestRegistry(t)

	if _, err := registry.AddBlocked("p1", "asmr"); err != nil {
		t.Fatalf("AddBlocked failed: %v", err)
	}
	snapshot, err := registry.AddPreferred("p1", "ASMR")
	if err != nil {
		t.Fatalf("AddPreferred failed: %v", err)
	}

	if !contains(snapshot.Preferred, "asmr") {
		t.Error("Expected 'asmr' in preferred set after AddPreferred")
	}
	if contains(snapshot.Blocked, "asmr") {
		t.Error("'asmr' must not remain blocked after AddPreferred")
	}

	// And the symmetric direction
	snapshot, err = registry.AddBlocked("p1", "asmr")
	if err != nil {
		t.Fatalf("AddBlocked failed: %v", err)
	}
	if contains(snapshot.Preferred, "asmr") {
		t.Error("'asmr' must not remain preferred after AddBlocked")
	}
	if !contains(snapshot.Blocked, "asmr") {
		t.Error("Expected 'asmr' in blocked set after AddBlocked")
	}
}

func TestRegistry_SetAccessors(t *testing.T) {
	registry, _ := newTestRegistry(t)

	if _, err := registry.AddPreferred("p1", "jazz"); err != nil {
		t.Fatalf("AddPreferred failed: %v", err)
	}
	if _, err := registry.AddBlocked("p1", "jazz"); err != nil {
		t.Fatalf("AddBlocked failed: %v", err)
	}

	preferred, err := registry.Preferred("p1")
	if err != nil {
		t.Fatalf("Preferred failed: %v", err)
	}
	if contains(preferred, "jazz") {
		t.Error("Preferred() must not contain a topic moved to blocked")
	}

	blocked, err := registry.Blocked("p1")
	if err != nil {
		t.Fatalf("Blocked failed: %v", err)
	}
	if !contains(blocked, "jazz") {
		t.Error("Blocked() should contain the blocked topic")
	}
}

func TestRegistry_AddPreferredIsIdempotent(t *testing.T) {
	registry, _ := newTestRegistry(t)

	first, err := registry.AddPreferred("p1", "jazz")
	if err != nil {
		t.Fatalf("AddPreferred failed: %v", err)
	}
	second, err := registry.AddPreferred("p1", "jazz")
	if err != nil {
		t.Fatalf("Second AddPreferred failed: %v", err)
	}

	if len(second.Preferred) != len(first.Preferred) {
		t.Errorf("Second add changed set size: %d vs %d", len(second.Preferred), len(first.Preferred))
	}
	if second.Version != first.Version {
		t.Errorf("No-op add bumped version: %d vs %d", second.Version, first.Version)
	}
}

func TestRegistry_RemoveAbsentIsNoop(t *testing.T) {
	registry, _ := newTestRegistry(t)

	if _, err := registry.RemovePreferred("p1", "never-added"); err != nil {
		t.Errorf("Removing absent topic should not error, got: %v", err)
	}
	if _, err := registry.RemoveBlocked("p1", "never-added"); err != nil {
		t.Errorf("Removing absent blocked topic should not error, got: %v", err)
	}
}

func TestRegistry_InvalidTopicRejected(t *testing.T) {
	registry, _ := newTestRegistry(t)

	tests := []string{"", "   ", "!!!"}
	for _, raw := range tests {
		if _, err := registry.AddPreferred("p1", raw); !errors.Is(err, topic.ErrInvalid) {
			t.Errorf("AddPreferred(%q) error = %v, expected ErrInvalid", raw, err)
		}
		if _, err := registry.AddBlocked("p1", raw); !errors.Is(err, topic.ErrInvalid) {
			t.Errorf("AddBlocked(%q) error = %v, expected ErrInvalid", raw, err)
		}
	}
}

func TestRegistry_NormalizationBeforeSetCheck(t *testing.T) {
	registry, _ := newTestRegistry(t)

	if _, err := registry.AddPreferred("p1", "Lo-Fi  Beats"); err != nil {
		t.Fatalf("AddPreferred failed: %v", err)
	}
	snapshot, err := registry.AddPreferred("p1", "  lo-fi beats ")
	if err != nil {
		t.Fatalf("Second AddPreferred failed: %v", err)
	}

	if len(snapshot.Preferred) != 1 {
		t.Errorf("Differently-cased inputs should collapse to one entry, got %v", snapshot.Preferred)
	}
}

func TestRegistry_MutationsPersist(t *testing.T) {
	registry, repo := newTestRegistry(t)

	if _, err := registry.AddPreferred("p1", "jazz"); err != nil {
		t.Fatalf("AddPreferred failed: %v", err)
	}
	if _, err := registry.AddBlocked("p1", "asmr"); err != nil {
		t.Fatalf("AddBlocked failed: %v", err)
	}

	preferred, blocked, err := repo.GetPreferences("p1")
	if err != nil {
		t.Fatalf("GetPreferences failed: %v", err)
	}
	if len(preferred) != 1 || preferred[0] != "jazz" {
		t.Errorf("Persisted preferred = %v, expected [jazz]", preferred)
	}
	if len(blocked) != 1 || blocked[0] != "asmr" {
		t.Errorf("Persisted blocked = %v, expected [asmr]", blocked)
	}
}

func TestRegistry_SaveFailureIsNonFatal(t *testing.T) {
	registry, repo := newTestRegistry(t)
	repo.failSave = true

	snapshot, err := registry.AddPreferred("p1", "jazz")
	if err != nil {
		t.Fatalf("Mutation must not fail on store error, got: %v", err)
	}
	if !contains(snapshot.Preferred, "jazz") {
		t.Error("In-memory state must remain authoritative after failed save")
	}

	if registry.LastSaveError("p1") == nil {
		t.Error("Expected LastSaveError to report the failed save")
	}

	// The retried save clears the warning
	repo.failSave = false
	if err := registry.Flush("p1"); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if err := registry.LastSaveError("p1"); err != nil {
		t.Errorf("Expected save error to clear after successful save, got: %v", err)
	}
}

func TestRegistry_FailedSaveKeepsProfileDirty(t *testing.T) {
	registry, repo := newTestRegistry(t)
	repo.failSave = true

	if _, err := registry.AddPreferred("p1", "jazz"); err != nil {
		t.Fatalf("AddPreferred failed: %v", err)
	}

	// The syncSaver already ran the failing flush; the profile must
	// stay dirty so the reconcile sweep can retry it.
	if !registry.PendingSave("p1") {
		t.Error("Failed save should leave the profile pending")
	}
	dirty := registry.DirtyProfiles()
	if len(dirty) != 1 || dirty[0] != "p1" {
		t.Errorf("DirtyProfiles = %v, expected [p1]", dirty)
	}

	// The sweep's retry persists and clears the dirty mark
	repo.failSave = false
	if err := registry.Flush("p1"); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if registry.PendingSave("p1") {
		t.Error("Successful save should clear the pending mark")
	}
	preferred, _, err := repo.GetPreferences("p1")
	if err != nil {
		t.Fatalf("GetPreferences failed: %v", err)
	}
	if len(preferred) != 1 || preferred[0] != "jazz" {
		t.Errorf("Persisted preferred = %v, expected [jazz]", preferred)
	}
}

func TestRegistry_LoadFailureSurfacesStoreError(t *testing.T) {
	repo := newFakeRepo()
	repo.failLoad = true
	registry := NewRegistry(repo)

	if _, err := registry.AddPreferred("p1", "jazz"); !errors.Is(err, errFake) {
		t.Errorf("Expected load failure to propagate, got: %v", err)
	}
}

func TestRegistry_LoadsStoredState(t *testing.T) {
	repo := newFakeRepo()
	repo.preferred["p1"] = []string{"jazz", "linux"}
	repo.blocked["p1"] = []string{"asmr"}
	registry := NewRegistry(repo)

	snapshot, err := registry.Snapshot("p1")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(snapshot.Preferred) != 2 || len(snapshot.Blocked) != 1 {
		t.Errorf("Loaded snapshot = %+v, expected 2 preferred / 1 blocked", snapshot)
	}
}

func TestRegistry_VersionAdvancesOnMutation(t *testing.T) {
	registry, _ := newTestRegistry(t)

	v0, err := registry.Version("p1")
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}

	if _, err := registry.AddPreferred("p1", "jazz"); err != nil {
		t.Fatalf("AddPreferred failed: %v", err)
	}

	v1, err := registry.Version("p1")
	if err != nil {
		t.Fatalf("Version failed: %v", err)
	}
	if v1 <= v0 {
		t.Errorf("Version should advance on mutation: %d -> %d", v0, v1)
	}
}

func TestRegistry_OnChangeNotification(t *testing.T) {
	registry, _ := newTestRegistry(t)

	var mu sync.Mutex
	var notified []uint64
	registry.SetOnChange(func(profileID string, version uint64) {
		mu.Lock()
		defer mu.Unlock()
		notified = append(notified, version)
	})

	if _, err := registry.AddPreferred("p1", "jazz"); err != nil {
		t.Fatalf("AddPreferred failed: %v", err)
	}
	// No-op mutation must not notify
	if _, err := registry.AddPreferred("p1", "jazz"); err != nil {
		t.Fatalf("AddPreferred failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(notified) != 1 {
		t.Errorf("Expected exactly one notification, got %d", len(notified))
	}
}

func TestRegistry_ConcurrentMutationsAllPersist(t *testing.T) {
	registry, repo := newTestRegistry(t)

	const workers = 8
	const topicsPerWorker = 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < topicsPerWorker; i++ {
				raw := fmt.Sprintf("topic %d %d", w, i)
				if _, err := registry.AddPreferred("p1", raw); err != nil {
					t.Errorf("AddPreferred(%q) failed: %v", raw, err)
				}
			}
		}(w)
	}
	wg.Wait()

	// Flush any save left pending by coalescing
	if err := registry.Flush("p1"); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	snapshot, err := registry.Snapshot("p1")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(snapshot.Preferred) != workers*topicsPerWorker {
		t.Errorf("Lost updates: %d topics in memory, expected %d",
			len(snapshot.Preferred), workers*topicsPerWorker)
	}

	preferred, _, err := repo.GetPreferences("p1")
	if err != nil {
		t.Fatalf("GetPreferences failed: %v", err)
	}
	if len(preferred) != workers*topicsPerWorker {
		t.Errorf("Lost persisted updates: %d topics stored, expected %d",
			len(preferred), workers*topicsPerWorker)
	}
}

func TestRegistry_SnapshotIsACopy(t *testing.T) {
	registry, _ := newTestRegistry(t)

	if _, err := registry.AddPreferred("p1", "jazz"); err != nil {
		t.Fatalf("AddPreferred failed: %v", err)
	}

	snapshot, err := registry.Snapshot("p1")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	snapshot.Preferred[0] = "mutated"

	fresh, err := registry.Snapshot("p1")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if fresh.Preferred[0] != "jazz" {
		t.Error("Mutating a returned snapshot must not affect registry state")
	}
}

func TestRegistry_CoalescesPendingSaves(t *testing.T) {
	repo := newFakeRepo()
	registry := NewRegistry(repo)

	// Collect scheduled saves without executing them
	var mu sync.Mutex
	var scheduled []string
	registry.SetSaver(saverFunc(func(profileID string) {
		mu.Lock()
		defer mu.Unlock()
		scheduled = append(scheduled, profileID)
	}))

	if _, err := registry.AddPreferred("p1", "jazz"); err != nil {
		t.Fatalf("AddPreferred failed: %v", err)
	}
	if _, err := registry.AddPreferred("p1", "metal"); err != nil {
		t.Fatalf("AddPreferred failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(scheduled) != 1 {
		t.Errorf("Expected one coalesced save, got %d", len(scheduled))
	}
}

type saverFunc func(profileID string)

func (f saverFunc) ScheduleSave(profileID string) { f(profileID) }

// slowRepo stalls the first store write until released, simulating a
// save still in flight when later mutations arrive.
type slowRepo struct {
	*fakeRepo
	entered  chan struct{}
	release  chan struct{}
	gateOnce sync.Once
}

func (s *slowRepo) SavePreferences(profileID string, preferred []string, blocked []string) error {
	gated := false
	s.gateOnce.Do(func() { gated = true })
	if gated {
		s.entered <- struct{}{}
		<-s.release
	}
	return s.fakeRepo.SavePreferences(profileID, preferred, blocked)
}

func TestRegistry_OverlappingSavesCommitLatestState(t *testing.T) {
	repo := newFakeRepo()
	slow := &slowRepo{
		fakeRepo: repo,
		entered:  make(chan struct{}),
		release:  make(chan struct{}),
	}
	registry := NewRegistry(slow)

	if _, err := registry.AddPreferred("p1", "old"); err != nil {
		t.Fatalf("AddPreferred failed: %v", err)
	}

	firstDone := make(chan error, 1)
	go func() { firstDone <- registry.Flush("p1") }()
	<-slow.entered // first save is inside the store write

	// A mutation lands while that write is in flight and a second
	// flush follows it. The second flush must run after the first and
	// overwrite it, so the acknowledged topic survives.
	if _, err := registry.AddPreferred("p1", "new"); err != nil {
		t.Fatalf("AddPreferred failed: %v", err)
	}
	secondDone := make(chan error, 1)
	go func() { secondDone <- registry.Flush("p1") }()

	close(slow.release)
	if err := <-firstDone; err != nil {
		t.Fatalf("First flush failed: %v", err)
	}
	if err := <-secondDone; err != nil {
		t.Fatalf("Second flush failed: %v", err)
	}

	preferred, _, err := repo.GetPreferences("p1")
	if err != nil {
		t.Fatalf("GetPreferences failed: %v", err)
	}
	for _, want := range []string{"old", "new"} {
		found := false
		for _, p := range preferred {
			if p == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Durable state lost topic %q: stored = %v", want, preferred)
		}
	}
}
