package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/feedtuner/feedtuner/app/cfg"
	"github.com/feedtuner/feedtuner/app/database"
	"github.com/feedtuner/feedtuner/app/prefs"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)
var _ prefs.Saver = (*Scheduler)(nil)

// Scheduler runs the background persistence work: a bounded task queue
// drained by a small worker pool, plus a reconcile ticker that
// re-enqueues saves dropped on a full queue. It implements prefs.Saver
// so registry mutations never block on store I/O.
type Scheduler struct {
	registry    *prefs.Registry
	prefRepo    database.PreferenceRepository
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface
}

func NewScheduler(registry *prefs.Registry, prefRepo database.PreferenceRepository) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := cfg.Get()

	return &Scheduler{
		registry:    registry,
		prefRepo:    prefRepo,
		interval:    time.Duration(cfg.SchedulerInterval) * time.Second,
		workerCount: cfg.WorkerCount,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, cfg.QueueSize),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueuePendingSaves()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)

	// Workers are gone; persist anything still dirty synchronously so a
	// clean shutdown never loses an acknowledged mutation.
	for _, profileID := range s.registry.DirtyProfiles() {
		if err := s.registry.Flush(profileID); err != nil {
			slog.Error("Failed to flush profile on shutdown", "profile", profileID, "error", err)
		}
	}
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

// ScheduleSave implements prefs.Saver. A dropped enqueue is not fatal:
// the profile stays dirty and the reconcile ticker retries it.
func (s *Scheduler) ScheduleSave(profileID string) {
	task := NewSavePreferencesTask(profileID, s.registry)
	if err := s.EnqueueTask(task); err != nil {
		slog.Warn("Failed to enqueue SavePreferencesTask", "profile", profileID, "error", err)
	}
}

func (s *Scheduler) enqueueStartupTasks() {
	profiles, err := s.prefRepo.ListProfiles()
	if err != nil {
		slog.Warn("Failed to list profiles for warm-up", "error", err)
		return
	}
	if len(profiles) == 0 {
		slog.Debug("No stored profiles to warm up")
		return
	}

	slog.Debug("Warming up stored profiles", "count", len(profiles))

	for _, profileID := range profiles {
		warmTask := NewWarmProfileTask(profileID, s.registry)
		if err := s.EnqueueTask(warmTask); err != nil {
			slog.Warn("Failed to enqueue WarmProfileTask", "profile", profileID, "error", err)
		}
	}
}

func (s *Scheduler) enqueuePendingSaves() {
	dirty := s.registry.DirtyProfiles()
	if len(dirty) == 0 {
		return
	}

	slog.Debug("Re-enqueuing pending saves", "count", len(dirty))

	for _, profileID := range dirty {
		task := NewSavePreferencesTask(profileID, s.registry)
		if err := s.EnqueueTask(task); err != nil {
			slog.Warn("Failed to enqueue SavePreferencesTask", "profile", profileID, "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
			if retryDelay > 30*time.Second {
				retryDelay = 30 * time.Second
			}

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "profile", task.GetProfileID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

			go func() {
				time.Sleep(retryDelay)
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				default:
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}
