// Package scheduler runs periodic maintenance jobs with robfig/cron.
//
// Two jobs exist: refreshing OAuth tokens before they expire and
// re-enqueueing imports whose queue task was lost.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/mrlokans/gallery/internal/config"
	"github.com/mrlokans/gallery/internal/entities"
	"github.com/mrlokans/gallery/internal/logger"
)

const (
	JobCredentialRefresh = "credential_refresh"
	JobStaleImports      = "stale_imports"
)

// TaskQueue is the part of the task client the jobs use.
type TaskQueue interface {
	EnqueueImport(ctx context.Context, importID uint) (string, error)
	EnqueueCredentialRefresh(ctx context.Context) (string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// StaleImports finds pending imports and records their new task ids.
type StaleImports interface {
	ListStalePending(cutoff time.Time) ([]entities.Import, error)
	SetTaskID(id uint, taskID string) error
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronSchedule checks a standard five-field cron expression.
func ValidateCronSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// Scheduler owns the cron instance and guards against overlapping runs.
type Scheduler struct {
	cfg     config.Scheduler
	queue   TaskQueue
	imports StaleImports
	log     *logger.Logger
	now     func() time.Time

	cron       *cron.Cron
	entries    map[string]cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	active     map[string]bool
	cancelFunc context.CancelFunc
}

func New(cfg config.Scheduler, queue TaskQueue, imports StaleImports) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		queue:   queue,
		imports: imports,
		log:     logger.WithFields(logger.Fields{logger.FieldComponent: "scheduler"}),
		now:     time.Now,
		cron:    cron.New(cron.WithParser(parser)),
		entries: make(map[string]cron.EntryID),
		active:  make(map[string]bool),
	}
}

// Start schedules the jobs. Empty schedules disable the matching job.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if !s.cfg.Enabled {
		s.log.Info("[SCHEDULER] disabled")
		return nil
	}

	jobCtx, cancel := context.WithCancel(ctx)
	jobs := map[string]struct {
		schedule string
		run      func(context.Context) error
	}{
		JobCredentialRefresh: {s.cfg.CredentialRefreshSchedule, s.RefreshCredentials},
		JobStaleImports: {s.cfg.StaleImportSchedule, func(ctx context.Context) error {
			_, err := s.RecoverStaleImports(ctx)
			return err
		}},
	}
	for name, job := range jobs {
		if job.schedule == "" {
			continue
		}
		if err := ValidateCronSchedule(job.schedule); err != nil {
			cancel()
			return fmt.Errorf("invalid cron schedule '%s' for %s: %w", job.schedule, name, err)
		}
		name, run := name, job.run
		id, err := s.cron.AddFunc(job.schedule, func() { s.runGuarded(jobCtx, name, run) })
		if err != nil {
			cancel()
			return fmt.Errorf("failed to schedule %s: %w", name, err)
		}
		s.entries[name] = id
		s.log.WithFields(logger.Fields{"job": name, "schedule": job.schedule}).Info("[SCHEDULER] job scheduled")
	}

	s.cancelFunc = cancel
	s.cron.Start()
	s.isRunning = true

	go func() {
		<-jobCtx.Done()
		s.Stop()
	}()
	return nil
}

// Stop stops accepting new runs and waits for running jobs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	if s.cancelFunc != nil {
		s.cancelFunc()
		s.cancelFunc = nil
	}
	s.isRunning = false
	s.mu.Unlock()

	// Running jobs take the lock when they finish, so wait outside it.
	<-s.cron.Stop().Done()
	s.log.Info("[SCHEDULER] stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when job runs next, or nil when it is not scheduled.
func (s *Scheduler) NextRun(job string) *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.entries[job]
	if !ok || !s.isRunning {
		return nil
	}
	next := s.cron.Entry(id).Next
	return &next
}

func (s *Scheduler) runGuarded(ctx context.Context, name string, run func(context.Context) error) {
	s.mu.Lock()
	if s.active[name] {
		s.mu.Unlock()
		s.log.WithField("job", name).Info("[SCHEDULER] skipped (previous run still active)")
		return
	}
	s.active[name] = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.active, name)
		s.mu.Unlock()
	}()

	if err := run(ctx); err != nil {
		s.log.WithField("job", name).WithError(err).Error("[SCHEDULER] job failed")
	}
}

// RefreshCredentials enqueues a credential refresh task.
func (s *Scheduler) RefreshCredentials(ctx context.Context) error {
	taskID, err := s.queue.EnqueueCredentialRefresh(ctx)
	if err != nil {
		return err
	}
	s.log.WithField(logger.FieldTaskID, taskID).Debug("[SCHEDULER] credential refresh enqueued")
	return nil
}

// RecoverStaleImports re-enqueues pending imports whose queue task failed
// or no longer exists. Imports still waiting in the queue are left alone.
func (s *Scheduler) RecoverStaleImports(ctx context.Context) (int, error) {
	after := s.cfg.StaleImportAfter
	if after <= 0 {
		after = 30 * time.Minute
	}

	stale, err := s.imports.ListStalePending(s.now().Add(-after))
	if err != nil {
		return 0, fmt.Errorf("failed to list stale imports: %w", err)
	}

	requeued := 0
	for _, imp := range stale {
		if ctx.Err() != nil {
			return requeued, ctx.Err()
		}
		log := s.log.WithField(logger.FieldImportID, imp.ID)

		if imp.TaskID != "" {
			status, err := s.queue.Status(ctx, imp.TaskID)
			if err != nil {
				log.WithError(err).Warn("[SCHEDULER] failed to read task status")
				continue
			}
			if status != backlite.TaskStatusFailure && status != backlite.TaskStatusNotFound {
				continue
			}
		}

		taskID, err := s.queue.EnqueueImport(ctx, imp.ID)
		if err != nil {
			log.WithError(err).Error("[SCHEDULER] failed to re-enqueue import")
			continue
		}
		if err := s.imports.SetTaskID(imp.ID, taskID); err != nil {
			log.WithError(err).Warn("[SCHEDULER] failed to record task id")
		}
		log.WithField(logger.FieldTaskID, taskID).Info("[SCHEDULER] re-enqueued stale import")
		requeued++
	}
	return requeued, nil
}
