package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/gallery/internal/config"
	"github.com/mrlokans/gallery/internal/database/imports"
	"github.com/mrlokans/gallery/internal/entities"
)

type fakeQueue struct {
	statuses  map[string]backlite.TaskStatus
	enqueued  []uint
	refreshes int
}

func (q *fakeQueue) EnqueueImport(_ context.Context, importID uint) (string, error) {
	q.enqueued = append(q.enqueued, importID)
	return fmt.Sprintf("task-%d-new", importID), nil
}

func (q *fakeQueue) EnqueueCredentialRefresh(context.Context) (string, error) {
	q.refreshes++
	return "refresh-task", nil
}

func (q *fakeQueue) Status(_ context.Context, taskID string) (backlite.TaskStatus, error) {
	if status, ok := q.statuses[taskID]; ok {
		return status, nil
	}
	return backlite.TaskStatusNotFound, nil
}

func setupImports(t *testing.T) *imports.Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "scheduler.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.Import{}, &entities.ImportFailure{}, &entities.Photo{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return imports.NewRepository(db)
}

func TestRecoverStaleImports(t *testing.T) {
	repo := setupImports(t)

	create := func(album, taskID string) *entities.Import {
		imp := &entities.Import{UserID: 1, Provider: "flickr", ExternalAlbumID: album, TaskID: taskID}
		require.NoError(t, repo.Create(imp))
		return imp
	}
	queued := create("queued", "t-queued")
	failed := create("failed", "t-failed")
	lost := create("lost", "t-lost")
	never := create("never", "")
	running := create("running", "t-running")
	require.NoError(t, repo.Start(running.ID))

	queue := &fakeQueue{statuses: map[string]backlite.TaskStatus{
		"t-queued":  backlite.TaskStatusPending,
		"t-failed":  backlite.TaskStatusFailure,
		"t-running": backlite.TaskStatusRunning,
	}}
	s := New(config.Scheduler{StaleImportAfter: time.Minute}, queue, repo)
	s.now = func() time.Time { return time.Now().Add(time.Hour) }

	count, err := s.RecoverStaleImports(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.ElementsMatch(t, []uint{failed.ID, lost.ID, never.ID}, queue.enqueued)
	assert.NotContains(t, queue.enqueued, queued.ID)

	got, err := repo.GetByID(lost.ID)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("task-%d-new", lost.ID), got.TaskID)
}

func TestRecoverStaleImports_IgnoresFreshImports(t *testing.T) {
	repo := setupImports(t)
	require.NoError(t, repo.Create(&entities.Import{UserID: 1, Provider: "flickr", ExternalAlbumID: "a"}))

	queue := &fakeQueue{}
	s := New(config.Scheduler{StaleImportAfter: time.Hour}, queue, repo)

	count, err := s.RecoverStaleImports(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, queue.enqueued)
}

func TestRefreshCredentials(t *testing.T) {
	queue := &fakeQueue{}
	s := New(config.Scheduler{}, queue, setupImports(t))

	require.NoError(t, s.RefreshCredentials(context.Background()))
	assert.Equal(t, 1, queue.refreshes)
}

func TestStartStop(t *testing.T) {
	s := New(config.Scheduler{
		Enabled:                   true,
		CredentialRefreshSchedule: "*/30 * * * *",
		StaleImportSchedule:       "*/15 * * * *",
	}, &fakeQueue{}, setupImports(t))

	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.NotNil(t, s.NextRun(JobCredentialRefresh))
	assert.NotNil(t, s.NextRun(JobStaleImports))
	assert.Nil(t, s.NextRun("unknown"))

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.Nil(t, s.NextRun(JobCredentialRefresh))
}

func TestStart_Disabled(t *testing.T) {
	s := New(config.Scheduler{Enabled: false, CredentialRefreshSchedule: "*/30 * * * *"}, &fakeQueue{}, setupImports(t))
	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestStart_InvalidSchedule(t *testing.T) {
	s := New(config.Scheduler{Enabled: true, CredentialRefreshSchedule: "every minute"}, &fakeQueue{}, setupImports(t))
	assert.Error(t, s.Start(context.Background()))
	assert.False(t, s.IsRunning())
}

func TestRunGuarded_SkipsOverlappingRuns(t *testing.T) {
	s := New(config.Scheduler{}, &fakeQueue{}, setupImports(t))
	s.active[JobStaleImports] = true

	called := false
	s.runGuarded(context.Background(), JobStaleImports, func(context.Context) error {
		called = true
		return nil
	})
	assert.False(t, called)
}
