package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/gallery/internal/logger"
)

// ImportAlbumQueue is the queue name for album import runs.
const ImportAlbumQueue = "import_album"

// ImportAlbumTask runs one import record to completion.
type ImportAlbumTask struct {
	ImportID uint `json:"import_id"`
}

// Config returns the queue configuration for album import tasks.
// A failed import record is terminal, so a retry only helps when the run
// was interrupted before it could record anything.
func (t ImportAlbumTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        ImportAlbumQueue,
		MaxAttempts: 3,
		Backoff:     1 * time.Minute,
		Timeout:     2 * time.Hour,
		Retention: &backlite.Retention{
			Duration:   7 * 24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ImportRunner executes an import run.
type ImportRunner interface {
	Run(ctx context.Context, importID uint) error
}

// ImportAlbumProcessor creates a processor function for ImportAlbumTask.
func ImportAlbumProcessor(runner ImportRunner) backlite.QueueProcessor[ImportAlbumTask] {
	return func(ctx context.Context, task ImportAlbumTask) error {
		if runner == nil {
			return fmt.Errorf("import runner not configured")
		}

		start := time.Now()
		if err := runner.Run(ctx, task.ImportID); err != nil {
			return fmt.Errorf("import %d: %w", task.ImportID, err)
		}

		logger.WithFields(logger.Fields{
			logger.FieldImportID: task.ImportID,
			"duration":           time.Since(start).String(),
		}).Info("[TASK] Import run finished")
		return nil
	}
}

// NewImportAlbumQueue creates a backlite queue for album import tasks.
func NewImportAlbumQueue(runner ImportRunner) backlite.Queue {
	return backlite.NewQueue(ImportAlbumProcessor(runner))
}
