package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/gallery/internal/logger"
)

// Client wraps backlite to provide task queue functionality.
type Client struct {
	client *backlite.Client
	db     *sql.DB
	config Config

	mu      sync.RWMutex
	started bool
}

// TasksDBPath returns the queue database path for a main database path:
// "gallery.db" becomes "gallery-tasks.db" in the same directory.
func TasksDBPath(mainDBPath string) string {
	dir := filepath.Dir(mainDBPath)
	base := filepath.Base(mainDBPath)
	ext := filepath.Ext(base)
	name := base[:len(base)-len(ext)]
	return filepath.Join(dir, name+"-tasks"+ext)
}

// NewClient creates a new task queue client with a dedicated SQLite database.
// The queue always lives in SQLite, even when the main database is PostgreSQL.
func NewClient(mainDBPath string, cfg Config) (*Client, error) {
	db, err := sql.Open("sqlite3", TasksDBPath(mainDBPath)+"?_journal=WAL&_timeout=5000&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open tasks database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Workers + 5)
	db.SetMaxIdleConns(cfg.Workers + 2)
	db.SetConnMaxLifetime(time.Hour)

	client, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          &queueLogger{log: logger.WithFields(logger.Fields{logger.FieldComponent: "tasks"})},
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create backlite client: %w", err)
	}

	if err := client.Install(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to install backlite schema: %w", err)
	}

	return &Client{
		client: client,
		db:     db,
		config: cfg,
	}, nil
}

// Register registers task queues with the client.
// Must be called before Start().
func (c *Client) Register(queues ...backlite.Queue) {
	for _, q := range queues {
		c.client.Register(q)
	}
}

// Start begins processing tasks. This is non-blocking and should be called
// in a goroutine. Use Stop() for graceful shutdown.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	logger.Info("[TASK] Task queue started with %d workers", c.config.Workers)
	c.client.Start(ctx)
}

// Stop gracefully shuts down the task queue, waiting for active tasks to complete.
// Returns true if all workers finished before the context deadline.
// Interrupted import runs stay in progress and are picked up again on restart.
func (c *Client) Stop(ctx context.Context) bool {
	c.mu.RLock()
	if !c.started {
		c.mu.RUnlock()
		return true
	}
	c.mu.RUnlock()

	logger.Info("[TASK] Stopping task queue...")
	success := c.client.Stop(ctx)
	if success {
		logger.Info("[TASK] Task queue stopped gracefully")
	} else {
		logger.Warn("[TASK] Task queue stopped with timeout (some tasks may not have completed)")
	}
	return success
}

// Close releases all resources. Should be called after Stop().
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Add starts an operation to enqueue one or more tasks.
func (c *Client) Add(tasks ...backlite.Task) *backlite.TaskAddOp {
	return c.client.Add(tasks...)
}

// EnqueueImport schedules an import run and returns the task id.
// Delivery is at-least-once; the run itself tolerates redelivery.
func (c *Client) EnqueueImport(ctx context.Context, importID uint) (string, error) {
	ids, err := c.client.Add(ImportAlbumTask{ImportID: importID}).Ctx(ctx).Save()
	if err != nil {
		return "", fmt.Errorf("failed to enqueue import %d: %w", importID, err)
	}
	return ids[0], nil
}

// EnqueueCredentialRefresh schedules a refresh of expiring credentials.
func (c *Client) EnqueueCredentialRefresh(ctx context.Context) (string, error) {
	ids, err := c.client.Add(RefreshCredentialsTask{}).Ctx(ctx).Save()
	if err != nil {
		return "", fmt.Errorf("failed to enqueue credential refresh: %w", err)
	}
	return ids[0], nil
}

// Status returns the status of a task by ID.
func (c *Client) Status(ctx context.Context, taskID string) (backlite.TaskStatus, error) {
	return c.client.Status(ctx, taskID)
}

// DB returns the queue's SQLite handle. Sessions share it when the main
// database is PostgreSQL.
func (c *Client) DB() *sql.DB {
	return c.db
}

// StatusString returns the lower-case name of a task status.
func StatusString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// queueLogger implements backlite.Logger on top of the structured logger.
type queueLogger struct {
	log *logger.Logger
}

func (l *queueLogger) Info(message string, params ...any) {
	l.log.WithFields(paramFields(params)).Info("[TASK] " + message)
}

func (l *queueLogger) Error(message string, params ...any) {
	l.log.WithFields(paramFields(params)).Error("[TASK ERROR] " + message)
}

// paramFields turns backlite's key/value pairs into log fields.
func paramFields(params []any) logger.Fields {
	fields := make(logger.Fields, len(params)/2)
	for i := 0; i+1 < len(params); i += 2 {
		fields[fmt.Sprint(params[i])] = params[i+1]
	}
	if len(params)%2 == 1 {
		fields["extra"] = params[len(params)-1]
	}
	return fields
}
