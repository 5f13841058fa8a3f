package entrypoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrlokans/gallery/internal/config"
	"github.com/mrlokans/gallery/internal/credentials"
	"github.com/mrlokans/gallery/internal/database"
	"github.com/mrlokans/gallery/internal/database/galleries"
	"github.com/mrlokans/gallery/internal/database/imports"
	"github.com/mrlokans/gallery/internal/database/photos"
	"github.com/mrlokans/gallery/internal/database/users"
	"github.com/mrlokans/gallery/internal/importer"
	"github.com/mrlokans/gallery/internal/logger"
	"github.com/mrlokans/gallery/internal/providers"
	"github.com/mrlokans/gallery/internal/providers/flickr"
	"github.com/mrlokans/gallery/internal/providers/googlephotos"
	"github.com/mrlokans/gallery/internal/services"
	"github.com/mrlokans/gallery/internal/storage"
	"github.com/mrlokans/gallery/internal/tasks"
)

// ErrTasksDisabled is returned when an import is enqueued with the task
// queue turned off.
var ErrTasksDisabled = errors.New("task queue is disabled")

// App holds the wired application components shared by the server and
// the CLI commands.
type App struct {
	Config *config.Config

	DB          *database.Database
	Users       *users.Repository
	Imports     *imports.Repository
	Photos      *photos.Repository
	Galleries   *galleries.Repository
	Credentials *credentials.Store

	Registry     *providers.Registry
	Storage      storage.ObjectStorage
	Orchestrator *importer.Orchestrator
	Refresher    *credentials.Refresher
	Tasks        *tasks.Client // nil when the task queue is disabled
	Service      *services.ImportService
}

// NewApp opens the database and builds every component. Task workers are
// registered but not started.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app := &App{
		Config:    cfg,
		DB:        db,
		Users:     users.NewRepository(db.DB),
		Imports:   imports.NewRepository(db.DB),
		Photos:    photos.NewRepository(db.DB),
		Galleries: galleries.NewRepository(db.DB),
	}

	encryptor, err := credentials.ResolveEncryptor(cfg.Credentials)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Credentials = credentials.NewStore(db.DB, encryptor)

	app.Storage, err = storage.New(ctx, cfg.Storage)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	app.Registry = NewRegistry(cfg)

	items := importer.NewItemImporter(app.Photos, app.Storage, importer.ItemOptions{
		MaxBytes: cfg.Import.MaxDownloadBytes,
		TempDir:  cfg.Import.TempDir,
	})
	app.Orchestrator = importer.NewOrchestrator(
		app.Imports,
		app.Credentials,
		app.Registry,
		items,
		providers.NewPacer(cfg.Import.PhotoDelay),
	)
	app.Refresher = credentials.NewRefresher(app.Credentials, app.Registry, cfg.Scheduler.RefreshMargin)

	var queue services.ImportEnqueuer = disabledQueue{}
	if cfg.Tasks.Enabled {
		app.Tasks, err = tasks.NewClient(tasksDBPath(cfg.Database), tasks.FromAppConfig(cfg.Tasks))
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to initialize task queue: %w", err)
		}
		app.Tasks.Register(
			tasks.NewImportAlbumQueue(app.Orchestrator),
			tasks.NewRefreshCredentialsQueue(app.Refresher),
		)
		queue = app.Tasks
	} else {
		logger.Warn("[TASK] task queue disabled, imports will stay pending")
	}

	app.Service = services.NewImportService(
		app.Registry,
		app.Credentials,
		app.Imports,
		app.Galleries,
		queue,
		cfg.HTTP.PublicURL,
	)
	return app, nil
}

// NewRegistry registers every provider the configuration enables.
// Google Photos needs server-wide OAuth client credentials.
func NewRegistry(cfg *config.Config) *providers.Registry {
	registry := providers.NewRegistry()
	registry.Register(flickr.Registration(flickr.Config{
		APIURL:  cfg.Flickr.APIURL,
		SiteURL: cfg.Flickr.SiteURL,
	}))

	if cfg.Google.ClientID != "" && cfg.Google.ClientSecret != "" {
		registry.Register(googlephotos.Registration(googlephotos.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
		}))
	} else {
		logger.Info("Google Photos disabled: GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are not set")
	}
	return registry
}

// Close releases the task queue and database.
func (a *App) Close() error {
	var errs []error
	if a.Tasks != nil {
		errs = append(errs, a.Tasks.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}

// tasksDBPath picks the file the queue database sits next to.
// PostgreSQL deployments keep it beside the default SQLite path.
func tasksDBPath(cfg config.Database) string {
	if database.DriverName(cfg) != "sqlite" || cfg.Path == "" {
		return config.DefaultDatabasePath
	}
	return cfg.Path
}

type disabledQueue struct{}

func (disabledQueue) EnqueueImport(context.Context, uint) (string, error) {
	return "", ErrTasksDisabled
}
