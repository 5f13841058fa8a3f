package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/gallery/internal/auth"
	"github.com/mrlokans/gallery/internal/credentials"
	"github.com/mrlokans/gallery/internal/database"
	"github.com/mrlokans/gallery/internal/database/galleries"
	"github.com/mrlokans/gallery/internal/database/imports"
	"github.com/mrlokans/gallery/internal/database/photos"
	"github.com/mrlokans/gallery/internal/database/users"
	"github.com/mrlokans/gallery/internal/http"
	"github.com/mrlokans/gallery/internal/importer"
	"github.com/mrlokans/gallery/internal/providers"
	"github.com/mrlokans/gallery/internal/providers/flickr"
	"github.com/mrlokans/gallery/internal/providers/googlephotos"
	"github.com/mrlokans/gallery/internal/providers/providertest"
	"github.com/mrlokans/gallery/internal/scheduler"
	"github.com/mrlokans/gallery/internal/services"
	"github.com/mrlokans/gallery/internal/storage"
	"github.com/mrlokans/gallery/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ importer.ImportRepository = (*imports.Repository)(nil)
var _ importer.PhotoRepository = (*photos.Repository)(nil)
var _ services.ImportStore = (*imports.Repository)(nil)
var _ services.GalleryCreator = (*galleries.Repository)(nil)
var _ scheduler.StaleImports = (*imports.Repository)(nil)
var _ auth.UserLookup = (*users.Repository)(nil)
var _ http.Pinger = (*database.Database)(nil)

// Credentials
var _ services.ConnectionStore = (*credentials.Store)(nil)
var _ importer.CredentialSource = (*credentials.Store)(nil)

// =============================================================================
// Photo Providers
// =============================================================================

var _ providers.Provider = (*flickr.Client)(nil)
var _ providers.Provider = (*googlephotos.Client)(nil)
var _ providers.Provider = (*providertest.Fake)(nil)
var _ importer.ProviderBuilder = (*providers.Registry)(nil)
var _ credentials.ProviderBuilder = (*providers.Registry)(nil)

// =============================================================================
// Object Storage
// =============================================================================

var _ storage.ObjectStorage = (*storage.LocalStorage)(nil)
var _ storage.ObjectStorage = (*storage.S3Storage)(nil)

// =============================================================================
// Import Pipeline
// =============================================================================

var _ importer.PhotoImporter = (*importer.ItemImporter)(nil)
var _ tasks.ImportRunner = (*importer.Orchestrator)(nil)
var _ tasks.CredentialRefresher = (*credentials.Refresher)(nil)

// =============================================================================
// Task Queue
// =============================================================================

var _ services.ImportEnqueuer = (*tasks.Client)(nil)
var _ scheduler.TaskQueue = (*tasks.Client)(nil)
var _ http.TaskStatusReader = (*tasks.Client)(nil)
var _ http.ImportAPI = (*services.ImportService)(nil)
