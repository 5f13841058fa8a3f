// Package interfaces documents the core abstractions used throughout the application.
//
// This package consolidates interface documentation to help contributors find
// extension points and how to implement new functionality.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - importer.ImportRepository: import state transitions and counters (internal/importer/interfaces.go)
//   - importer.PhotoRepository: photo dedupe and inserts (internal/importer/interfaces.go)
//   - services.ImportStore, services.ConnectionStore: use-case persistence (internal/services/interfaces.go)
//   - scheduler.StaleImports: pending imports that lost their task (internal/scheduler/scheduler.go)
//
// ## External Service Interfaces
//
//   - providers.Provider: one connected photo service account (internal/providers/provider.go)
//   - storage.ObjectStorage: where photo files are written (internal/storage/interface.go)
//
// ## Background Work
//
//   - tasks.ImportRunner: runs one import to completion (internal/tasks/import_album.go)
//   - tasks.CredentialRefresher: refreshes expiring OAuth tokens (internal/tasks/refresh_credentials.go)
//   - services.ImportEnqueuer, scheduler.TaskQueue: enqueue work on backlite (internal/tasks/client.go)
//
// # Adding a New Photo Provider
//
//  1. Create a package under internal/providers/ with a Client implementing Provider:
//
//     type Client struct {
//     creds entities.Credentials
//     api   *resty.Client
//     }
//
//     func (c *Client) ListAlbumPhotos(ctx context.Context, albumID string, page int) (*providers.PhotoPage, error)
//
//     var _ providers.Provider = (*Client)(nil)
//
//  2. Expose a Registration(cfg) that returns providers.Registration with a Factory.
//
//  3. Register it in entrypoint.NewRegistry. The HTTP routes under
//     /api/imports/:provider pick it up without further changes.
//
// # Adding a New Storage Backend
//
//  1. Implement storage.ObjectStorage in internal/storage/. Return
//     storage.ErrNotFound for missing keys.
//
//  2. Add a case to storage.New keyed by STORAGE_BACKEND.
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the full list.
package interfaces
