package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/gallery/internal/config"
	"github.com/mrlokans/gallery/internal/credentials"
	"github.com/mrlokans/gallery/internal/crypto"
	"github.com/mrlokans/gallery/internal/database"
	"github.com/mrlokans/gallery/internal/database/galleries"
	"github.com/mrlokans/gallery/internal/database/imports"
	"github.com/mrlokans/gallery/internal/entities"
	"github.com/mrlokans/gallery/internal/providers"
	"github.com/mrlokans/gallery/internal/providers/providertest"
)

type fakeQueue struct {
	enqueued []uint
	err      error
}

func (q *fakeQueue) EnqueueImport(_ context.Context, importID uint) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	q.enqueued = append(q.enqueued, importID)
	return "task-1", nil
}

type fixture struct {
	service   *ImportService
	fake      *providertest.Fake
	queue     *fakeQueue
	imports   *imports.Repository
	galleries *galleries.Repository
	store     *credentials.Store
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewDatabase(config.Database{
		Driver:   "sqlite",
		Path:     filepath.Join(t.TempDir(), "services.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	enc, err := crypto.NewEncryptorFromSecret("services test key")
	require.NoError(t, err)

	f := &fixture{
		fake:      providertest.New("flickr"),
		queue:     &fakeQueue{},
		imports:   imports.NewRepository(db.DB),
		galleries: galleries.NewRepository(db.DB),
		store:     credentials.NewStore(db.DB, enc),
	}
	registry := providers.NewRegistry()
	registry.Register(providers.Registration{
		Name:           "flickr",
		DisplayName:    "Flickr",
		RequiresAPIKey: true,
		Factory:        f.fake.Factory(),
	})
	f.service = NewImportService(registry, f.store, f.imports, f.galleries, f.queue, "https://gallery.example.com/")
	f.service.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC) }
	return f
}

func (f *fixture) connect(t *testing.T) {
	t.Helper()
	_, err := f.store.Save(&entities.Credentials{
		UserID: 1, Provider: "flickr", AccessToken: "token", AccessSecret: "secret",
		APIKey: "key", APISecret: "app-secret", ExternalUsername: "alice",
	})
	require.NoError(t, err)
}

func TestCallbackURL(t *testing.T) {
	f := setup(t)
	assert.Equal(t, "https://gallery.example.com/api/imports/flickr/callback", f.service.CallbackURL("flickr"))
}

func TestProviders(t *testing.T) {
	f := setup(t)

	list, err := f.service.Providers(1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "flickr", list[0].Name)
	assert.True(t, list[0].RequiresAPIKey)
	assert.False(t, list[0].Connected)

	f.connect(t)
	list, err = f.service.Providers(1)
	require.NoError(t, err)
	assert.True(t, list[0].Connected)
	assert.Equal(t, "alice", list[0].ExternalUsername)
}

func TestConnectFlow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	hs, err := f.service.BeginConnect(ctx, 1, "flickr", ConnectParams{APIKey: " key ", APISecret: "app-secret"})
	require.NoError(t, err)
	assert.Contains(t, hs.AuthorizeURL, "https://auth.example.com/authorize")
	assert.Equal(t, "req-token", hs.RequestToken)
	assert.Equal(t, "key", hs.APIKey)

	conn, err := f.service.CompleteConnect(ctx, 1, hs, CallbackParams{Token: "req-token", Verifier: "v1", State: "state-123"})
	require.NoError(t, err)
	assert.Equal(t, "flickr", conn.Provider)

	creds, err := f.store.Get(1, "flickr")
	require.NoError(t, err)
	assert.Equal(t, "access-v1", creds.AccessToken)
	assert.Equal(t, "key", creds.APIKey)
	assert.Equal(t, "app-secret", creds.APISecret)

	require.NoError(t, f.service.Disconnect(1, "flickr"))
	_, err = f.store.Get(1, "flickr")
	assert.ErrorIs(t, err, credentials.ErrNotConnected)
}

func TestCompleteConnect_RejectsMismatchedState(t *testing.T) {
	f := setup(t)
	hs := &Handshake{Provider: "flickr", State: "expected"}

	_, err := f.service.CompleteConnect(context.Background(), 1, hs, CallbackParams{Code: "c", State: "forged"})
	assert.ErrorIs(t, err, providers.ErrInvalidState)

	_, err = f.service.CompleteConnect(context.Background(), 1, nil, CallbackParams{Code: "c"})
	assert.ErrorIs(t, err, providers.ErrInvalidState)

	hs = &Handshake{Provider: "flickr", RequestToken: "req-token"}
	_, err = f.service.CompleteConnect(context.Background(), 1, hs, CallbackParams{Token: "other", Verifier: "v"})
	assert.ErrorIs(t, err, providers.ErrInvalidState)
}

func TestUnknownProvider(t *testing.T) {
	f := setup(t)

	_, err := f.service.BeginConnect(context.Background(), 1, "myspace", ConnectParams{})
	assert.ErrorIs(t, err, ErrUnknownProvider)
	_, err = f.service.StartImport(context.Background(), 1, "myspace", StartImportParams{AlbumID: "a"})
	assert.ErrorIs(t, err, ErrUnknownProvider)
	assert.ErrorIs(t, f.service.Disconnect(1, "myspace"), ErrUnknownProvider)
}

func TestListAlbums(t *testing.T) {
	f := setup(t)
	f.connect(t)
	f.fake.Albums = []providers.Album{{ID: "a1", Title: "One", PhotoCount: 3}, {ID: "a2", Title: "Two"}}

	_, err := f.service.StartImport(context.Background(), 1, "flickr", StartImportParams{AlbumID: "a1", AlbumTitle: "One"})
	require.NoError(t, err)

	listing, err := f.service.ListAlbums(context.Background(), 1, "flickr", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, listing.Page)
	require.Len(t, listing.Albums, 2)
	assert.True(t, listing.Albums[0].Imported)
	assert.False(t, listing.Albums[1].Imported)
	assert.Equal(t, []string{"a1"}, listing.ImportedAlbumIDs)
}

func TestListAlbums_NotConnected(t *testing.T) {
	f := setup(t)
	_, err := f.service.ListAlbums(context.Background(), 1, "flickr", 1)
	assert.ErrorIs(t, err, credentials.ErrNotConnected)
}

func TestStartImport(t *testing.T) {
	f := setup(t)
	f.connect(t)

	imp, err := f.service.StartImport(context.Background(), 1, "flickr", StartImportParams{AlbumID: "72157", AlbumTitle: "Iceland"})
	require.NoError(t, err)
	assert.Equal(t, entities.ImportStatusPending, imp.Status)
	assert.Equal(t, "task-1", imp.TaskID)
	assert.Equal(t, []uint{imp.ID}, f.queue.enqueued)
	require.NotNil(t, imp.GalleryID)
	require.NotNil(t, imp.ExternalConnectionID)

	gallery, err := f.galleries.GetForUser(*imp.GalleryID, 1)
	require.NoError(t, err)
	assert.Equal(t, "Iceland", gallery.Title)

	_, err = f.service.StartImport(context.Background(), 1, "flickr", StartImportParams{AlbumID: "72157"})
	assert.ErrorIs(t, err, ErrAlreadyImported)
}

func TestStartImport_UntitledAlbum(t *testing.T) {
	f := setup(t)
	f.connect(t)

	imp, err := f.service.StartImport(context.Background(), 1, "flickr", StartImportParams{AlbumID: "a"})
	require.NoError(t, err)

	gallery, err := f.galleries.GetForUser(*imp.GalleryID, 1)
	require.NoError(t, err)
	assert.Equal(t, "Flickr Import 2024-03-09 14:05", gallery.Title)
}

func TestStartImport_Validation(t *testing.T) {
	f := setup(t)

	_, err := f.service.StartImport(context.Background(), 1, "flickr", StartImportParams{AlbumID: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.service.StartImport(context.Background(), 1, "flickr", StartImportParams{AlbumID: "a"})
	assert.ErrorIs(t, err, credentials.ErrNotConnected)
}

func TestStartImport_EnqueueFailureKeepsPendingImport(t *testing.T) {
	f := setup(t)
	f.connect(t)
	f.queue.err = errors.New("queue unavailable")

	imp, err := f.service.StartImport(context.Background(), 1, "flickr", StartImportParams{AlbumID: "a"})
	require.NoError(t, err)
	assert.Empty(t, imp.TaskID)

	stored, err := f.imports.GetByID(imp.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ImportStatusPending, stored.Status)
}

// racingImports creates a competing import for the album right after the
// service's duplicate check, the way a concurrent request would.
type racingImports struct {
	*imports.Repository
	checks int
}

func (r *racingImports) ExistsForAlbum(userID uint, provider, albumID string) (bool, error) {
	r.checks++
	if r.checks == 1 {
		err := r.Repository.Create(&entities.Import{UserID: userID, Provider: provider, ExternalAlbumID: albumID})
		return false, err
	}
	return r.Repository.ExistsForAlbum(userID, provider, albumID)
}

func TestStartImport_LostRaceRemovesGallery(t *testing.T) {
	f := setup(t)
	f.connect(t)
	registry := providers.NewRegistry()
	registry.Register(providers.Registration{Name: "flickr", DisplayName: "Flickr", Factory: f.fake.Factory()})
	racing := &racingImports{Repository: f.imports}
	service := NewImportService(registry, f.store, racing, f.galleries, f.queue, "https://gallery.example.com/")

	_, err := service.StartImport(context.Background(), 1, "flickr", StartImportParams{AlbumID: "72157", AlbumTitle: "Iceland"})
	assert.ErrorIs(t, err, ErrAlreadyImported)
	assert.Equal(t, 2, racing.checks)
	assert.Empty(t, f.queue.enqueued)

	// The gallery created for the losing request is gone.
	gallery, err := f.galleries.GetForUser(1, 1)
	require.NoError(t, err)
	assert.Nil(t, gallery)
}

func TestGetAndListImports(t *testing.T) {
	f := setup(t)
	f.connect(t)
	imp, err := f.service.StartImport(context.Background(), 1, "flickr", StartImportParams{AlbumID: "a"})
	require.NoError(t, err)

	require.NoError(t, f.imports.Start(imp.ID))
	require.NoError(t, f.imports.SetTotalPhotos(imp.ID, 4))
	require.NoError(t, f.imports.IncrementImported(imp.ID))
	require.NoError(t, f.imports.IncrementFailed(imp.ID))
	require.NoError(t, f.imports.RecordFailure(imp.ID, "p2", "download failed"))

	details, err := f.service.GetImport(1, imp.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, details.ProgressPercentage)
	require.Len(t, details.Failures, 1)
	assert.Equal(t, "p2", details.Failures[0].ExternalPhotoID)

	_, err = f.service.GetImport(2, imp.ID)
	assert.ErrorIs(t, err, ErrImportNotFound)

	list, err := f.service.ListImports(1, imports.ListFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, imp.ID, list[0].ID)
}

func TestDeleteImport(t *testing.T) {
	f := setup(t)
	f.connect(t)
	imp, err := f.service.StartImport(context.Background(), 1, "flickr", StartImportParams{AlbumID: "a"})
	require.NoError(t, err)

	require.NoError(t, f.imports.Start(imp.ID))
	assert.ErrorIs(t, f.service.DeleteImport(1, imp.ID), ErrImportRunning)

	require.NoError(t, f.imports.Complete(imp.ID))
	assert.ErrorIs(t, f.service.DeleteImport(2, imp.ID), ErrImportNotFound)
	require.NoError(t, f.service.DeleteImport(1, imp.ID))
	assert.ErrorIs(t, f.service.DeleteImport(1, imp.ID), ErrImportNotFound)

	// The album can be imported again after deletion.
	_, err = f.service.StartImport(context.Background(), 1, "flickr", StartImportParams{AlbumID: "a"})
	assert.NoError(t, err)
}
