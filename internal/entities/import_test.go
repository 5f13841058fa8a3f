package entities

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImport_Transitions(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("pending to completed", func(t *testing.T) {
		imp := &Import{Status: ImportStatusPending}
		require.NoError(t, imp.Start(now))
		assert.Equal(t, ImportStatusInProgress, imp.Status)
		require.NotNil(t, imp.StartedAt)

		require.NoError(t, imp.Complete(now.Add(time.Minute)))
		assert.Equal(t, ImportStatusCompleted, imp.Status)
		assert.True(t, imp.IsTerminal())
		assert.False(t, imp.IsActive())
	})

	t.Run("in progress can restart", func(t *testing.T) {
		started := now.Add(-time.Hour)
		imp := &Import{Status: ImportStatusInProgress, StartedAt: &started}
		require.NoError(t, imp.Start(now))
		assert.Equal(t, started, *imp.StartedAt)
	})

	t.Run("fail stores message", func(t *testing.T) {
		imp := &Import{Status: ImportStatusInProgress}
		require.NoError(t, imp.Fail("API error", now))
		assert.Equal(t, ImportStatusFailed, imp.Status)
		require.NotNil(t, imp.ErrorMessage)
		assert.Equal(t, "API error", *imp.ErrorMessage)
		assert.NotNil(t, imp.CompletedAt)
	})

	t.Run("terminal states reject transitions", func(t *testing.T) {
		for _, status := range []ImportStatus{ImportStatusCompleted, ImportStatusFailed} {
			imp := &Import{Status: status}
			assert.ErrorIs(t, imp.Start(now), ErrInvalidTransition)
			assert.ErrorIs(t, imp.Complete(now), ErrInvalidTransition)
			assert.ErrorIs(t, imp.Fail("again", now), ErrInvalidTransition)
			assert.Equal(t, status, imp.Status)
		}
	})

	t.Run("pending cannot complete or fail", func(t *testing.T) {
		imp := &Import{Status: ImportStatusPending}
		assert.ErrorIs(t, imp.Complete(now), ErrInvalidTransition)
		assert.ErrorIs(t, imp.Fail("x", now), ErrInvalidTransition)
		assert.True(t, imp.IsActive())
	})
}

func TestImport_ProgressPercentage(t *testing.T) {
	tests := []struct {
		name string
		imp  Import
		want int
	}{
		{"zero total", Import{TotalPhotos: 0, ImportedCount: 3}, 0},
		{"half", Import{TotalPhotos: 10, ImportedCount: 4, FailedCount: 1}, 50},
		{"rounds", Import{TotalPhotos: 3, ImportedCount: 2}, 67},
		{"skipped counts", Import{TotalPhotos: 4, ImportedCount: 1, SkippedCount: 3}, 100},
		{"clamped", Import{TotalPhotos: 2, ImportedCount: 5}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.imp.ProgressPercentage())
		})
	}
}

func TestImportStatus_CanTransitionTo(t *testing.T) {
	all := []ImportStatus{ImportStatusPending, ImportStatusInProgress, ImportStatusCompleted, ImportStatusFailed}

	for _, from := range all {
		for _, to := range all {
			allowed := from.CanTransitionTo(to)
			assert.Equal(t, allowed, slices.Contains(TransitionSources(to), from), "%s -> %s", from, to)
			if from.IsTerminal() {
				assert.False(t, allowed, "terminal %s must not move to %s", from, to)
			}
		}
	}
	assert.True(t, ImportStatusInProgress.CanTransitionTo(ImportStatusInProgress))
	assert.False(t, ImportStatusPending.CanTransitionTo(ImportStatusCompleted))
	assert.Empty(t, TransitionSources(ImportStatusPending))
}

func TestImportGalleryTitle(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC)
	assert.Equal(t, "Holidays", ImportGalleryTitle("Holidays", "Flickr", now))
	assert.Equal(t, "Flickr Import 2024-03-09 14:05", ImportGalleryTitle("", "Flickr", now))
}

func TestExternalConnection_Expiry(t *testing.T) {
	conn := &ExternalConnection{}
	assert.False(t, conn.Connected())
	assert.False(t, conn.TokenExpired())
	assert.False(t, conn.ExpiringWithin(time.Hour))

	soon := time.Now().Add(10 * time.Minute)
	conn.AccessToken = "enc"
	conn.TokenExpiresAt = &soon
	assert.True(t, conn.Connected())
	assert.False(t, conn.TokenExpired())
	assert.True(t, conn.ExpiringWithin(15*time.Minute))
	assert.False(t, conn.ExpiringWithin(5*time.Minute))

	past := time.Now().Add(-time.Minute)
	conn.TokenExpiresAt = &past
	assert.True(t, conn.TokenExpired())
}

func TestJSONMap_ScanValue(t *testing.T) {
	m := JSONMap{"provider": "flickr", "tags": []any{"a", "b"}}
	v, err := m.Value()
	require.NoError(t, err)

	var out JSONMap
	require.NoError(t, out.Scan(v))
	assert.Equal(t, "flickr", out["provider"])

	require.NoError(t, out.Scan(nil))
	assert.Empty(t, out)

	assert.Error(t, out.Scan(42))
}

func TestPhoto_Validate(t *testing.T) {
	p := &Photo{UserID: 1, GalleryID: 2, Title: "t", Filename: "f.jpg", StorageKey: "k"}
	assert.NoError(t, p.Validate())

	p.GalleryID = 0
	assert.ErrorIs(t, p.Validate(), ErrPhotoMissingGallery)
}
