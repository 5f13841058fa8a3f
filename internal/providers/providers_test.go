package providers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/gallery/internal/entities"
)

func TestRegistry(t *testing.T) {
	registry := NewRegistry()
	var received *entities.Credentials
	registry.Register(Registration{
		Name:        "stub",
		DisplayName: "Stub",
		Factory: func(creds *entities.Credentials) (Provider, error) {
			received = creds
			return nil, nil
		},
	})

	creds := &entities.Credentials{UserID: 4}
	_, err := registry.New("stub", creds)
	require.NoError(t, err)
	assert.Same(t, creds, received)

	_, err = registry.New("missing", nil)
	assert.ErrorIs(t, err, ErrProviderNotFound)

	list := registry.List()
	require.Len(t, list, 1)
	assert.Equal(t, "Stub", list[0].DisplayName)
}

func TestPacer_SpacesRequestsPerPair(t *testing.T) {
	pacer := NewPacer(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, pacer.Wait(ctx, 1, "flickr"))
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)

	// A different pair has its own budget.
	start = time.Now()
	require.NoError(t, pacer.Wait(ctx, 2, "flickr"))
	assert.Less(t, time.Since(start), 40*time.Millisecond)
}

func TestPacer_DropsIdleLimiters(t *testing.T) {
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	pacer := NewPacer(0)
	pacer.now = func() time.Time { return clock }

	first := pacer.limiter(1, "flickr")
	pacer.limiter(2, "flickr")
	assert.Len(t, pacer.limiters, 2)

	clock = clock.Add(pacerIdleAfter / 2)
	assert.Same(t, first, pacer.limiter(1, "flickr"))

	// User 2 has now been idle longer than pacerIdleAfter, user 1 has not.
	clock = clock.Add(pacerIdleAfter * 3 / 4)
	pacer.limiter(3, "google_photos")
	assert.Len(t, pacer.limiters, 2)
	assert.NotContains(t, pacer.limiters, "2:flickr")
	assert.Same(t, first, pacer.limiter(1, "flickr"))
}

func TestPacer_ZeroDelay(t *testing.T) {
	pacer := NewPacer(0)
	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, pacer.Wait(context.Background(), 1, "flickr"))
	}
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestPacer_HonoursCancellation(t *testing.T) {
	pacer := NewPacer(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, pacer.Wait(ctx, 1, "flickr"))
	cancel()
	assert.Error(t, pacer.Wait(ctx, 1, "flickr"))
}

func TestValues(t *testing.T) {
	assert.Equal(t, "53012345", StringValue(float64(53012345)))
	assert.Equal(t, "", StringValue(nil))
	assert.Equal(t, 12, IntValue("12"))
	assert.Equal(t, 3, IntValue(float64(3)))
	assert.Equal(t, 0, IntValue("x"))
	assert.InDelta(t, 51.5, FloatValue("51.5"), 0.0001)
	assert.Equal(t, "p1", RemotePhoto{"id": "p1"}.ID())
}
