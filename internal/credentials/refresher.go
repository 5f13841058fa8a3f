package credentials

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mrlokans/gallery/internal/entities"
	"github.com/mrlokans/gallery/internal/logger"
	"github.com/mrlokans/gallery/internal/providers"
)

// ProviderBuilder builds a provider client from credentials.
type ProviderBuilder interface {
	New(name string, creds *entities.Credentials) (providers.Provider, error)
}

// RefreshResult summarizes one refresh pass.
type RefreshResult struct {
	Checked   int
	Refreshed int
	Failed    int
}

// Refresher renews tokens that are about to expire.
type Refresher struct {
	mu      sync.Mutex
	store   *Store
	builder ProviderBuilder
	margin  time.Duration
	log     *logger.Logger
}

func NewRefresher(store *Store, builder ProviderBuilder, margin time.Duration) *Refresher {
	if margin <= 0 {
		margin = 15 * time.Minute
	}
	return &Refresher{
		store:   store,
		builder: builder,
		margin:  margin,
		log:     logger.WithFields(logger.Fields{logger.FieldComponent: "credential_refresher"}),
	}
}

// RefreshExpiring refreshes every connection expiring within the margin.
// Individual failures are logged and counted; only listing errors abort.
func (r *Refresher) RefreshExpiring(ctx context.Context) (RefreshResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result RefreshResult
	conns, err := r.store.ListExpiring(r.margin)
	if err != nil {
		return result, err
	}

	for _, conn := range conns {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Checked++

		entry := r.log.WithFields(logger.Fields{
			logger.FieldUserID:   conn.UserID,
			logger.FieldProvider: conn.Provider,
		})
		if err := r.refresh(ctx, conn.UserID, conn.Provider); err != nil {
			result.Failed++
			entry.WithError(err).Warn("Failed to refresh credentials")
			continue
		}
		result.Refreshed++
		entry.Info("Refreshed credentials")
	}
	return result, nil
}

// RefreshOne refreshes a single connection regardless of expiry.
func (r *Refresher) RefreshOne(ctx context.Context, userID uint, provider string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refresh(ctx, userID, provider)
}

func (r *Refresher) refresh(ctx context.Context, userID uint, providerName string) error {
	creds, err := r.store.Get(userID, providerName)
	if err != nil {
		return err
	}

	client, err := r.builder.New(providerName, creds)
	if err != nil {
		return fmt.Errorf("failed to build provider: %w", err)
	}

	refreshed, err := client.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh failed: %w", err)
	}
	refreshed.UserID = userID
	refreshed.Provider = providerName
	return r.store.UpdateAfterRefresh(refreshed)
}
