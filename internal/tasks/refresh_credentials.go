package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/gallery/internal/credentials"
	"github.com/mrlokans/gallery/internal/logger"
)

// RefreshCredentialsQueue is the queue name for token refresh runs.
const RefreshCredentialsQueue = "refresh_credentials"

// RefreshCredentialsTask refreshes tokens. With UserID and Provider set it
// refreshes one connection, otherwise every connection close to expiry.
type RefreshCredentialsTask struct {
	UserID   uint   `json:"user_id,omitempty"`
	Provider string `json:"provider,omitempty"`
}

// Config returns the queue configuration for credential refresh tasks.
func (t RefreshCredentialsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        RefreshCredentialsQueue,
		MaxAttempts: 2,
		Backoff:     30 * time.Second,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// CredentialRefresher renews expiring tokens.
type CredentialRefresher interface {
	RefreshExpiring(ctx context.Context) (credentials.RefreshResult, error)
	RefreshOne(ctx context.Context, userID uint, provider string) error
}

// RefreshCredentialsProcessor creates a processor function for RefreshCredentialsTask.
func RefreshCredentialsProcessor(refresher CredentialRefresher) backlite.QueueProcessor[RefreshCredentialsTask] {
	return func(ctx context.Context, task RefreshCredentialsTask) error {
		if refresher == nil {
			return fmt.Errorf("credential refresher not configured")
		}

		if task.UserID != 0 && task.Provider != "" {
			if err := refresher.RefreshOne(ctx, task.UserID, task.Provider); err != nil {
				return fmt.Errorf("refresh %s credentials for user %d: %w", task.Provider, task.UserID, err)
			}
			return nil
		}

		result, err := refresher.RefreshExpiring(ctx)
		if err != nil {
			return fmt.Errorf("refresh expiring credentials: %w", err)
		}
		logger.WithFields(logger.Fields{
			"checked":   result.Checked,
			"refreshed": result.Refreshed,
			"failed":    result.Failed,
		}).Info("[TASK] Credential refresh finished")
		return nil
	}
}

// NewRefreshCredentialsQueue creates a backlite queue for credential refresh tasks.
func NewRefreshCredentialsQueue(refresher CredentialRefresher) backlite.Queue {
	return backlite.NewQueue(RefreshCredentialsProcessor(refresher))
}
