package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrlokans/gallery/internal/database/imports"
	"github.com/mrlokans/gallery/internal/entities"
	"github.com/mrlokans/gallery/internal/logger"
	"github.com/mrlokans/gallery/internal/providers"
)

// Orchestrator drives one import run from start to a terminal state.
type Orchestrator struct {
	imports     ImportRepository
	credentials CredentialSource
	providers   ProviderBuilder
	items       PhotoImporter
	pacer       *providers.Pacer
}

func NewOrchestrator(
	importRepo ImportRepository,
	creds CredentialSource,
	builder ProviderBuilder,
	items PhotoImporter,
	pacer *providers.Pacer,
) *Orchestrator {
	if pacer == nil {
		pacer = providers.NewPacer(providers.DefaultPhotoDelay)
	}
	return &Orchestrator{
		imports:     importRepo,
		credentials: creds,
		providers:   builder,
		items:       items,
		pacer:       pacer,
	}
}

// Run processes the import. Missing or terminal records are a no-op.
//
// Run-level errors mark the import failed and are returned so the queue can
// record them. Cancellation (worker shutdown) leaves the import in progress
// and returns the context error so the task is redelivered. A queue timeout
// is a run-level error: the import fails.
func (o *Orchestrator) Run(ctx context.Context, importID uint) error {
	log := logger.WithFields(logger.Fields{logger.FieldImportID: importID})

	imp, err := o.imports.GetByID(importID)
	if errors.Is(err, imports.ErrNotFound) {
		log.Warn("[IMPORT] import not found, skipping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load import %d: %w", importID, err)
	}
	if imp.IsTerminal() {
		log.WithField("status", imp.Status).Info("[IMPORT] import already finished, skipping")
		return nil
	}

	if err := o.imports.Start(importID); err != nil {
		if errors.Is(err, entities.ErrInvalidTransition) {
			log.Info("[IMPORT] import finished concurrently, skipping")
			return nil
		}
		return fmt.Errorf("failed to start import %d: %w", importID, err)
	}

	log = log.WithFields(logger.Fields{
		logger.FieldUserID:   imp.UserID,
		logger.FieldProvider: imp.Provider,
		"album_id":           imp.ExternalAlbumID,
	})
	log.Info("[IMPORT] started")

	if err := o.process(ctx, imp, log); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			log.WithError(err).Warn("[IMPORT] interrupted, leaving import in progress")
			return err
		}
		log.WithError(err).Error("[IMPORT] failed")
		if failErr := o.imports.Fail(importID, err.Error()); failErr != nil {
			log.WithError(failErr).Error("[IMPORT] failed to mark import as failed")
		}
		return err
	}

	if err := o.imports.Complete(importID); err != nil {
		return fmt.Errorf("failed to complete import %d: %w", importID, err)
	}
	log.Info("[IMPORT] completed")
	return nil
}

func (o *Orchestrator) process(ctx context.Context, imp *entities.Import, log *logger.Logger) error {
	creds, err := o.credentials.Get(imp.UserID, imp.Provider)
	if err != nil {
		return fmt.Errorf("failed to load %s credentials: %w", imp.Provider, err)
	}
	client, err := o.providers.New(imp.Provider, creds)
	if err != nil {
		return fmt.Errorf("failed to create %s client: %w", imp.Provider, err)
	}

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := client.ListAlbumPhotos(ctx, imp.ExternalAlbumID, page)
		if err != nil {
			return fmt.Errorf("failed to list album photos (page %d): %w", page, err)
		}
		if len(result.Photos) == 0 {
			break
		}

		if page == 1 {
			if err := o.imports.SetTotalPhotos(imp.ID, result.Total); err != nil {
				return fmt.Errorf("failed to set total photos: %w", err)
			}
		}
		log.WithFields(logger.Fields{"page": page, "total_pages": result.TotalPages}).Debug("[IMPORT] processing page")

		for _, photo := range result.Photos {
			if err := o.pacer.Wait(ctx, imp.UserID, imp.Provider); err != nil {
				return err
			}
			res := o.items.Import(ctx, client, photo, imp)
			// An item cut short by cancellation is retried on redelivery,
			// so it must not be counted.
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := o.record(imp.ID, photo.ID(), res, log); err != nil {
				return err
			}
		}

		if page >= result.TotalPages {
			break
		}
	}
	return nil
}

func (o *Orchestrator) record(importID uint, externalID string, res Result, log *logger.Logger) error {
	entry := log.WithField(logger.FieldPhotoID, externalID)
	switch {
	case res.Success:
		return o.imports.IncrementImported(importID)
	case res.Skipped:
		entry.WithField("reason", res.Reason).Info("[IMPORT] photo skipped")
		return o.imports.IncrementSkipped(importID)
	default:
		entry.WithField("reason", res.Reason).Warn("[IMPORT] photo failed")
		if err := o.imports.IncrementFailed(importID); err != nil {
			return err
		}
		return o.imports.RecordFailure(importID, externalID, res.Reason)
	}
}
