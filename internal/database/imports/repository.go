// Package imports provides database operations for album import records.
//
// Status transitions are conditional updates, so a record that reached a
// terminal state cannot be moved again by a late or duplicate writer.
// Counters only change through atomic increments.
//
// # Usage
//
//	repo := imports.NewRepository(db)
//	if err := repo.Start(importID); err != nil { ... }
//	_ = repo.IncrementImported(importID)
//	_ = repo.Complete(importID)
package imports

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/gallery/internal/entities"
)

var ErrNotFound = errors.New("import not found")

// Repository handles import record persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new imports repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListFilter narrows ListForUser.
type ListFilter struct {
	Provider   string
	ActiveOnly bool
	Limit      int
}

// Recent orders imports newest first.
func Recent(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC").Order("id DESC")
}

// Active keeps pending and in-progress imports.
func Active(db *gorm.DB) *gorm.DB {
	return db.Where("status IN ?", entities.ActiveImportStatuses)
}

// ForProvider keeps imports from one provider.
func ForProvider(provider string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("provider = ?", provider)
	}
}

// Create inserts a new pending import.
func (r *Repository) Create(imp *entities.Import) error {
	if imp.Status == "" {
		imp.Status = entities.ImportStatusPending
	}
	return r.db.Create(imp).Error
}

// GetByID returns the import or ErrNotFound.
func (r *Repository) GetByID(id uint) (*entities.Import, error) {
	var imp entities.Import
	err := r.db.First(&imp, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &imp, nil
}

// GetForUser returns the import only if it belongs to userID.
func (r *Repository) GetForUser(id, userID uint) (*entities.Import, error) {
	var imp entities.Import
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&imp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &imp, nil
}

// ListForUser returns the user's imports, newest first.
func (r *Repository) ListForUser(userID uint, filter ListFilter) ([]entities.Import, error) {
	query := r.db.Where("user_id = ?", userID).Scopes(Recent)
	if filter.Provider != "" {
		query = query.Scopes(ForProvider(filter.Provider))
	}
	if filter.ActiveOnly {
		query = query.Scopes(Active)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var result []entities.Import
	if err := query.Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// ExistsForAlbum reports whether the user already has an import of the album.
func (r *Repository) ExistsForAlbum(userID uint, provider, albumID string) (bool, error) {
	var count int64
	err := r.db.Model(&entities.Import{}).
		Where("user_id = ? AND provider = ? AND external_album_id = ?", userID, provider, albumID).
		Count(&count).Error
	return count > 0, err
}

// ExternalAlbumIDs lists album ids the user has imported from provider.
func (r *Repository) ExternalAlbumIDs(userID uint, provider string) ([]string, error) {
	var ids []string
	err := r.db.Model(&entities.Import{}).
		Where("user_id = ? AND provider = ?", userID, provider).
		Pluck("external_album_id", &ids).Error
	return ids, err
}

// ListStalePending returns pending imports created before cutoff.
func (r *Repository) ListStalePending(cutoff time.Time) ([]entities.Import, error) {
	var result []entities.Import
	err := r.db.Where("status = ? AND created_at < ?", entities.ImportStatusPending, cutoff).
		Order("id").
		Find(&result).Error
	return result, err
}

// Start moves a pending or in-progress import to in_progress.
// started_at keeps its first value across redeliveries.
func (r *Repository) Start(id uint) error {
	return r.transition(id, entities.ImportStatusInProgress,
		map[string]any{
			"started_at": gorm.Expr("COALESCE(started_at, ?)", time.Now()),
		})
}

// Complete moves an in-progress import to completed.
func (r *Repository) Complete(id uint) error {
	return r.transition(id, entities.ImportStatusCompleted,
		map[string]any{
			"completed_at": time.Now(),
		})
}

// Fail moves an in-progress import to failed and stores the message.
func (r *Repository) Fail(id uint, message string) error {
	return r.transition(id, entities.ImportStatusFailed,
		map[string]any{
			"error_message": message,
			"completed_at":  time.Now(),
		})
}

// transition applies updates and sets status to `to`, but only while the
// row is in a status entities.TransitionSources allows.
func (r *Repository) transition(id uint, to entities.ImportStatus, updates map[string]any) error {
	updates["status"] = to
	result := r.db.Model(&entities.Import{}).
		Where("id = ? AND status IN ?", id, entities.TransitionSources(to)).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	current, err := r.GetByID(id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s -> %s", entities.ErrInvalidTransition, current.Status, to)
}

func (r *Repository) IncrementImported(id uint) error {
	return r.increment(id, "imported_count")
}

func (r *Repository) IncrementFailed(id uint) error {
	return r.increment(id, "failed_count")
}

func (r *Repository) IncrementSkipped(id uint) error {
	return r.increment(id, "skipped_count")
}

func (r *Repository) increment(id uint, column string) error {
	return r.db.Model(&entities.Import{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1)).Error
}

func (r *Repository) SetTotalPhotos(id uint, total int) error {
	return r.db.Model(&entities.Import{}).Where("id = ?", id).Update("total_photos", total).Error
}

func (r *Repository) SetTaskID(id uint, taskID string) error {
	return r.db.Model(&entities.Import{}).Where("id = ?", id).Update("task_id", taskID).Error
}

// RecordFailure stores per-photo failure detail, keeping at most
// entities.MaxRecordedFailures rows per import.
func (r *Repository) RecordFailure(id uint, externalPhotoID, reason string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entities.ImportFailure{}).Where("import_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count >= entities.MaxRecordedFailures {
			return nil
		}
		return tx.Create(&entities.ImportFailure{
			ImportID:        id,
			ExternalPhotoID: externalPhotoID,
			Reason:          reason,
		}).Error
	})
}

// Failures returns recorded failure detail in insertion order.
func (r *Repository) Failures(id uint) ([]entities.ImportFailure, error) {
	var failures []entities.ImportFailure
	err := r.db.Where("import_id = ?", id).Order("id").Find(&failures).Error
	return failures, err
}

// Delete removes the import and its failure detail. Photos it created are
// kept with import_id cleared.
func (r *Repository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Model(&entities.Photo{}).
			Where("import_id = ?", id).
			Update("import_id", nil).Error; err != nil {
			return fmt.Errorf("failed to detach photos: %w", err)
		}
		if err := tx.Where("import_id = ?", id).Delete(&entities.ImportFailure{}).Error; err != nil {
			return fmt.Errorf("failed to delete failures: %w", err)
		}
		result := tx.Delete(&entities.Import{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}
