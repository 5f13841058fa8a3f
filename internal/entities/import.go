package entities

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"
)

type ImportStatus string

const (
	ImportStatusPending    ImportStatus = "pending"
	ImportStatusInProgress ImportStatus = "in_progress"
	ImportStatusCompleted  ImportStatus = "completed"
	ImportStatusFailed     ImportStatus = "failed"
)

// MaxRecordedFailures caps the per-import failure detail rows.
const MaxRecordedFailures = 50

var ErrInvalidTransition = errors.New("invalid import status transition")

// importTransitions lists, per target status, the statuses it may be
// entered from. The entity methods and the repository's conditional
// updates both read it.
var importTransitions = map[ImportStatus][]ImportStatus{
	ImportStatusInProgress: {ImportStatusPending, ImportStatusInProgress},
	ImportStatusCompleted:  {ImportStatusInProgress},
	ImportStatusFailed:     {ImportStatusInProgress},
}

// ActiveImportStatuses are the statuses of imports that still have work.
var ActiveImportStatuses = []ImportStatus{ImportStatusPending, ImportStatusInProgress}

// TransitionSources returns the statuses from which to can be entered.
func TransitionSources(to ImportStatus) []ImportStatus {
	return slices.Clone(importTransitions[to])
}

func (s ImportStatus) CanTransitionTo(to ImportStatus) bool {
	return slices.Contains(importTransitions[to], s)
}

// Import tracks one attempt to copy an external album into a gallery.
//
// Status moves pending -> in_progress -> completed|failed. Terminal states
// never change. in_progress -> in_progress is allowed so a redelivered job
// can re-enter its own run.
type Import struct {
	ID                   uint         `gorm:"primaryKey" json:"id"`
	UserID               uint         `gorm:"not null;uniqueIndex:idx_imports_user_provider_album,priority:1" json:"user_id"`
	GalleryID            *uint        `gorm:"index" json:"gallery_id,omitempty"`
	ExternalConnectionID *uint        `gorm:"index" json:"external_connection_id,omitempty"`
	Provider             string       `gorm:"size:50;not null;uniqueIndex:idx_imports_user_provider_album,priority:2" json:"provider"`
	ExternalAlbumID      string       `gorm:"size:255;not null;uniqueIndex:idx_imports_user_provider_album,priority:3" json:"external_album_id"`
	AlbumTitle           string       `gorm:"size:512" json:"album_title"`
	Status               ImportStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	TotalPhotos          int          `gorm:"not null;default:0" json:"total_photos"`
	ImportedCount        int          `gorm:"not null;default:0" json:"imported_count"`
	FailedCount          int          `gorm:"not null;default:0" json:"failed_count"`
	SkippedCount         int          `gorm:"not null;default:0" json:"skipped_count"`
	ErrorMessage         *string      `gorm:"type:text" json:"error_message,omitempty"`
	TaskID               string       `gorm:"size:64" json:"task_id,omitempty"`
	StartedAt            *time.Time   `json:"started_at,omitempty"`
	CompletedAt          *time.Time   `json:"completed_at,omitempty"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`

	Failures []ImportFailure `gorm:"foreignKey:ImportID" json:"failures,omitempty"`
}

// ImportFailure records why a single remote photo could not be imported.
type ImportFailure struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ImportID        uint      `gorm:"not null;index" json:"import_id"`
	ExternalPhotoID string    `gorm:"size:255" json:"external_photo_id"`
	Reason          string    `gorm:"type:text" json:"reason"`
	CreatedAt       time.Time `json:"created_at"`
}

func (s ImportStatus) IsTerminal() bool {
	return s == ImportStatusCompleted || s == ImportStatusFailed
}

func (i *Import) IsTerminal() bool { return i.Status.IsTerminal() }

func (i *Import) IsActive() bool {
	return slices.Contains(ActiveImportStatuses, i.Status)
}

// Processed is the number of photos the run has handled in any way.
func (i *Import) Processed() int {
	return i.ImportedCount + i.FailedCount + i.SkippedCount
}

// ProgressPercentage is the rounded share of processed photos, in [0, 100].
func (i *Import) ProgressPercentage() int {
	if i.TotalPhotos <= 0 {
		return 0
	}
	pct := int(math.Round(float64(i.Processed()) * 100 / float64(i.TotalPhotos)))
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

// Start moves the import into in_progress.
func (i *Import) Start(now time.Time) error {
	if err := i.moveTo(ImportStatusInProgress); err != nil {
		return err
	}
	if i.StartedAt == nil {
		i.StartedAt = &now
	}
	return nil
}

func (i *Import) Complete(now time.Time) error {
	if err := i.moveTo(ImportStatusCompleted); err != nil {
		return err
	}
	i.CompletedAt = &now
	return nil
}

func (i *Import) Fail(message string, now time.Time) error {
	if err := i.moveTo(ImportStatusFailed); err != nil {
		return err
	}
	i.ErrorMessage = &message
	i.CompletedAt = &now
	return nil
}

func (i *Import) moveTo(to ImportStatus) error {
	if !i.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, i.Status, to)
	}
	i.Status = to
	return nil
}
