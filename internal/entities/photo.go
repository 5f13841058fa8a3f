package entities

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Photo is a locally stored copy of a remote photo. ImportID is cleared
// when the import that created it is deleted; the photo itself stays.
type Photo struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	UserID          uint           `gorm:"not null;index:idx_photos_user_external,priority:1" json:"user_id"`
	GalleryID       uint           `gorm:"index" json:"gallery_id"`
	ImportID        *uint          `gorm:"index:idx_photos_external_import,priority:2" json:"import_id,omitempty"`
	ExternalPhotoID string         `gorm:"size:255;index:idx_photos_external_import,priority:1;index:idx_photos_user_external,priority:2" json:"external_photo_id,omitempty"`
	Title           string         `gorm:"size:512" json:"title"`
	Caption         string         `gorm:"type:text" json:"caption,omitempty"`
	CapturedAt      *time.Time     `json:"captured_at,omitempty"`
	Filename        string         `gorm:"size:255" json:"filename"`
	ContentType     string         `gorm:"size:100" json:"content_type"`
	ByteSize        int64          `json:"byte_size"`
	StorageKey      string         `gorm:"size:1024" json:"storage_key"`
	Width           int            `json:"width,omitempty"`
	Height          int            `json:"height,omitempty"`
	ImportMetadata  JSONMap        `gorm:"type:text" json:"import_metadata,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

var (
	ErrPhotoMissingUser    = errors.New("photo has no owner")
	ErrPhotoMissingGallery = errors.New("photo has no gallery")
	ErrPhotoMissingFile    = errors.New("photo has no attached file")
	ErrPhotoMissingTitle   = errors.New("photo has no title")
)

// Validate checks the fields required before a photo is persisted.
func (p *Photo) Validate() error {
	switch {
	case p.UserID == 0:
		return ErrPhotoMissingUser
	case p.GalleryID == 0:
		return ErrPhotoMissingGallery
	case p.StorageKey == "" || p.Filename == "":
		return ErrPhotoMissingFile
	case p.Title == "":
		return ErrPhotoMissingTitle
	}
	return nil
}
