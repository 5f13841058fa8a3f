// Package photos provides database operations for imported photos.
//
// # Usage
//
//	repo := photos.NewRepository(db)
//	exists, err := repo.ExistsForUser(externalID, userID)
package photos

import (
	"gorm.io/gorm"

	"github.com/mrlokans/gallery/internal/entities"
)

// Repository handles photo persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new photos repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ExistsForUser reports whether the user already owns a photo imported
// from the given external id, across all imports.
func (r *Repository) ExistsForUser(externalPhotoID string, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&entities.Photo{}).
		Where("external_photo_id = ? AND user_id = ?", externalPhotoID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) Create(photo *entities.Photo) error {
	return r.db.Create(photo).Error
}

// ListForImport returns photos created by an import.
func (r *Repository) ListForImport(importID uint) ([]entities.Photo, error) {
	var result []entities.Photo
	err := r.db.Where("import_id = ?", importID).Order("id").Find(&result).Error
	return result, err
}

// CountForGallery returns the number of photos in a gallery.
func (r *Repository) CountForGallery(galleryID uint) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Photo{}).Where("gallery_id = ?", galleryID).Count(&count).Error
	return count, err
}
