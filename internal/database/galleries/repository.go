// Package galleries provides database operations for galleries.
//
// # Usage
//
//	repo := galleries.NewRepository(db)
//	gallery, err := repo.Create(userID, "Holidays", "")
package galleries

import (
	"errors"

	"gorm.io/gorm"

	"github.com/mrlokans/gallery/internal/entities"
)

// Repository handles gallery persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new galleries repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(userID uint, title, description string) (*entities.Gallery, error) {
	gallery := &entities.Gallery{UserID: userID, Title: title, Description: description}
	if err := r.db.Create(gallery).Error; err != nil {
		return nil, err
	}
	return gallery, nil
}

// Delete permanently removes a gallery. Used to undo a gallery whose
// import could not be created; photos are never attached at that point.
func (r *Repository) Delete(id uint) error {
	return r.db.Unscoped().Delete(&entities.Gallery{}, id).Error
}

// GetForUser returns the gallery or nil when it does not exist or belongs
// to someone else.
func (r *Repository) GetForUser(id, userID uint) (*entities.Gallery, error) {
	var gallery entities.Gallery
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&gallery).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &gallery, nil
}
