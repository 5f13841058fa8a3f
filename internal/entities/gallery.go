package entities

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Gallery struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"index;not null" json:"user_id"`
	Title       string         `gorm:"size:512;not null" json:"title"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// ImportGalleryTitle names the gallery created for an album import.
// Albums without a title get "<Provider> Import <YYYY-MM-DD HH:MM>".
func ImportGalleryTitle(albumTitle, providerDisplayName string, now time.Time) string {
	if albumTitle != "" {
		return albumTitle
	}
	return fmt.Sprintf("%s Import %s", providerDisplayName, now.Format("2006-01-02 15:04"))
}
