package entities

import (
	"time"
)

// ExternalConnection holds a user's credentials for one photo provider.
// Token and key columns contain base64 AES-256-GCM ciphertext.
type ExternalConnection struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID   uint   `gorm:"not null;uniqueIndex:idx_connections_user_provider,priority:1" json:"user_id"`
	Provider string `gorm:"size:50;not null;uniqueIndex:idx_connections_user_provider,priority:2" json:"provider"`

	AccessToken  string `gorm:"type:text" json:"-"`
	AccessSecret string `gorm:"type:text" json:"-"` // OAuth 1.0a token secret
	RefreshToken string `gorm:"type:text" json:"-"`
	APIKey       string `gorm:"type:text" json:"-"`
	APISecret    string `gorm:"type:text" json:"-"`

	TokenExpiresAt   *time.Time `json:"token_expires_at,omitempty"`
	ExternalUserID   string     `gorm:"size:255" json:"external_user_id,omitempty"`
	ExternalUsername string     `gorm:"size:255" json:"external_username,omitempty"`
	ConnectedAt      *time.Time `json:"connected_at,omitempty"`
	LastRefreshedAt  *time.Time `json:"last_refreshed_at,omitempty"`
}

func (ExternalConnection) TableName() string {
	return "external_connections"
}

// Connected reports whether an access token has been obtained.
func (c *ExternalConnection) Connected() bool {
	return c.AccessToken != ""
}

func (c *ExternalConnection) TokenExpired() bool {
	return c.TokenExpiresAt != nil && !time.Now().Before(*c.TokenExpiresAt)
}

// ExpiringWithin reports whether the token expires in less than d.
// Tokens without an expiry never expire.
func (c *ExternalConnection) ExpiringWithin(d time.Duration) bool {
	if c.TokenExpiresAt == nil {
		return false
	}
	return time.Now().Add(d).After(*c.TokenExpiresAt)
}

// Credentials is the decrypted form of an ExternalConnection.
// It only lives in memory.
type Credentials struct {
	UserID           uint
	Provider         string
	AccessToken      string
	AccessSecret     string
	RefreshToken     string
	APIKey           string
	APISecret        string
	TokenExpiresAt   *time.Time
	ExternalUserID   string
	ExternalUsername string
}

// HasAPIKey reports whether per-connection application keys are present.
func (c *Credentials) HasAPIKey() bool {
	return c != nil && c.APIKey != "" && c.APISecret != ""
}
