// Package credentials stores per-user provider credentials encrypted at
// rest with AES-256-GCM.
//
// # Usage
//
//	enc, err := credentials.ResolveEncryptor(cfg.Credentials)
//	store := credentials.NewStore(db, enc)
//	creds, err := store.Get(userID, "flickr")
package credentials

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/gallery/internal/crypto"
	"github.com/mrlokans/gallery/internal/entities"
)

var ErrNotConnected = errors.New("provider not connected")

// Store persists ExternalConnection rows and converts them to and from
// decrypted entities.Credentials.
type Store struct {
	db        *gorm.DB
	encryptor *crypto.Encryptor
}

func NewStore(db *gorm.DB, encryptor *crypto.Encryptor) *Store {
	return &Store{db: db, encryptor: encryptor}
}

// Save upserts the connection for (creds.UserID, creds.Provider).
func (s *Store) Save(creds *entities.Credentials) (*entities.ExternalConnection, error) {
	encrypted, err := s.encryptFields(creds)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	updates := map[string]any{
		"token_expires_at":  creds.TokenExpiresAt,
		"external_user_id":  creds.ExternalUserID,
		"external_username": creds.ExternalUsername,
		"connected_at":      now,
	}
	for column, value := range encrypted {
		updates[column] = value
	}

	conn := &entities.ExternalConnection{UserID: creds.UserID, Provider: creds.Provider}
	result := s.db.Where("user_id = ? AND provider = ?", creds.UserID, creds.Provider).
		Assign(updates).
		FirstOrCreate(conn)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to save connection: %w", result.Error)
	}
	return conn, nil
}

// Get returns decrypted credentials, or ErrNotConnected when the user has
// no usable connection to provider.
func (s *Store) Get(userID uint, provider string) (*entities.Credentials, error) {
	conn, err := s.GetConnection(userID, provider)
	if err != nil {
		return nil, err
	}
	if conn == nil || !conn.Connected() {
		return nil, ErrNotConnected
	}
	return s.decrypt(conn)
}

// GetConnection returns the stored row without decrypting it, or nil when
// none exists.
func (s *Store) GetConnection(userID uint, provider string) (*entities.ExternalConnection, error) {
	var conn entities.ExternalConnection
	err := s.db.Where("user_id = ? AND provider = ?", userID, provider).First(&conn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	return &conn, nil
}

// List returns the user's connections without decrypting them.
func (s *Store) List(userID uint) ([]entities.ExternalConnection, error) {
	var conns []entities.ExternalConnection
	if err := s.db.Where("user_id = ?", userID).Order("provider").Find(&conns).Error; err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	return conns, nil
}

// Delete disconnects the user from provider. Existing imports keep their
// connection id.
func (s *Store) Delete(userID uint, provider string) error {
	result := s.db.Where("user_id = ? AND provider = ?", userID, provider).
		Delete(&entities.ExternalConnection{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete connection: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotConnected
	}
	return nil
}

// ListExpiring returns refreshable connections whose token expires within margin.
func (s *Store) ListExpiring(margin time.Duration) ([]entities.ExternalConnection, error) {
	var conns []entities.ExternalConnection
	err := s.db.Where("token_expires_at IS NOT NULL AND token_expires_at < ? AND refresh_token <> ''",
		time.Now().Add(margin)).
		Find(&conns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring connections: %w", err)
	}
	return conns, nil
}

// UpdateAfterRefresh stores a refreshed access token. The refresh token is
// only replaced when the provider issued a new one.
func (s *Store) UpdateAfterRefresh(creds *entities.Credentials) error {
	accessToken, err := s.encryptor.Encrypt(creds.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	updates := map[string]any{
		"access_token":      accessToken,
		"token_expires_at":  creds.TokenExpiresAt,
		"last_refreshed_at": time.Now(),
	}
	if creds.RefreshToken != "" {
		refreshToken, err := s.encryptor.Encrypt(creds.RefreshToken)
		if err != nil {
			return fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
		updates["refresh_token"] = refreshToken
	}

	result := s.db.Model(&entities.ExternalConnection{}).
		Where("user_id = ? AND provider = ?", creds.UserID, creds.Provider).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update connection: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotConnected
	}
	return nil
}

func (s *Store) encryptFields(creds *entities.Credentials) (map[string]string, error) {
	plain := map[string]string{
		"access_token":  creds.AccessToken,
		"access_secret": creds.AccessSecret,
		"refresh_token": creds.RefreshToken,
		"api_key":       creds.APIKey,
		"api_secret":    creds.APISecret,
	}
	encrypted := make(map[string]string, len(plain))
	for column, value := range plain {
		ciphertext, err := s.encryptor.Encrypt(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt %s: %w", column, err)
		}
		encrypted[column] = ciphertext
	}
	return encrypted, nil
}

func (s *Store) decrypt(conn *entities.ExternalConnection) (*entities.Credentials, error) {
	creds := &entities.Credentials{
		UserID:           conn.UserID,
		Provider:         conn.Provider,
		TokenExpiresAt:   conn.TokenExpiresAt,
		ExternalUserID:   conn.ExternalUserID,
		ExternalUsername: conn.ExternalUsername,
	}
	fields := []struct {
		name string
		src  string
		dst  *string
	}{
		{"access token", conn.AccessToken, &creds.AccessToken},
		{"access secret", conn.AccessSecret, &creds.AccessSecret},
		{"refresh token", conn.RefreshToken, &creds.RefreshToken},
		{"api key", conn.APIKey, &creds.APIKey},
		{"api secret", conn.APISecret, &creds.APISecret},
	}
	for _, f := range fields {
		value, err := s.encryptor.Decrypt(f.src)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt %s: %w", f.name, err)
		}
		*f.dst = value
	}
	return creds, nil
}
