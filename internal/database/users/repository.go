// Package users provides user lookups for request authentication and the
// single-user default account.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetUserByToken(token)
package users

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/gallery/internal/entities"
)

var ErrUserNotFound = errors.New("user not found")

// Repository handles user persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser creates a user with a freshly generated API token.
func (r *Repository) CreateUser(username, email string) (*entities.User, error) {
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	user := &entities.User{Username: username, Email: email, Token: token}
	if err := r.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// EnsureDefaultUser creates entities.DefaultUserID if it does not exist.
// Used when authentication is disabled.
func (r *Repository) EnsureDefaultUser() (*entities.User, error) {
	user, err := r.GetUserByID(entities.DefaultUserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	user = &entities.User{
		ID:       entities.DefaultUserID,
		Username: "default",
		Email:    "default@localhost",
		Token:    token,
	}
	if err := r.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create default user: %w", err)
	}
	return user, nil
}

func (r *Repository) GetUserByToken(token string) (*entities.User, error) {
	return r.first("token = ?", token)
}

func (r *Repository) GetUserByID(id uint) (*entities.User, error) {
	return r.first("id = ?", id)
}

func (r *Repository) GetUserByUsername(username string) (*entities.User, error) {
	return r.first("username = ?", username)
}

func (r *Repository) first(query string, arg any) (*entities.User, error) {
	var user entities.User
	err := r.db.Where(query, arg).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
