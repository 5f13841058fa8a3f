package services

import (
	"context"
	"time"

	"github.com/mrlokans/gallery/internal/database/imports"
	"github.com/mrlokans/gallery/internal/entities"
)

// ConnectionStore persists provider credentials.
type ConnectionStore interface {
	Save(creds *entities.Credentials) (*entities.ExternalConnection, error)
	Get(userID uint, provider string) (*entities.Credentials, error)
	GetConnection(userID uint, provider string) (*entities.ExternalConnection, error)
	List(userID uint) ([]entities.ExternalConnection, error)
	Delete(userID uint, provider string) error
}

// ImportStore persists import records.
// Use this interface when you need to create, query or delete imports.
type ImportStore interface {
	Create(imp *entities.Import) error
	GetForUser(id, userID uint) (*entities.Import, error)
	ListForUser(userID uint, filter imports.ListFilter) ([]entities.Import, error)
	ExistsForAlbum(userID uint, provider, albumID string) (bool, error)
	ExternalAlbumIDs(userID uint, provider string) ([]string, error)
	SetTaskID(id uint, taskID string) error
	Failures(id uint) ([]entities.ImportFailure, error)
	Delete(id uint) error
}

// GalleryCreator creates the gallery an import writes into, and removes
// it again when the import cannot be created.
type GalleryCreator interface {
	Create(userID uint, title, description string) (*entities.Gallery, error)
	Delete(id uint) error
}

// ImportEnqueuer hands an import to the background queue.
type ImportEnqueuer interface {
	EnqueueImport(ctx context.Context, importID uint) (string, error)
}

// ProviderInfo describes a provider and the user's connection to it.
type ProviderInfo struct {
	Name             string     `json:"name"`
	DisplayName      string     `json:"display_name"`
	RequiresAPIKey   bool       `json:"requires_api_key"`
	Connected        bool       `json:"connected"`
	ExternalUsername string     `json:"external_username,omitempty"`
	ConnectedAt      *time.Time `json:"connected_at,omitempty"`
}

// ConnectParams carries user supplied application keys.
type ConnectParams struct {
	APIKey    string
	APISecret string
}

// Handshake is the OAuth material kept between connect and callback.
// It holds secrets and must stay server side.
type Handshake struct {
	Provider      string `json:"provider"`
	AuthorizeURL  string `json:"-"`
	RequestToken  string `json:"request_token,omitempty"`
	RequestSecret string `json:"request_secret,omitempty"`
	State         string `json:"state,omitempty"`
	APIKey        string `json:"api_key,omitempty"`
	APISecret     string `json:"api_secret,omitempty"`
}

// CallbackParams are the query parameters of the OAuth callback.
type CallbackParams struct {
	Token    string // oauth_token (OAuth 1.0a)
	Verifier string // oauth_verifier (OAuth 1.0a)
	Code     string // OAuth 2
	State    string // OAuth 2
}

// AlbumListing is one page of albums plus the ids already imported.
type AlbumListing struct {
	Albums           []AlbumSummary `json:"albums"`
	Page             int            `json:"page"`
	TotalPages       int            `json:"total_pages"`
	Total            int            `json:"total"`
	ImportedAlbumIDs []string       `json:"imported_album_ids"`
}

type AlbumSummary struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	PhotoCount  int    `json:"photo_count"`
	CoverURL    string `json:"cover_url,omitempty"`
	Imported    bool   `json:"imported"`
}

type StartImportParams struct {
	AlbumID    string
	AlbumTitle string
}

// ImportDetails is an import with derived progress and failure detail.
type ImportDetails struct {
	*entities.Import
	ProgressPercentage int                      `json:"progress_percentage"`
	Failures           []entities.ImportFailure `json:"failures"`
}
