// Package providers defines the contract every external photo service
// implements and the registry that builds clients per connection.
//
// Implementations live in sub-packages (flickr, googlephotos). A client is
// built per run from the user's decrypted credentials, so cached state such
// as page cursors never leaks between users.
package providers

import (
	"context"
	"io"
	"time"

	"github.com/mrlokans/gallery/internal/entities"
)

// Provider talks to one external photo service on behalf of one connection.
type Provider interface {
	// Name returns the registry key, e.g. "flickr".
	Name() string

	// AuthorizeURL starts the OAuth handshake. Handshake material in the
	// result must be kept by the caller until Exchange.
	AuthorizeURL(ctx context.Context, callbackURL string) (*Authorization, error)

	// Exchange completes the handshake and returns credentials to persist.
	Exchange(ctx context.Context, params ExchangeParams, callbackURL string) (*entities.Credentials, error)

	// Refresh renews short-lived tokens. Providers with non-expiring
	// tokens return the current credentials unchanged.
	Refresh(ctx context.Context) (*entities.Credentials, error)

	// ListAlbums returns a 1-based page of the user's albums.
	ListAlbums(ctx context.Context, page int) (*AlbumPage, error)

	// ListAlbumPhotos returns a 1-based page of album contents. An empty
	// page or TotalPages == 0 means the album is exhausted.
	ListAlbumPhotos(ctx context.Context, albumID string, page int) (*PhotoPage, error)

	// BestDownloadURL picks the highest quality URL, or ErrNoDownloadURL.
	BestDownloadURL(photo RemotePhoto) (string, error)

	// Download streams the photo bytes. The caller closes the reader.
	Download(ctx context.Context, photo RemotePhoto) (io.ReadCloser, error)

	// MapToLocalAttrs converts provider data to local photo attributes.
	MapToLocalAttrs(photo RemotePhoto) (*LocalAttrs, error)
}

// RemotePhoto is a provider's raw JSON photo object.
type RemotePhoto map[string]any

// ID returns the provider's photo id as a string.
func (p RemotePhoto) ID() string {
	return StringValue(p["id"])
}

type Authorization struct {
	URL           string
	RequestToken  string // OAuth 1.0a request token
	RequestSecret string // OAuth 1.0a request token secret
	State         string // OAuth 2 state
}

type ExchangeParams struct {
	Verifier      string // OAuth 1.0a oauth_verifier
	Code          string // OAuth 2 authorization code
	State         string
	RequestToken  string
	RequestSecret string
}

type Album struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	PhotoCount  int    `json:"photo_count"`
	CoverURL    string `json:"cover_url,omitempty"`
}

type AlbumPage struct {
	Albums     []Album `json:"albums"`
	Page       int     `json:"page"`
	TotalPages int     `json:"total_pages"`
	Total      int     `json:"total"`
}

type PhotoPage struct {
	Photos     []RemotePhoto
	Page       int
	TotalPages int
	Total      int
}

// LocalAttrs are the photo fields derived from provider data.
type LocalAttrs struct {
	ExternalID     string
	Title          string
	Caption        string
	CapturedAt     *time.Time
	OriginalFormat string
	Metadata       map[string]any
}
