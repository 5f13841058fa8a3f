// Package googlephotos implements providers.Provider for Google Photos
// albums using the authorization-code OAuth 2 flow.
package googlephotos

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"

	"github.com/mrlokans/gallery/internal/entities"
	"github.com/mrlokans/gallery/internal/providers"
)

const (
	Name        = "google_photos"
	DisplayName = "Google Photos"

	DefaultAuthURL     = "https://accounts.google.com/o/oauth2/auth"
	DefaultTokenURL    = "https://oauth2.googleapis.com/token"
	DefaultAPIURL      = "https://photoslibrary.googleapis.com"
	DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

	albumsPerPage = 50
	photosPerPage = 100
)

var scopes = []string{
	"https://www.googleapis.com/auth/photoslibrary.readonly",
	"openid",
	"profile",
}

// Config holds the application's OAuth client and endpoint overrides.
type Config struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	APIURL       string
	UserInfoURL  string
	HTTPClient   *http.Client
	Timeout      time.Duration
}

// Client is a Google Photos client bound to one connection.
type Client struct {
	cfg    Config
	oauth  *oauth2.Config
	creds  entities.Credentials
	token  *oauth2.Token
	api    *resty.Client
	cursor *cursorCache

	totalsMu sync.Mutex
	totals   map[string]int
}

// Registration returns the registry entry for Google Photos.
func Registration(cfg Config) providers.Registration {
	return providers.Registration{
		Name:        Name,
		DisplayName: DisplayName,
		Factory: func(creds *entities.Credentials) (providers.Provider, error) {
			return New(cfg, creds)
		},
	}
}

// New builds a client. creds may be nil while a connection is being set up.
func New(cfg Config, creds *entities.Credentials) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: Google Photos OAuth client not configured", providers.ErrCredentialsMissing)
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = DefaultUserInfoURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	c := &Client{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
			Scopes: scopes,
		},
		cursor: newCursorCache(),
		totals: make(map[string]int),
	}
	if creds != nil {
		c.creds = *creds
	}
	c.setToken(&oauth2.Token{
		AccessToken:  c.creds.AccessToken,
		RefreshToken: c.creds.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       expiryOf(c.creds.TokenExpiresAt),
	})
	return c, nil
}

func (c *Client) context(ctx context.Context) context.Context {
	if c.cfg.HTTPClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, c.cfg.HTTPClient)
	}
	return ctx
}

func (c *Client) setToken(token *oauth2.Token) {
	c.token = token
	httpClient := c.oauth.Client(c.context(context.Background()), token)
	c.api = resty.NewWithClient(httpClient).
		SetTimeout(c.cfg.Timeout).
		SetHeader("Accept", "application/json")
}

func (c *Client) Name() string { return Name }

func (c *Client) AuthorizeURL(_ context.Context, callbackURL string) (*providers.Authorization, error) {
	state, err := randomState()
	if err != nil {
		return nil, err
	}
	cfg := *c.oauth
	cfg.RedirectURL = callbackURL
	return &providers.Authorization{
		URL:   cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce),
		State: state,
	}, nil
}

func (c *Client) Exchange(ctx context.Context, params providers.ExchangeParams, callbackURL string) (*entities.Credentials, error) {
	if params.Code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", providers.ErrInvalidState)
	}

	cfg := *c.oauth
	cfg.RedirectURL = callbackURL
	token, err := cfg.Exchange(c.context(ctx), params.Code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}
	c.setToken(token)

	var info struct {
		Sub  string `json:"sub"`
		Name string `json:"name"`
	}
	resp, err := c.api.R().SetContext(ctx).SetResult(&info).Get(c.cfg.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("user info returned HTTP %d", resp.StatusCode())
	}

	c.creds.Provider = Name
	c.creds.AccessToken = token.AccessToken
	c.creds.RefreshToken = token.RefreshToken
	c.creds.TokenExpiresAt = expiryPtr(token.Expiry)
	c.creds.ExternalUserID = info.Sub
	c.creds.ExternalUsername = info.Name
	creds := c.creds
	return &creds, nil
}

// Refresh obtains a new access token from the refresh token.
func (c *Client) Refresh(ctx context.Context) (*entities.Credentials, error) {
	if c.creds.RefreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token", providers.ErrCredentialsMissing)
	}
	stale := &oauth2.Token{RefreshToken: c.creds.RefreshToken, Expiry: time.Now().Add(-time.Minute)}
	token, err := c.oauth.TokenSource(c.context(ctx), stale).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	c.setToken(token)

	c.creds.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		c.creds.RefreshToken = token.RefreshToken
	}
	c.creds.TokenExpiresAt = expiryPtr(token.Expiry)
	creds := c.creds
	return &creds, nil
}

type albumJSON struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	MediaItemsCount   string `json:"mediaItemsCount"`
	CoverPhotoBaseURL string `json:"coverPhotoBaseUrl"`
}

func (a albumJSON) toAlbum() providers.Album {
	cover := ""
	if a.CoverPhotoBaseURL != "" {
		cover = a.CoverPhotoBaseURL + "=w512-h512-c"
	}
	return providers.Album{
		ID:         a.ID,
		Title:      a.Title,
		PhotoCount: providers.IntValue(a.MediaItemsCount),
		CoverURL:   cover,
	}
}

func (c *Client) ListAlbums(ctx context.Context, page int) (*providers.AlbumPage, error) {
	var resp struct {
		Albums        []albumJSON `json:"albums"`
		NextPageToken string      `json:"nextPageToken"`
	}
	fetch := func(ctx context.Context, token string) (string, error) {
		resp.Albums, resp.NextPageToken = nil, ""
		req := c.api.R().SetContext(ctx).
			SetQueryParam("pageSize", fmt.Sprint(albumsPerPage)).
			SetResult(&resp)
		if token != "" {
			req.SetQueryParam("pageToken", token)
		}
		r, err := req.Get(c.cfg.APIURL + "/v1/albums")
		if err != nil {
			return "", fmt.Errorf("failed to list albums: %w", err)
		}
		if r.IsError() {
			return "", fmt.Errorf("list albums returned HTTP %d", r.StatusCode())
		}
		return resp.NextPageToken, nil
	}

	reached, err := c.cursor.fetchPage(ctx, "albums", page, fetch)
	if err != nil {
		return nil, err
	}
	if !reached {
		return &providers.AlbumPage{Page: page, TotalPages: page - 1}, nil
	}

	albums := make([]providers.Album, 0, len(resp.Albums))
	for _, a := range resp.Albums {
		albums = append(albums, a.toAlbum())
	}
	return &providers.AlbumPage{
		Albums:     albums,
		Page:       page,
		TotalPages: pagesFor(page, resp.NextPageToken),
		Total:      (page-1)*albumsPerPage + len(albums),
	}, nil
}

func (c *Client) ListAlbumPhotos(ctx context.Context, albumID string, page int) (*providers.PhotoPage, error) {
	var resp struct {
		MediaItems    []providers.RemotePhoto `json:"mediaItems"`
		NextPageToken string                  `json:"nextPageToken"`
	}
	fetch := func(ctx context.Context, token string) (string, error) {
		resp.MediaItems, resp.NextPageToken = nil, ""
		body := map[string]any{"albumId": albumID, "pageSize": photosPerPage}
		if token != "" {
			body["pageToken"] = token
		}
		r, err := c.api.R().SetContext(ctx).
			SetBody(body).
			SetResult(&resp).
			Post(c.cfg.APIURL + "/v1/mediaItems:search")
		if err != nil {
			return "", fmt.Errorf("failed to search media items: %w", err)
		}
		if r.IsError() {
			return "", fmt.Errorf("media items search returned HTTP %d", r.StatusCode())
		}
		return resp.NextPageToken, nil
	}

	reached, err := c.cursor.fetchPage(ctx, "album:"+albumID, page, fetch)
	if err != nil {
		return nil, err
	}
	if !reached {
		return &providers.PhotoPage{Page: page, TotalPages: page - 1}, nil
	}

	total, err := c.albumTotal(ctx, albumID)
	if err != nil {
		return nil, err
	}
	return &providers.PhotoPage{
		Photos:     resp.MediaItems,
		Page:       page,
		TotalPages: pagesFor(page, resp.NextPageToken),
		Total:      total,
	}, nil
}

func (c *Client) albumTotal(ctx context.Context, albumID string) (int, error) {
	c.totalsMu.Lock()
	total, ok := c.totals[albumID]
	c.totalsMu.Unlock()
	if ok {
		return total, nil
	}

	var album albumJSON
	r, err := c.api.R().SetContext(ctx).SetResult(&album).Get(c.cfg.APIURL + "/v1/albums/" + albumID)
	if err != nil {
		return 0, fmt.Errorf("failed to get album: %w", err)
	}
	if r.IsError() {
		return 0, fmt.Errorf("get album returned HTTP %d", r.StatusCode())
	}
	total = providers.IntValue(album.MediaItemsCount)

	c.totalsMu.Lock()
	c.totals[albumID] = total
	c.totalsMu.Unlock()
	return total, nil
}

// BestDownloadURL returns the original-quality URL for the media item.
func (c *Client) BestDownloadURL(photo providers.RemotePhoto) (string, error) {
	base := providers.StringValue(photo["baseUrl"])
	if base == "" {
		return "", providers.ErrNoDownloadURL
	}
	if strings.HasPrefix(providers.StringValue(photo["mimeType"]), "video/") {
		return base + "=dv", nil
	}
	return base + "=d", nil
}

func (c *Client) Download(ctx context.Context, photo providers.RemotePhoto) (io.ReadCloser, error) {
	url, err := c.BestDownloadURL(photo)
	if err != nil {
		return nil, err
	}
	resp, err := c.api.R().SetContext(ctx).SetDoNotParseResponse(true).Get(url)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	body := resp.RawBody()
	if resp.IsError() {
		body.Close()
		return nil, fmt.Errorf("download failed: HTTP %d", resp.StatusCode())
	}
	return body, nil
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func expiryOf(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func expiryPtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// pagesFor reports one more page while the API hands out a next token.
func pagesFor(page int, nextToken string) int {
	if nextToken != "" {
		return page + 1
	}
	return page
}
