// Package flickr implements providers.Provider for Flickr photosets.
//
// Authentication is three-legged OAuth 1.0a. Each user supplies their own
// Flickr application key and secret, which are stored with the connection.
package flickr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/go-resty/resty/v2"
	"github.com/microcosm-cc/bluemonday"

	"github.com/mrlokans/gallery/internal/entities"
	"github.com/mrlokans/gallery/internal/providers"
)

const (
	Name        = "flickr"
	DisplayName = "Flickr"

	DefaultAPIURL  = "https://api.flickr.com/services/rest"
	DefaultSiteURL = "https://www.flickr.com"

	albumsPerPage = 50
	photosPerPage = 100

	photoExtras = "url_o,url_l,url_c,url_m,url_sq,date_taken,geo,tags,description,original_format"
)

// Config points the client at Flickr. Tests override the URLs.
type Config struct {
	APIURL     string
	SiteURL    string
	HTTPClient *http.Client // used for OAuth handshakes and downloads
	Timeout    time.Duration
}

// Client is a Flickr API client bound to one connection.
type Client struct {
	cfg       Config
	creds     entities.Credentials
	oauth     *oauth1.Config
	api       *resty.Client
	download  *resty.Client
	sanitizer *bluemonday.Policy
}

// APIError is a stat=fail response.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("flickr API error %d: %s", e.Code, e.Message)
}

// Registration returns the registry entry for Flickr.
func Registration(cfg Config) providers.Registration {
	return providers.Registration{
		Name:           Name,
		DisplayName:    DisplayName,
		RequiresAPIKey: true,
		Factory: func(creds *entities.Credentials) (providers.Provider, error) {
			return New(cfg, creds)
		},
	}
}

// New builds a client. creds must carry the application key and secret;
// access tokens are optional until the handshake completes.
func New(cfg Config, creds *entities.Credentials) (*Client, error) {
	if !creds.HasAPIKey() {
		return nil, fmt.Errorf("%w: Flickr API credentials not configured", providers.ErrCredentialsMissing)
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.SiteURL == "" {
		cfg.SiteURL = DefaultSiteURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	baseHTTP := cfg.HTTPClient
	if baseHTTP == nil {
		baseHTTP = &http.Client{}
	}

	site := strings.TrimRight(cfg.SiteURL, "/")
	oauthCfg := &oauth1.Config{
		ConsumerKey:    creds.APIKey,
		ConsumerSecret: creds.APISecret,
		Endpoint: oauth1.Endpoint{
			RequestTokenURL: site + "/services/oauth/request_token",
			AuthorizeURL:    site + "/services/oauth/authorize",
			AccessTokenURL:  site + "/services/oauth/access_token",
		},
		HTTPClient: baseHTTP,
	}

	c := &Client{
		cfg:       cfg,
		creds:     *creds,
		oauth:     oauthCfg,
		download:  resty.NewWithClient(&http.Client{Transport: baseHTTP.Transport}).SetTimeout(cfg.Timeout),
		sanitizer: bluemonday.StrictPolicy(),
	}
	c.api = c.signedClient(creds.AccessToken, creds.AccessSecret)
	return c, nil
}

func (c *Client) signedClient(token, secret string) *resty.Client {
	ctx := context.Background()
	if c.cfg.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth1.HTTPClient, c.cfg.HTTPClient)
	}
	signed := c.oauth.Client(ctx, oauth1.NewToken(token, secret))
	return resty.NewWithClient(signed).
		SetTimeout(c.cfg.Timeout).
		SetHeader("Accept", "application/json")
}

func (c *Client) Name() string { return Name }

func (c *Client) AuthorizeURL(_ context.Context, callbackURL string) (*providers.Authorization, error) {
	cfg := *c.oauth
	cfg.CallbackURL = callbackURL

	requestToken, requestSecret, err := cfg.RequestToken()
	if err != nil {
		return nil, fmt.Errorf("failed to get request token: %w", err)
	}
	authURL, err := cfg.AuthorizationURL(requestToken)
	if err != nil {
		return nil, fmt.Errorf("failed to build authorization URL: %w", err)
	}
	query := authURL.Query()
	query.Set("perms", "read")
	authURL.RawQuery = query.Encode()

	return &providers.Authorization{
		URL:           authURL.String(),
		RequestToken:  requestToken,
		RequestSecret: requestSecret,
	}, nil
}

func (c *Client) Exchange(ctx context.Context, params providers.ExchangeParams, callbackURL string) (*entities.Credentials, error) {
	if params.RequestToken == "" || params.RequestSecret == "" || params.Verifier == "" {
		return nil, fmt.Errorf("%w: missing request token or verifier", providers.ErrInvalidState)
	}

	cfg := *c.oauth
	cfg.CallbackURL = callbackURL
	accessToken, accessSecret, err := cfg.AccessToken(params.RequestToken, params.RequestSecret, params.Verifier)
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	c.creds.AccessToken = accessToken
	c.creds.AccessSecret = accessSecret
	c.api = c.signedClient(accessToken, accessSecret)

	var login struct {
		User struct {
			ID       string  `json:"id"`
			Username content `json:"username"`
		} `json:"user"`
	}
	if err := c.call(ctx, "flickr.test.login", nil, &login); err != nil {
		return nil, fmt.Errorf("failed to identify Flickr user: %w", err)
	}

	creds := c.creds
	creds.Provider = Name
	creds.ExternalUserID = login.User.ID
	creds.ExternalUsername = string(login.User.Username)
	c.creds = creds
	return &creds, nil
}

// Refresh returns the current credentials. Flickr OAuth 1.0a tokens do
// not expire.
func (c *Client) Refresh(context.Context) (*entities.Credentials, error) {
	creds := c.creds
	return &creds, nil
}

func (c *Client) ListAlbums(ctx context.Context, page int) (*providers.AlbumPage, error) {
	var resp struct {
		Photosets struct {
			Page     flexInt    `json:"page"`
			Pages    flexInt    `json:"pages"`
			Total    flexInt    `json:"total"`
			Photoset []photoset `json:"photoset"`
		} `json:"photosets"`
	}
	err := c.call(ctx, "flickr.photosets.getList", map[string]string{
		"user_id":              c.creds.ExternalUserID,
		"page":                 strconv.Itoa(page),
		"per_page":             strconv.Itoa(albumsPerPage),
		"primary_photo_extras": "url_sq,url_m",
	}, &resp)
	if err != nil {
		return nil, err
	}

	albums := make([]providers.Album, 0, len(resp.Photosets.Photoset))
	for _, ps := range resp.Photosets.Photoset {
		albums = append(albums, ps.toAlbum())
	}
	return &providers.AlbumPage{
		Albums:     albums,
		Page:       int(resp.Photosets.Page),
		TotalPages: int(resp.Photosets.Pages),
		Total:      int(resp.Photosets.Total),
	}, nil
}

func (c *Client) ListAlbumPhotos(ctx context.Context, albumID string, page int) (*providers.PhotoPage, error) {
	var resp struct {
		Photoset struct {
			Page  flexInt                 `json:"page"`
			Pages flexInt                 `json:"pages"`
			Total flexInt                 `json:"total"`
			Photo []providers.RemotePhoto `json:"photo"`
		} `json:"photoset"`
	}
	err := c.call(ctx, "flickr.photosets.getPhotos", map[string]string{
		"photoset_id": albumID,
		"user_id":     c.creds.ExternalUserID,
		"page":        strconv.Itoa(page),
		"per_page":    strconv.Itoa(photosPerPage),
		"extras":      photoExtras,
	}, &resp)
	if err != nil {
		return nil, err
	}

	return &providers.PhotoPage{
		Photos:     resp.Photoset.Photo,
		Page:       int(resp.Photoset.Page),
		TotalPages: int(resp.Photoset.Pages),
		Total:      int(resp.Photoset.Total),
	}, nil
}

// BestDownloadURL prefers original, then large, then 800px, then medium.
func (c *Client) BestDownloadURL(photo providers.RemotePhoto) (string, error) {
	for _, key := range []string{"url_o", "url_l", "url_c", "url_m"} {
		if url := providers.StringValue(photo[key]); url != "" {
			return url, nil
		}
	}
	return "", providers.ErrNoDownloadURL
}

func (c *Client) Download(ctx context.Context, photo providers.RemotePhoto) (io.ReadCloser, error) {
	url, err := c.BestDownloadURL(photo)
	if err != nil {
		return nil, err
	}

	resp, err := c.download.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
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

// call invokes a REST method and decodes the response into out.
func (c *Client) call(ctx context.Context, method string, params map[string]string, out any) error {
	resp, err := c.api.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetQueryParam("method", method).
		SetQueryParam("format", "json").
		SetQueryParam("nojsoncallback", "1").
		Get(c.cfg.APIURL)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%s returned HTTP %d", method, resp.StatusCode())
	}

	var status struct {
		Stat    string `json:"stat"`
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body(), &status); err != nil {
		return fmt.Errorf("%s returned invalid JSON: %w", method, err)
	}
	if status.Stat == "fail" {
		return &APIError{Code: status.Code, Message: status.Message}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	return nil
}
