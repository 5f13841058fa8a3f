package googlephotos

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/gallery/internal/entities"
	"github.com/mrlokans/gallery/internal/providers"
)

type googleServer struct {
	*httptest.Server
	searchTokens []string
}

func newGoogleServer(t *testing.T) *googleServer {
	t.Helper()
	gs := &googleServer{}
	mux := http.NewServeMux()

	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(v))
	}

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		switch r.Form.Get("grant_type") {
		case "authorization_code":
			assert.Equal(t, "auth-code", r.Form.Get("code"))
			writeJSON(w, map[string]any{"access_token": "access-1", "refresh_token": "refresh-1", "token_type": "Bearer", "expires_in": 3600})
		case "refresh_token":
			assert.Equal(t, "refresh-1", r.Form.Get("refresh_token"))
			writeJSON(w, map[string]any{"access_token": "access-2", "token_type": "Bearer", "expires_in": 3600})
		default:
			http.Error(w, "bad grant", http.StatusBadRequest)
		}
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		writeJSON(w, map[string]any{"sub": "1100223344", "name": "Jane Doe"})
	})
	mux.HandleFunc("/v1/albums", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"albums": []map[string]any{
			{"id": "alb-1", "title": "Trip", "mediaItemsCount": "3", "coverPhotoBaseUrl": "https://lh3.example.com/cover"},
		}})
	})
	mux.HandleFunc("/v1/albums/alb-1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"id": "alb-1", "title": "Trip", "mediaItemsCount": "3"})
	})
	mux.HandleFunc("/v1/mediaItems:search", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			AlbumID   string `json:"albumId"`
			PageSize  int    `json:"pageSize"`
			PageToken string `json:"pageToken"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alb-1", body.AlbumID)
		assert.Equal(t, 100, body.PageSize)
		gs.searchTokens = append(gs.searchTokens, body.PageToken)

		if body.PageToken == "" {
			writeJSON(w, map[string]any{
				"mediaItems": []map[string]any{
					{"id": "m1", "filename": "IMG_0001.HEIC", "mimeType": "image/heic", "baseUrl": gs.URL + "/media/m1",
						"description": "First", "mediaMetadata": map[string]any{"creationTime": "2024-01-02T03:04:05Z", "width": "4032", "height": "3024"}},
					{"id": "m2", "filename": "clip.mp4", "mimeType": "video/mp4", "baseUrl": gs.URL + "/media/m2"},
				},
				"nextPageToken": "tok-2",
			})
			return
		}
		assert.Equal(t, "tok-2", body.PageToken)
		writeJSON(w, map[string]any{"mediaItems": []map[string]any{
			{"id": "m3", "mimeType": "image/jpeg", "baseUrl": gs.URL + "/media/m3"},
		}})
	})
	mux.HandleFunc("/media/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "media:"+r.URL.Path)
	})

	gs.Server = httptest.NewServer(mux)
	t.Cleanup(gs.Close)
	return gs
}

func testConfig(srv *googleServer) Config {
	return Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		AuthURL:      srv.URL + "/auth",
		TokenURL:     srv.URL + "/token",
		APIURL:       srv.URL,
		UserInfoURL:  srv.URL + "/userinfo",
		Timeout:      5 * time.Second,
	}
}

func connectedClient(t *testing.T, srv *googleServer) *Client {
	t.Helper()
	expiry := time.Now().Add(time.Hour)
	client, err := New(testConfig(srv), &entities.Credentials{
		UserID: 1, Provider: Name, AccessToken: "access-1", RefreshToken: "refresh-1", TokenExpiresAt: &expiry,
	})
	require.NoError(t, err)
	return client
}

func TestNew_RequiresClientConfig(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.ErrorIs(t, err, providers.ErrCredentialsMissing)
}

func TestClient_AuthorizeAndExchange(t *testing.T) {
	srv := newGoogleServer(t)
	client, err := New(testConfig(srv), nil)
	require.NoError(t, err)
	ctx := context.Background()

	auth, err := client.AuthorizeURL(ctx, "http://localhost:8188/api/imports/google_photos/callback")
	require.NoError(t, err)
	assert.Len(t, auth.State, 32)

	parsed, err := url.Parse(auth.URL)
	require.NoError(t, err)
	assert.Equal(t, auth.State, parsed.Query().Get("state"))
	assert.Equal(t, "offline", parsed.Query().Get("access_type"))
	assert.Contains(t, parsed.Query().Get("scope"), "photoslibrary.readonly")
	assert.Equal(t, "http://localhost:8188/api/imports/google_photos/callback", parsed.Query().Get("redirect_uri"))

	creds, err := client.Exchange(ctx, providers.ExchangeParams{Code: "auth-code", State: auth.State}, "http://localhost:8188/api/imports/google_photos/callback")
	require.NoError(t, err)
	assert.Equal(t, "access-1", creds.AccessToken)
	assert.Equal(t, "refresh-1", creds.RefreshToken)
	assert.Equal(t, "1100223344", creds.ExternalUserID)
	assert.Equal(t, "Jane Doe", creds.ExternalUsername)
	require.NotNil(t, creds.TokenExpiresAt)
	assert.True(t, creds.TokenExpiresAt.After(time.Now()))

	_, err = client.Exchange(ctx, providers.ExchangeParams{}, "")
	assert.ErrorIs(t, err, providers.ErrInvalidState)
}

func TestClient_Refresh(t *testing.T) {
	srv := newGoogleServer(t)
	client := connectedClient(t, srv)

	creds, err := client.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-2", creds.AccessToken)
	assert.Equal(t, "refresh-1", creds.RefreshToken, "kept when not reissued")
}

func TestClient_ListAlbums(t *testing.T) {
	srv := newGoogleServer(t)
	client := connectedClient(t, srv)

	page, err := client.ListAlbums(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, page.Albums, 1)
	assert.Equal(t, "Trip", page.Albums[0].Title)
	assert.Equal(t, 3, page.Albums[0].PhotoCount)
	assert.Equal(t, 1, page.TotalPages)
}

func TestClient_ListAlbumPhotos_CursorPaging(t *testing.T) {
	srv := newGoogleServer(t)
	client := connectedClient(t, srv)
	ctx := context.Background()

	first, err := client.ListAlbumPhotos(ctx, "alb-1", 1)
	require.NoError(t, err)
	assert.Len(t, first.Photos, 2)
	assert.Equal(t, 2, first.TotalPages)
	assert.Equal(t, 3, first.Total)

	second, err := client.ListAlbumPhotos(ctx, "alb-1", 2)
	require.NoError(t, err)
	assert.Len(t, second.Photos, 1)
	assert.Equal(t, 2, second.TotalPages)
	assert.Equal(t, []string{"", "tok-2"}, srv.searchTokens)

	past, err := client.ListAlbumPhotos(ctx, "alb-1", 3)
	require.NoError(t, err)
	assert.Empty(t, past.Photos)
}

func TestClient_ListAlbumPhotos_WalksToUncachedPage(t *testing.T) {
	srv := newGoogleServer(t)
	client := connectedClient(t, srv)

	page, err := client.ListAlbumPhotos(context.Background(), "alb-1", 2)
	require.NoError(t, err)
	require.Len(t, page.Photos, 1)
	assert.Equal(t, "m3", page.Photos[0].ID())
}

func TestClient_DownloadAndMapping(t *testing.T) {
	srv := newGoogleServer(t)
	client := connectedClient(t, srv)
	ctx := context.Background()

	page, err := client.ListAlbumPhotos(ctx, "alb-1", 1)
	require.NoError(t, err)
	photo, video := page.Photos[0], page.Photos[1]

	url, err := client.BestDownloadURL(photo)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/media/m1=d", url)
	url, err = client.BestDownloadURL(video)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/media/m2=dv", url)

	_, err = client.BestDownloadURL(providers.RemotePhoto{"id": "x"})
	assert.ErrorIs(t, err, providers.ErrNoDownloadURL)

	body, err := client.Download(ctx, photo)
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	body.Close()
	assert.Equal(t, "media:/media/m1=d", string(data))

	attrs, err := client.MapToLocalAttrs(photo)
	require.NoError(t, err)
	assert.Equal(t, "m1", attrs.ExternalID)
	assert.Equal(t, "IMG_0001", attrs.Title)
	assert.Equal(t, "First", attrs.Caption)
	assert.Equal(t, "HEIC", attrs.OriginalFormat)
	require.NotNil(t, attrs.CapturedAt)
	assert.Equal(t, 2024, attrs.CapturedAt.Year())
	assert.Equal(t, 4032, attrs.Metadata["width"])

	attrs, err = client.MapToLocalAttrs(page.Photos[1])
	require.NoError(t, err)
	assert.Equal(t, "mp4", attrs.OriginalFormat)
	assert.Equal(t, "clip", attrs.Title)
}

func TestOriginalFormat(t *testing.T) {
	assert.Equal(t, "jpg", originalFormat("a.jpg", "image/jpeg"))
	assert.Equal(t, "jpeg", originalFormat("", "image/jpeg"))
	assert.Equal(t, "", originalFormat("", ""))
}
