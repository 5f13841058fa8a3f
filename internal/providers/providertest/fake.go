// Package providertest provides an in-memory Provider for tests.
package providertest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/mrlokans/gallery/internal/entities"
	"github.com/mrlokans/gallery/internal/providers"
)

// Fake serves albums and photos from memory. Photo bytes are looked up by
// photo id in Content; a missing entry makes Download fail.
type Fake struct {
	mu sync.Mutex

	ProviderName string
	Creds        *entities.Credentials

	Albums []providers.Album
	// Pages holds album contents per album id, one slice per page.
	Pages   map[string][][]providers.RemotePhoto
	Content map[string][]byte

	// ListErr fails ListAlbumPhotos for the given 1-based page.
	ListErr     error
	ListErrPage int
	RefreshErr  error
	ExchangeErr error

	// NoTotalPages reports TotalPages 0 on every photo page, as APIs that
	// do not count pages do.
	NoTotalPages bool
	// OnDownload runs at the start of Download, before ctx is checked.
	OnDownload func(photoID string)

	ListCalls     []int
	DownloadCalls []string
}

func New(name string) *Fake {
	return &Fake{
		ProviderName: name,
		Pages:        make(map[string][][]providers.RemotePhoto),
		Content:      make(map[string][]byte),
	}
}

// Factory returns a providers.Factory that always yields f and records
// the credentials it was built with.
func (f *Fake) Factory() providers.Factory {
	return func(creds *entities.Credentials) (providers.Provider, error) {
		f.mu.Lock()
		f.Creds = creds
		f.mu.Unlock()
		return f, nil
	}
}

// AddPhoto appends a photo with content to the given album page.
func (f *Fake) AddPhoto(albumID string, page int, id string, content []byte) providers.RemotePhoto {
	f.mu.Lock()
	defer f.mu.Unlock()

	for len(f.Pages[albumID]) < page {
		f.Pages[albumID] = append(f.Pages[albumID], nil)
	}
	photo := providers.RemotePhoto{
		"id":             id,
		"title":          "Photo " + id,
		"url":            "https://photos.example.com/" + id,
		"originalformat": "png",
	}
	f.Pages[albumID][page-1] = append(f.Pages[albumID][page-1], photo)
	if content != nil {
		f.Content[id] = content
	}
	return photo
}

func (f *Fake) Name() string { return f.ProviderName }

func (f *Fake) AuthorizeURL(_ context.Context, callbackURL string) (*providers.Authorization, error) {
	return &providers.Authorization{
		URL:           "https://auth.example.com/authorize?cb=" + callbackURL,
		RequestToken:  "req-token",
		RequestSecret: "req-secret",
		State:         "state-123",
	}, nil
}

func (f *Fake) Exchange(_ context.Context, params providers.ExchangeParams, _ string) (*entities.Credentials, error) {
	if f.ExchangeErr != nil {
		return nil, f.ExchangeErr
	}
	creds := &entities.Credentials{
		Provider:         f.ProviderName,
		AccessToken:      "access-" + params.Verifier + params.Code,
		AccessSecret:     "secret",
		ExternalUserID:   "ext-user",
		ExternalUsername: "someone",
	}
	if f.Creds != nil {
		creds.APIKey = f.Creds.APIKey
		creds.APISecret = f.Creds.APISecret
	}
	return creds, nil
}

func (f *Fake) Refresh(context.Context) (*entities.Credentials, error) {
	if f.RefreshErr != nil {
		return nil, f.RefreshErr
	}
	refreshed := &entities.Credentials{AccessToken: "refreshed-access"}
	if f.Creds != nil {
		refreshed.UserID = f.Creds.UserID
		refreshed.Provider = f.Creds.Provider
	}
	return refreshed, nil
}

func (f *Fake) ListAlbums(_ context.Context, page int) (*providers.AlbumPage, error) {
	if page > 1 {
		return &providers.AlbumPage{Page: page, TotalPages: 1, Total: len(f.Albums)}, nil
	}
	return &providers.AlbumPage{Albums: f.Albums, Page: 1, TotalPages: 1, Total: len(f.Albums)}, nil
}

func (f *Fake) ListAlbumPhotos(_ context.Context, albumID string, page int) (*providers.PhotoPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ListCalls = append(f.ListCalls, page)
	if f.ListErr != nil && (f.ListErrPage == 0 || f.ListErrPage == page) {
		return nil, f.ListErr
	}

	pages := f.Pages[albumID]
	total := 0
	for _, p := range pages {
		total += len(p)
	}
	result := &providers.PhotoPage{Page: page, TotalPages: len(pages), Total: total}
	if f.NoTotalPages {
		result.TotalPages = 0
	}
	if page >= 1 && page <= len(pages) {
		result.Photos = pages[page-1]
	}
	return result, nil
}

func (f *Fake) BestDownloadURL(photo providers.RemotePhoto) (string, error) {
	url := providers.StringValue(photo["url"])
	if url == "" {
		return "", providers.ErrNoDownloadURL
	}
	return url, nil
}

func (f *Fake) Download(ctx context.Context, photo providers.RemotePhoto) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.DownloadCalls = append(f.DownloadCalls, photo.ID())
	if f.OnDownload != nil {
		f.OnDownload(photo.ID())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, ok := f.Content[photo.ID()]
	if !ok {
		return nil, fmt.Errorf("download failed: 404 for %s", photo.ID())
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (f *Fake) MapToLocalAttrs(photo providers.RemotePhoto) (*providers.LocalAttrs, error) {
	return &providers.LocalAttrs{
		ExternalID:     photo.ID(),
		Title:          providers.StringValue(photo["title"]),
		OriginalFormat: providers.StringValue(photo["originalformat"]),
		Metadata:       map[string]any{"provider": f.ProviderName, "id": photo.ID()},
	}, nil
}

// Downloads returns a copy of the ids passed to Download.
func (f *Fake) Downloads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.DownloadCalls...)
}
