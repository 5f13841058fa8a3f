package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mrlokans/gallery/internal/credentials"
	"github.com/mrlokans/gallery/internal/database/imports"
	"github.com/mrlokans/gallery/internal/entities"
	"github.com/mrlokans/gallery/internal/logger"
	"github.com/mrlokans/gallery/internal/providers"
)

// ImportService implements the album import use cases behind the HTTP API
// and the CLI: connecting providers, browsing albums and managing imports.
type ImportService struct {
	registry    *providers.Registry
	connections ConnectionStore
	imports     ImportStore
	galleries   GalleryCreator
	queue       ImportEnqueuer
	publicURL   string
	now         func() time.Time
}

// NewImportService creates a new ImportService. publicURL is the externally
// reachable base URL used to build OAuth callback URLs.
func NewImportService(
	registry *providers.Registry,
	connections ConnectionStore,
	importStore ImportStore,
	galleries GalleryCreator,
	queue ImportEnqueuer,
	publicURL string,
) *ImportService {
	return &ImportService{
		registry:    registry,
		connections: connections,
		imports:     importStore,
		galleries:   galleries,
		queue:       queue,
		publicURL:   strings.TrimSuffix(publicURL, "/"),
		now:         time.Now,
	}
}

// CallbackURL returns the OAuth callback URL for provider.
func (s *ImportService) CallbackURL(provider string) string {
	return s.publicURL + "/api/imports/" + url.PathEscape(provider) + "/callback"
}

func (s *ImportService) lookup(provider string) (providers.Registration, error) {
	reg, err := s.registry.Lookup(provider)
	if err != nil {
		return reg, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	return reg, nil
}

// Providers lists registered providers with the user's connection status.
func (s *ImportService) Providers(userID uint) ([]ProviderInfo, error) {
	conns, err := s.connections.List(userID)
	if err != nil {
		return nil, err
	}
	byProvider := make(map[string]entities.ExternalConnection, len(conns))
	for _, c := range conns {
		byProvider[c.Provider] = c
	}

	regs := s.registry.List()
	result := make([]ProviderInfo, 0, len(regs))
	for _, reg := range regs {
		info := ProviderInfo{
			Name:           reg.Name,
			DisplayName:    reg.DisplayName,
			RequiresAPIKey: reg.RequiresAPIKey,
		}
		if conn, ok := byProvider[reg.Name]; ok && conn.Connected() {
			info.Connected = true
			info.ExternalUsername = conn.ExternalUsername
			info.ConnectedAt = conn.ConnectedAt
		}
		result = append(result, info)
	}
	return result, nil
}

// BeginConnect starts the OAuth handshake. The returned Handshake must be
// kept server side until CompleteConnect.
func (s *ImportService) BeginConnect(ctx context.Context, userID uint, provider string, params ConnectParams) (*Handshake, error) {
	reg, err := s.lookup(provider)
	if err != nil {
		return nil, err
	}

	appKeys := &entities.Credentials{
		UserID:    userID,
		Provider:  provider,
		APIKey:    strings.TrimSpace(params.APIKey),
		APISecret: strings.TrimSpace(params.APISecret),
	}
	client, err := reg.Factory(appKeys)
	if err != nil {
		return nil, err
	}

	auth, err := client.AuthorizeURL(ctx, s.CallbackURL(provider))
	if err != nil {
		return nil, fmt.Errorf("failed to start %s authorization: %w", provider, err)
	}

	return &Handshake{
		Provider:      provider,
		AuthorizeURL:  auth.URL,
		RequestToken:  auth.RequestToken,
		RequestSecret: auth.RequestSecret,
		State:         auth.State,
		APIKey:        appKeys.APIKey,
		APISecret:     appKeys.APISecret,
	}, nil
}

// CompleteConnect validates the callback against the stored handshake,
// exchanges it for tokens and saves the connection.
func (s *ImportService) CompleteConnect(ctx context.Context, userID uint, handshake *Handshake, params CallbackParams) (*entities.ExternalConnection, error) {
	if handshake == nil {
		return nil, fmt.Errorf("%w: no authorization in progress", providers.ErrInvalidState)
	}
	if handshake.State != "" && params.State != handshake.State {
		return nil, providers.ErrInvalidState
	}
	if handshake.RequestToken != "" && params.Token != "" && params.Token != handshake.RequestToken {
		return nil, providers.ErrInvalidState
	}

	reg, err := s.lookup(handshake.Provider)
	if err != nil {
		return nil, err
	}
	client, err := reg.Factory(&entities.Credentials{
		UserID:    userID,
		Provider:  handshake.Provider,
		APIKey:    handshake.APIKey,
		APISecret: handshake.APISecret,
	})
	if err != nil {
		return nil, err
	}

	creds, err := client.Exchange(ctx, providers.ExchangeParams{
		Verifier:      params.Verifier,
		Code:          params.Code,
		State:         params.State,
		RequestToken:  handshake.RequestToken,
		RequestSecret: handshake.RequestSecret,
	}, s.CallbackURL(handshake.Provider))
	if err != nil {
		return nil, fmt.Errorf("failed to complete %s authorization: %w", handshake.Provider, err)
	}

	creds.UserID = userID
	creds.Provider = handshake.Provider
	if creds.APIKey == "" {
		creds.APIKey, creds.APISecret = handshake.APIKey, handshake.APISecret
	}

	conn, err := s.connections.Save(creds)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logger.Fields{
		logger.FieldUserID:   userID,
		logger.FieldProvider: handshake.Provider,
	}).Info("[IMPORT] provider connected")
	return conn, nil
}

// Disconnect removes the user's credentials. Existing imports are kept.
func (s *ImportService) Disconnect(userID uint, provider string) error {
	if _, err := s.lookup(provider); err != nil {
		return err
	}
	return s.connections.Delete(userID, provider)
}

func (s *ImportService) client(userID uint, provider string) (providers.Provider, error) {
	reg, err := s.lookup(provider)
	if err != nil {
		return nil, err
	}
	creds, err := s.connections.Get(userID, provider)
	if err != nil {
		return nil, err
	}
	return reg.Factory(creds)
}

// ListAlbums returns one page of the user's remote albums, flagging those
// that already have an import.
func (s *ImportService) ListAlbums(ctx context.Context, userID uint, provider string, page int) (*AlbumListing, error) {
	if page < 1 {
		page = 1
	}
	client, err := s.client(userID, provider)
	if err != nil {
		return nil, err
	}

	albums, err := client.ListAlbums(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s albums: %w", provider, err)
	}
	imported, err := s.imports.ExternalAlbumIDs(userID, provider)
	if err != nil {
		return nil, err
	}
	importedSet := make(map[string]bool, len(imported))
	for _, id := range imported {
		importedSet[id] = true
	}

	listing := &AlbumListing{
		Albums:           make([]AlbumSummary, 0, len(albums.Albums)),
		Page:             albums.Page,
		TotalPages:       albums.TotalPages,
		Total:            albums.Total,
		ImportedAlbumIDs: imported,
	}
	if listing.ImportedAlbumIDs == nil {
		listing.ImportedAlbumIDs = []string{}
	}
	for _, a := range albums.Albums {
		listing.Albums = append(listing.Albums, AlbumSummary{
			ID:          a.ID,
			Title:       a.Title,
			Description: a.Description,
			PhotoCount:  a.PhotoCount,
			CoverURL:    a.CoverURL,
			Imported:    importedSet[a.ID],
		})
	}
	return listing, nil
}

// StartImport creates a gallery and a pending import for an album and
// enqueues the run. An album can be imported once per user.
//
// If enqueueing fails the import stays pending without a task id and the
// stale-import job picks it up later.
func (s *ImportService) StartImport(ctx context.Context, userID uint, provider string, params StartImportParams) (*entities.Import, error) {
	reg, err := s.lookup(provider)
	if err != nil {
		return nil, err
	}
	albumID := strings.TrimSpace(params.AlbumID)
	if albumID == "" {
		return nil, fmt.Errorf("%w: album_id is required", ErrInvalidInput)
	}

	exists, err := s.imports.ExistsForAlbum(userID, provider, albumID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyImported
	}

	conn, err := s.connections.GetConnection(userID, provider)
	if err != nil {
		return nil, err
	}
	if conn == nil || !conn.Connected() {
		return nil, credentials.ErrNotConnected
	}

	title := strings.TrimSpace(params.AlbumTitle)
	gallery, err := s.galleries.Create(userID, entities.ImportGalleryTitle(title, reg.DisplayName, s.now()), "")
	if err != nil {
		return nil, fmt.Errorf("failed to create gallery: %w", err)
	}

	connID := conn.ID
	imp := &entities.Import{
		UserID:               userID,
		GalleryID:            &gallery.ID,
		ExternalConnectionID: &connID,
		Provider:             provider,
		ExternalAlbumID:      albumID,
		AlbumTitle:           title,
	}
	if err := s.imports.Create(imp); err != nil {
		if delErr := s.galleries.Delete(gallery.ID); delErr != nil {
			logger.WithFields(logger.Fields{"gallery_id": gallery.ID}).
				WithError(delErr).Warn("[IMPORT] failed to remove gallery of unsaved import")
		}
		// Lost a race with a concurrent request for the same album.
		exists, lookupErr := s.imports.ExistsForAlbum(userID, provider, albumID)
		if lookupErr != nil {
			return nil, fmt.Errorf("failed to create import: %w", errors.Join(err, lookupErr))
		}
		if exists {
			return nil, ErrAlreadyImported
		}
		return nil, fmt.Errorf("failed to create import: %w", err)
	}

	log := logger.WithFields(logger.Fields{
		logger.FieldImportID: imp.ID,
		logger.FieldUserID:   userID,
		logger.FieldProvider: provider,
	})
	taskID, err := s.queue.EnqueueImport(ctx, imp.ID)
	if err != nil {
		log.WithError(err).Error("[IMPORT] failed to enqueue import")
		return imp, nil
	}
	if err := s.imports.SetTaskID(imp.ID, taskID); err != nil {
		log.WithError(err).Warn("[IMPORT] failed to record task id")
	} else {
		imp.TaskID = taskID
	}
	log.WithField(logger.FieldTaskID, taskID).Info("[IMPORT] import enqueued")
	return imp, nil
}

// GetImport returns an import owned by userID with progress and failures.
func (s *ImportService) GetImport(userID, importID uint) (*ImportDetails, error) {
	imp, err := s.imports.GetForUser(importID, userID)
	if errors.Is(err, imports.ErrNotFound) {
		return nil, ErrImportNotFound
	}
	if err != nil {
		return nil, err
	}

	failures, err := s.imports.Failures(importID)
	if err != nil {
		return nil, err
	}
	if failures == nil {
		failures = []entities.ImportFailure{}
	}
	return &ImportDetails{
		Import:             imp,
		ProgressPercentage: imp.ProgressPercentage(),
		Failures:           failures,
	}, nil
}

// ListImports returns the user's imports, newest first.
func (s *ImportService) ListImports(userID uint, filter imports.ListFilter) ([]ImportDetails, error) {
	list, err := s.imports.ListForUser(userID, filter)
	if err != nil {
		return nil, err
	}
	result := make([]ImportDetails, 0, len(list))
	for i := range list {
		result = append(result, ImportDetails{
			Import:             &list[i],
			ProgressPercentage: list[i].ProgressPercentage(),
		})
	}
	return result, nil
}

// DeleteImport removes an import record. Imported photos stay in their
// gallery with import_id cleared. Running imports cannot be deleted.
func (s *ImportService) DeleteImport(userID, importID uint) error {
	imp, err := s.imports.GetForUser(importID, userID)
	if errors.Is(err, imports.ErrNotFound) {
		return ErrImportNotFound
	}
	if err != nil {
		return err
	}
	if imp.Status == entities.ImportStatusInProgress {
		return ErrImportRunning
	}
	if err := s.imports.Delete(importID); err != nil {
		if errors.Is(err, imports.ErrNotFound) {
			return ErrImportNotFound
		}
		return err
	}
	return nil
}
