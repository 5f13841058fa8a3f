package http

import (
	"context"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/gallery/internal/database/imports"
	"github.com/mrlokans/gallery/internal/entities"
	"github.com/mrlokans/gallery/internal/services"
)

// This file consolidates the interfaces HTTP controllers depend on.
// services.ImportService and tasks.Client satisfy them in production;
// tests substitute fakes where needed.

// ImportAPI is the use-case layer behind the import endpoints.
type ImportAPI interface {
	Providers(userID uint) ([]services.ProviderInfo, error)
	BeginConnect(ctx context.Context, userID uint, provider string, params services.ConnectParams) (*services.Handshake, error)
	CompleteConnect(ctx context.Context, userID uint, handshake *services.Handshake, params services.CallbackParams) (*entities.ExternalConnection, error)
	Disconnect(userID uint, provider string) error
	ListAlbums(ctx context.Context, userID uint, provider string, page int) (*services.AlbumListing, error)
	StartImport(ctx context.Context, userID uint, provider string, params services.StartImportParams) (*entities.Import, error)
	GetImport(userID, importID uint) (*services.ImportDetails, error)
	ListImports(userID uint, filter imports.ListFilter) ([]services.ImportDetails, error)
	DeleteImport(userID, importID uint) error
}

// TaskStatusReader looks up background task state.
type TaskStatusReader interface {
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// Pinger reports database reachability.
type Pinger interface {
	Ping() error
}
