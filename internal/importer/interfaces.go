package importer

import (
	"context"

	"github.com/mrlokans/gallery/internal/entities"
	"github.com/mrlokans/gallery/internal/providers"
)

// PhotoRepository persists imported photos.
type PhotoRepository interface {
	ExistsForUser(externalPhotoID string, userID uint) (bool, error)
	Create(photo *entities.Photo) error
}

// ImportRepository persists import progress.
type ImportRepository interface {
	GetByID(id uint) (*entities.Import, error)
	Start(id uint) error
	Complete(id uint) error
	Fail(id uint, message string) error
	SetTotalPhotos(id uint, total int) error
	IncrementImported(id uint) error
	IncrementFailed(id uint) error
	IncrementSkipped(id uint) error
	RecordFailure(id uint, externalPhotoID, reason string) error
}

// CredentialSource returns decrypted credentials for a connection.
type CredentialSource interface {
	Get(userID uint, provider string) (*entities.Credentials, error)
}

// ProviderBuilder builds a provider client from credentials.
type ProviderBuilder interface {
	New(name string, creds *entities.Credentials) (providers.Provider, error)
}

// PhotoImporter imports a single remote photo.
type PhotoImporter interface {
	Import(ctx context.Context, client providers.Provider, photo providers.RemotePhoto, imp *entities.Import) Result
}
