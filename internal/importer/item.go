package importer

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"

	"github.com/mrlokans/gallery/internal/entities"
	"github.com/mrlokans/gallery/internal/logger"
	"github.com/mrlokans/gallery/internal/providers"
	"github.com/mrlokans/gallery/internal/storage"
	"github.com/mrlokans/gallery/internal/utils"
)

// DefaultMaxBytes caps a single download when no limit is configured.
const DefaultMaxBytes int64 = 512 << 20

const reasonAlreadyImported = "already imported"

var (
	ErrPhotoTooLarge  = errors.New("photo exceeds download size limit")
	ErrMissingPhotoID = errors.New("remote photo has no id")
)

// Result is the outcome of importing one photo.
type Result struct {
	Success bool
	Skipped bool
	Reason  string
	Photo   *entities.Photo
}

type ItemOptions struct {
	MaxBytes int64
	TempDir  string // empty uses the OS default
}

// ItemImporter imports exactly one remote photo. Importing the same
// external photo twice for one user yields a skipped Result.
type ItemImporter struct {
	photos  PhotoRepository
	storage storage.ObjectStorage
	opts    ItemOptions
}

func NewItemImporter(photos PhotoRepository, store storage.ObjectStorage, opts ItemOptions) *ItemImporter {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	return &ItemImporter{photos: photos, storage: store, opts: opts}
}

// Import never returns an error: every problem is reported in the Result.
func (i *ItemImporter) Import(ctx context.Context, client providers.Provider, photo providers.RemotePhoto, imp *entities.Import) Result {
	externalID := photo.ID()
	if externalID == "" {
		return failed(ErrMissingPhotoID)
	}

	exists, err := i.photos.ExistsForUser(externalID, imp.UserID)
	if err != nil {
		return failed(fmt.Errorf("failed to check for existing photo: %w", err))
	}
	if exists {
		return Result{Skipped: true, Reason: reasonAlreadyImported}
	}

	attrs, err := client.MapToLocalAttrs(photo)
	if err != nil {
		return failed(fmt.Errorf("failed to map photo: %w", err))
	}

	downloadURL, err := client.BestDownloadURL(photo)
	if err != nil {
		return failed(err)
	}

	file, size, err := i.download(ctx, client, photo)
	if err != nil {
		return failed(err)
	}
	defer func() {
		file.Close()
		os.Remove(file.Name())
	}()

	filename := utils.ImportFilename(client.Name(), externalID, attrs.OriginalFormat)
	ext := utils.SafeExtension(attrs.OriginalFormat)

	importID := imp.ID
	record := &entities.Photo{
		UserID:          imp.UserID,
		ImportID:        &importID,
		ExternalPhotoID: externalID,
		Title:           attrs.Title,
		Caption:         attrs.Caption,
		CapturedAt:      attrs.CapturedAt,
		Filename:        filename,
		ContentType:     utils.ContentTypeFor(ext),
		ByteSize:        size,
		StorageKey:      fmt.Sprintf("photos/%d/%s/%s", imp.UserID, uuid.NewString(), filename),
		ImportMetadata:  entities.JSONMap(attrs.Metadata),
	}
	if record.Title == "" {
		record.Title = "Untitled"
	}
	if imp.GalleryID != nil {
		record.GalleryID = *imp.GalleryID
	}
	if record.ImportMetadata == nil {
		record.ImportMetadata = entities.JSONMap{}
	}
	record.ImportMetadata["source_url"] = downloadURL

	if probesDimensions(ext) {
		width, height, err := probe(file)
		if err != nil {
			return Result{Reason: "validation failed: " + err.Error()}
		}
		record.Width, record.Height = width, height
	}
	if err := record.Validate(); err != nil {
		return Result{Reason: "validation failed: " + err.Error()}
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return failed(fmt.Errorf("failed to rewind download: %w", err))
	}
	if err := i.storage.Upload(ctx, record.StorageKey, file, size, record.ContentType); err != nil {
		return failed(err)
	}

	if err := i.photos.Create(record); err != nil {
		if delErr := i.storage.Delete(context.WithoutCancel(ctx), record.StorageKey); delErr != nil {
			logger.WithFields(logger.Fields{
				logger.FieldImportID: imp.ID,
				"storage_key":        record.StorageKey,
			}).WithError(delErr).Warn("[IMPORT] failed to remove orphaned object")
		}
		return failed(fmt.Errorf("failed to save photo: %w", err))
	}

	return Result{Success: true, Photo: record}
}

// download copies the photo into a temp file, enforcing MaxBytes.
func (i *ItemImporter) download(ctx context.Context, client providers.Provider, photo providers.RemotePhoto) (*os.File, int64, error) {
	body, err := client.Download(ctx, photo)
	if err != nil {
		return nil, 0, err
	}
	defer body.Close()

	file, err := os.CreateTemp(i.opts.TempDir, "gallery-import-*")
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create temp file: %w", err)
	}

	size, err := io.Copy(file, io.LimitReader(body, i.opts.MaxBytes+1))
	if err == nil && size > i.opts.MaxBytes {
		err = fmt.Errorf("%w (%d bytes)", ErrPhotoTooLarge, i.opts.MaxBytes)
	}
	if err != nil {
		file.Close()
		os.Remove(file.Name())
		return nil, 0, err
	}
	return file, size, nil
}

func probesDimensions(ext string) bool {
	switch ext {
	case "jpg", "jpeg", "png", "gif", "webp":
		return true
	}
	return false
}

func probe(file *os.File) (int, int, error) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return 0, 0, err
	}
	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return 0, 0, fmt.Errorf("file is not a valid image: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

func failed(err error) Result {
	return Result{Reason: strings.TrimSpace(err.Error())}
}
