package googlephotos

import (
	"path"
	"strings"
	"time"

	"github.com/mrlokans/gallery/internal/providers"
)

func (c *Client) MapToLocalAttrs(photo providers.RemotePhoto) (*providers.LocalAttrs, error) {
	filename := providers.StringValue(photo["filename"])
	mimeType := providers.StringValue(photo["mimeType"])
	meta, _ := photo["mediaMetadata"].(map[string]any)

	title := strings.TrimSuffix(filename, path.Ext(filename))
	if title == "" {
		title = "Untitled"
	}

	var capturedAt *time.Time
	if raw := providers.StringValue(meta["creationTime"]); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			capturedAt = &t
		}
	}

	return &providers.LocalAttrs{
		ExternalID:     photo.ID(),
		Title:          title,
		Caption:        strings.TrimSpace(providers.StringValue(photo["description"])),
		CapturedAt:     capturedAt,
		OriginalFormat: originalFormat(filename, mimeType),
		Metadata: map[string]any{
			"provider":         Name,
			"google_photos_id": photo.ID(),
			"product_url":      providers.StringValue(photo["productUrl"]),
			"mime_type":        mimeType,
			"width":            providers.IntValue(meta["width"]),
			"height":           providers.IntValue(meta["height"]),
			"raw":              map[string]any(photo),
		},
	}, nil
}

// originalFormat prefers the filename extension and falls back to the
// MIME subtype.
func originalFormat(filename, mimeType string) string {
	if ext := strings.TrimPrefix(path.Ext(filename), "."); ext != "" {
		return ext
	}
	if _, subtype, ok := strings.Cut(mimeType, "/"); ok {
		return subtype
	}
	return ""
}
