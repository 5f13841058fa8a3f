package flickr

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/mrlokans/gallery/internal/providers"
)

const dateTakenLayout = "2006-01-02 15:04:05"

// content decodes Flickr's {"_content": "..."} wrapper as well as plain strings.
type content string

func (c *content) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = content(s)
		return nil
	}
	var wrapped struct {
		Content string `json:"_content"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	*c = content(wrapped.Content)
	return nil
}

// flexInt accepts numbers encoded as JSON numbers or strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

type photoset struct {
	ID           string  `json:"id"`
	Title        content `json:"title"`
	Description  content `json:"description"`
	Photos       flexInt `json:"photos"`
	URLM         string  `json:"url_m"`
	PrimaryExtra struct {
		URLM string `json:"url_m"`
	} `json:"primary_photo_extras"`
}

func (ps photoset) toAlbum() providers.Album {
	cover := ps.PrimaryExtra.URLM
	if cover == "" {
		cover = ps.URLM
	}
	return providers.Album{
		ID:          ps.ID,
		Title:       string(ps.Title),
		Description: string(ps.Description),
		PhotoCount:  int(ps.Photos),
		CoverURL:    cover,
	}
}

func (c *Client) MapToLocalAttrs(photo providers.RemotePhoto) (*providers.LocalAttrs, error) {
	id := photo.ID()
	return &providers.LocalAttrs{
		ExternalID:     id,
		Title:          extractTitle(photo),
		Caption:        c.extractDescription(photo),
		CapturedAt:     parseDateTaken(photo),
		OriginalFormat: providers.StringValue(photo["originalformat"]),
		Metadata: map[string]any{
			"provider":  Name,
			"flickr_id": id,
			"tags":      extractTags(photo),
			"geo":       extractGeo(photo),
			"urls":      extractURLs(photo),
			"raw":       map[string]any(photo),
		},
	}, nil
}

func unwrapContent(v any) string {
	if m, ok := v.(map[string]any); ok {
		return providers.StringValue(m["_content"])
	}
	return providers.StringValue(v)
}

func extractTitle(photo providers.RemotePhoto) string {
	if title := strings.TrimSpace(unwrapContent(photo["title"])); title != "" {
		return title
	}
	return "Untitled"
}

// extractDescription strips markup from the description. The result is
// HTML-safe text: entities stay escaped, so encoded markup such as
// "&lt;script&gt;" never turns back into a tag.
func (c *Client) extractDescription(photo providers.RemotePhoto) string {
	raw := unwrapContent(photo["description"])
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(c.sanitizer.Sanitize(raw))
}

func parseDateTaken(photo providers.RemotePhoto) *time.Time {
	raw := providers.StringValue(photo["datetaken"])
	if raw == "" {
		return nil
	}
	t, err := time.Parse(dateTakenLayout, raw)
	if err != nil {
		return nil
	}
	return &t
}

func extractTags(photo providers.RemotePhoto) []string {
	tags := []string{}
	switch v := photo["tags"].(type) {
	case string:
		tags = append(tags, strings.Fields(v)...)
	case map[string]any:
		list, _ := v["tag"].([]any)
		for _, item := range list {
			tag, ok := item.(map[string]any)
			if !ok {
				continue
			}
			name := providers.StringValue(tag["_content"])
			if name == "" {
				name = providers.StringValue(tag["raw"])
			}
			if name != "" {
				tags = append(tags, name)
			}
		}
	}
	return tags
}

// extractGeo returns nil for photos without a location. Flickr reports
// missing geo data as latitude 0.
func extractGeo(photo providers.RemotePhoto) map[string]any {
	latitude := providers.FloatValue(photo["latitude"])
	if latitude == 0 {
		return nil
	}
	return map[string]any{
		"latitude":  latitude,
		"longitude": providers.FloatValue(photo["longitude"]),
		"accuracy":  providers.IntValue(photo["accuracy"]),
	}
}

func extractURLs(photo providers.RemotePhoto) map[string]string {
	medium := providers.StringValue(photo["url_c"])
	if medium == "" {
		medium = providers.StringValue(photo["url_m"])
	}
	candidates := map[string]string{
		"original":  providers.StringValue(photo["url_o"]),
		"large":     providers.StringValue(photo["url_l"]),
		"medium":    medium,
		"thumbnail": providers.StringValue(photo["url_sq"]),
	}
	urls := make(map[string]string, len(candidates))
	for key, value := range candidates {
		if value != "" {
			urls[key] = value
		}
	}
	return urls
}
