package utils

import (
	"regexp"
	"strings"
)

const defaultExtension = "jpg"

var (
	// Anything outside [A-Za-z0-9_-] is dropped from filename components
	unsafeComponentChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)
	nonAlphanumeric      = regexp.MustCompile(`[^a-z0-9]`)
)

// contentTypes is the extension allow-list with the MIME type served for each.
var contentTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"heic": "image/heic",
	"heif": "image/heif",
	"mp4":  "video/mp4",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",
	"webm": "video/webm",
}

// SanitizeComponent strips every character outside [A-Za-z0-9_-], so the
// result can never contain path separators, dots or shell metacharacters.
func SanitizeComponent(s string) string {
	return unsafeComponentChars.ReplaceAllString(s, "")
}

// SafeExtension lower-cases a provider supplied format, reduces it to
// [a-z0-9] and returns it if allow-listed, otherwise "jpg".
func SafeExtension(format string) string {
	ext := nonAlphanumeric.ReplaceAllString(strings.ToLower(format), "")
	if _, ok := contentTypes[ext]; ok {
		return ext
	}
	return defaultExtension
}

// ContentTypeFor maps an extension to its MIME type, defaulting to image/jpeg.
func ContentTypeFor(ext string) string {
	if ct, ok := contentTypes[strings.ToLower(ext)]; ok {
		return ct
	}
	return contentTypes[defaultExtension]
}

// ImportFilename builds "<provider>_<externalID>.<ext>" from untrusted
// provider data.
func ImportFilename(provider, externalID, format string) string {
	return SanitizeComponent(provider) + "_" + SanitizeComponent(externalID) + "." + SafeExtension(format)
}

// IsVideoExtension reports whether ext is an allow-listed video format.
func IsVideoExtension(ext string) bool {
	return strings.HasPrefix(ContentTypeFor(ext), "video/")
}
