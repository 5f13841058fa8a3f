package providers

import "errors"

var (
	ErrProviderNotFound   = errors.New("provider not registered")
	ErrNoDownloadURL      = errors.New("no download URL available")
	ErrCredentialsMissing = errors.New("provider credentials missing")
	ErrInvalidState       = errors.New("oauth state mismatch")
)
