package services

import "errors"

var (
	ErrAlreadyImported = errors.New("album already imported")
	ErrUnknownProvider = errors.New("unknown provider")
	ErrImportNotFound  = errors.New("import not found")
	ErrImportRunning   = errors.New("import is running")
	ErrInvalidInput    = errors.New("invalid input")
)
