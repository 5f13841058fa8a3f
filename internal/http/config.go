package http

import "github.com/mrlokans/gallery/internal/auth"

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Imports  ImportAPI
	Database Pinger

	// Authentication
	AuthMiddleware *auth.Middleware
	SessionManager *auth.SessionManager

	// CORS origins, empty disables CORS
	AllowedOrigins []string

	// MediaDir is served under MediaURL when photos are stored locally.
	MediaDir string
	MediaURL string

	// Task queue (optional)
	Tasks TaskStatusReader

	// Application info
	Version string
}
