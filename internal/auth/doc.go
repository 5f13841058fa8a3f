// Package auth resolves the acting user for HTTP requests and keeps OAuth
// handshake material in server-side sessions.
//
// It supports two modes:
//   - "none": single-user mode (default), every request acts as entities.DefaultUserID
//   - "token": API clients send "Authorization: Bearer <token>", looked up in the users table
//
// # Configuration
//
//	AUTH_MODE=none             # Default
//	AUTH_MODE=token            # Requires users created with "gallery users create"
//	AUTH_SESSION_LIFETIME=1h   # How long a started OAuth handshake stays valid
//	AUTH_SECURE_COOKIES=true   # HTTPS-only session cookie
//
// # Usage
//
//	mw := auth.NewMiddleware(userRepo, cfg.Auth, auth.NewFailureGuard(auth.DefaultFailureGuardConfig()))
//	router.Use(mw.Handler())
//
//	userID := auth.GetUserID(c)
package auth
