package auth

import (
	"context"
	"database/sql"
	"encoding/gob"
	"net/http"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"

	"github.com/mrlokans/gallery/internal/config"
	"github.com/mrlokans/gallery/internal/services"
)

const sessionKeyHandshakePrefix = "oauth_handshake:"

// PendingHandshake is an OAuth handshake waiting for its callback.
type PendingHandshake struct {
	UserID    uint
	Handshake services.Handshake
}

func init() {
	gob.Register(PendingHandshake{})
}

// SessionManager wraps scs.SessionManager with application-specific methods.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates a session manager backed by sqlDB, which must be
// a SQLite database. A nil sqlDB keeps sessions in memory.
func NewSessionManager(sqlDB *sql.DB, cfg config.Auth) (*SessionManager, error) {
	sm := scs.New()

	if sqlDB != nil {
		_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			expiry REAL NOT NULL
		);
		CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
		if err != nil {
			return nil, err
		}
		sm.Store = sqlite3store.New(sqlDB)
	} else {
		sm.Store = memstore.New()
	}

	sm.Lifetime = cfg.SessionLifetime
	sm.Cookie.Name = "gallery_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	// Lax so the cookie survives the top-level redirect back from the provider
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}, nil
}

// PutHandshake stores handshake material for provider until the callback.
func (sm *SessionManager) PutHandshake(ctx context.Context, userID uint, hs *services.Handshake) error {
	// New token per handshake prevents session fixation
	if err := sm.RenewToken(ctx); err != nil {
		return err
	}
	sm.Put(ctx, sessionKeyHandshakePrefix+hs.Provider, PendingHandshake{UserID: userID, Handshake: *hs})
	return nil
}

// PopHandshake returns and removes the pending handshake for provider.
// The handshake is single use.
func (sm *SessionManager) PopHandshake(ctx context.Context, provider string) (*PendingHandshake, bool) {
	pending, ok := sm.Pop(ctx, sessionKeyHandshakePrefix+provider).(PendingHandshake)
	if !ok {
		return nil, false
	}
	return &pending, true
}
