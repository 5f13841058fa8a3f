package auth

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/gallery/internal/config"
	"github.com/mrlokans/gallery/internal/services"
)

func handshakeRouter(sm *SessionManager) *gin.Engine {
	r := gin.New()
	r.Use(sm.SessionLoadSave())
	r.GET("/connect", func(c *gin.Context) {
		err := sm.PutHandshake(c.Request.Context(), 3, &services.Handshake{
			Provider:      "flickr",
			RequestToken:  "req-token",
			RequestSecret: "req-secret",
		})
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})
	r.GET("/callback", func(c *gin.Context) {
		pending, ok := sm.PopHandshake(c.Request.Context(), "flickr")
		if !ok {
			c.Status(http.StatusBadRequest)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": pending.UserID, "secret": pending.Handshake.RequestSecret})
	})
	return r
}

func runHandshake(t *testing.T, sm *SessionManager) {
	t.Helper()
	r := handshakeRouter(sm)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/connect", nil))
	require.Equal(t, http.StatusNoContent, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, "gallery_session", cookies[0].Name)

	callback := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/callback", nil)
		req.AddCookie(cookies[0])
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w = callback()
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":3,"secret":"req-secret"}`, w.Body.String())

	// Handshakes are single use.
	assert.Equal(t, http.StatusBadRequest, callback().Code)
}

func TestSessionManager_MemoryStore(t *testing.T) {
	sm, err := NewSessionManager(nil, config.Auth{SessionLifetime: time.Hour})
	require.NoError(t, err)
	runHandshake(t, sm)
}

func TestSessionManager_SQLiteStore(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sm, err := NewSessionManager(db, config.Auth{SessionLifetime: time.Hour})
	require.NoError(t, err)
	runHandshake(t, sm)
}

func TestSessionManager_MissingHandshake(t *testing.T) {
	sm, err := NewSessionManager(nil, config.Auth{SessionLifetime: time.Hour})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	handshakeRouter(sm).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/callback", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
