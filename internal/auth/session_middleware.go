package auth

import (
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/gallery/internal/logger"
)

// cookieCommitWriter commits the session right before the first byte of the
// response goes out. gin handlers write headers from inside c.JSON and
// c.Redirect, so waiting until after c.Next would be too late for the
// Set-Cookie header.
type cookieCommitWriter struct {
	gin.ResponseWriter
	commit    func()
	committed bool
}

func (w *cookieCommitWriter) flushCookie() {
	if w.committed {
		return
	}
	w.committed = true
	w.commit()
}

func (w *cookieCommitWriter) WriteHeader(code int) {
	w.flushCookie()
	w.ResponseWriter.WriteHeader(code)
}

func (w *cookieCommitWriter) WriteHeaderNow() {
	w.flushCookie()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *cookieCommitWriter) Write(b []byte) (int, error) {
	w.flushCookie()
	return w.ResponseWriter.Write(b)
}

func (w *cookieCommitWriter) WriteString(s string) (int, error) {
	w.flushCookie()
	return w.ResponseWriter.WriteString(s)
}

// SessionLoadSave loads the session named by the request cookie and saves
// it when a handler stored or popped a handshake. Only the routes that
// carry OAuth handshakes run behind it.
func (sm *SessionManager) SessionLoadSave() gin.HandlerFunc {
	return func(c *gin.Context) {
		var token string
		if cookie, err := c.Request.Cookie(sm.Cookie.Name); err == nil {
			token = cookie.Value
		}

		ctx, err := sm.Load(c.Request.Context(), token)
		if err != nil {
			logger.WithError(err).Error("[HTTP] failed to load session")
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Request = c.Request.WithContext(ctx)

		w := &cookieCommitWriter{ResponseWriter: c.Writer}
		w.commit = func() {
			switch sm.Status(ctx) {
			case scs.Modified:
				token, expiry, err := sm.Commit(ctx)
				if err != nil {
					logger.WithError(err).Error("[HTTP] failed to save session")
					return
				}
				sm.WriteSessionCookie(ctx, w.ResponseWriter, token, expiry)
			case scs.Destroyed:
				sm.WriteSessionCookie(ctx, w.ResponseWriter, "", time.Time{})
			}
		}
		c.Writer = w

		c.Next()
		w.flushCookie()
	}
}
