package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/gallery/internal/auth"
	"github.com/mrlokans/gallery/internal/database/imports"
	"github.com/mrlokans/gallery/internal/logger"
	"github.com/mrlokans/gallery/internal/services"
)

// keyParam is the wildcard under /api/imports/. gin allows one wildcard
// name per path segment, so it carries a provider name on provider routes
// and an import id on import routes.
const keyParam = "key"

// ImportsController serves the album import API.
type ImportsController struct {
	service  ImportAPI
	sessions *auth.SessionManager
}

// NewImportsController creates an ImportsController. sessions holds OAuth
// handshakes between connect and callback.
func NewImportsController(service ImportAPI, sessions *auth.SessionManager) *ImportsController {
	return &ImportsController{service: service, sessions: sessions}
}

// ConnectRequest carries the user's application keys. Flickr needs them;
// Google Photos uses server-wide client credentials.
type ConnectRequest struct {
	APIKey    string `json:"api_key" form:"api_key"`
	APISecret string `json:"api_secret" form:"api_secret"`
}

// StartImportRequest is the body of POST /api/imports/:provider/import.
type StartImportRequest struct {
	AlbumID    string `json:"album_id" form:"album_id"`
	AlbumTitle string `json:"album_title" form:"album_title"`
}

func importIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(keyParam), 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid import id")
		return 0, false
	}
	return uint(id), true
}

// ListProviders handles GET /api/imports/providers
func (ic *ImportsController) ListProviders(c *gin.Context) {
	list, err := ic.service.Providers(GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "list providers")
		return
	}
	c.JSON(http.StatusOK, gin.H{"providers": list})
}

// Connect handles GET|POST /api/imports/:provider/connect
// Browsers are redirected to the provider; API clients get the URL.
func (ic *ImportsController) Connect(c *gin.Context) {
	provider := c.Param(keyParam)
	if ic.sessions == nil {
		respondError(c, http.StatusServiceUnavailable, "", "sessions are not configured")
		return
	}

	var req ConnectRequest
	if c.Request.Method == http.MethodGet || c.Request.ContentLength != 0 {
		if err := c.ShouldBind(&req); err != nil {
			respondBadRequest(c, "invalid request body")
			return
		}
	}

	userID := GetUserID(c)
	handshake, err := ic.service.BeginConnect(c.Request.Context(), userID, provider, services.ConnectParams{
		APIKey:    req.APIKey,
		APISecret: req.APISecret,
	})
	if err != nil {
		respondServiceError(c, err, "begin connect")
		return
	}

	if err := ic.sessions.PutHandshake(c.Request.Context(), userID, handshake); err != nil {
		respondInternalError(c, err, "store handshake")
		return
	}

	if c.Request.Method == http.MethodPost || wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"authorize_url": handshake.AuthorizeURL})
		return
	}
	c.Redirect(http.StatusFound, handshake.AuthorizeURL)
}

// Callback handles GET /api/imports/:provider/callback
// The route is public; the user is the one who started the handshake.
func (ic *ImportsController) Callback(c *gin.Context) {
	provider := c.Param(keyParam)
	if ic.sessions == nil {
		respondError(c, http.StatusServiceUnavailable, "", "sessions are not configured")
		return
	}

	if denied := c.Query("error"); denied != "" {
		ic.sessions.PopHandshake(c.Request.Context(), provider)
		respondError(c, http.StatusBadRequest, "authorization_denied", "authorization was not granted: "+denied)
		return
	}

	pending, ok := ic.sessions.PopHandshake(c.Request.Context(), provider)
	if !ok {
		respondError(c, http.StatusBadRequest, CodeInvalidState, "no authorization in progress for "+provider)
		return
	}

	conn, err := ic.service.CompleteConnect(c.Request.Context(), pending.UserID, &pending.Handshake, services.CallbackParams{
		Token:    c.Query("oauth_token"),
		Verifier: c.Query("oauth_verifier"),
		Code:     c.Query("code"),
		State:    c.Query("state"),
	})
	if err != nil {
		respondServiceError(c, err, "complete connect")
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: provider + " connected", Data: conn})
}

// Disconnect handles DELETE /api/imports/:provider/connection
func (ic *ImportsController) Disconnect(c *gin.Context) {
	provider := c.Param(keyParam)
	if err := ic.service.Disconnect(GetUserID(c), provider); err != nil {
		respondServiceError(c, err, "disconnect")
		return
	}
	respondSuccess(c, provider+" disconnected")
}

// ListAlbums handles GET /api/imports/:provider/albums?page=N
func (ic *ImportsController) ListAlbums(c *gin.Context) {
	page, ok := parsePageQuery(c)
	if !ok {
		return
	}

	listing, err := ic.service.ListAlbums(c.Request.Context(), GetUserID(c), c.Param(keyParam), page)
	if err != nil {
		respondServiceError(c, err, "list albums")
		return
	}
	c.JSON(http.StatusOK, listing)
}

// StartImport handles POST /api/imports/:provider/import
func (ic *ImportsController) StartImport(c *gin.Context) {
	var req StartImportRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if strings.TrimSpace(req.AlbumID) == "" {
		respondBadRequest(c, "album_id is required")
		return
	}

	userID := GetUserID(c)
	provider := c.Param(keyParam)
	imp, err := ic.service.StartImport(c.Request.Context(), userID, provider, services.StartImportParams{
		AlbumID:    req.AlbumID,
		AlbumTitle: req.AlbumTitle,
	})
	if err != nil {
		respondServiceError(c, err, "start import")
		return
	}

	logger.WithFields(logger.Fields{
		logger.FieldUserID:   userID,
		logger.FieldProvider: provider,
		logger.FieldImportID: imp.ID,
	}).Info("[IMPORT] import requested")
	respondAccepted(c, "import started", services.ImportDetails{
		Import:             imp,
		ProgressPercentage: imp.ProgressPercentage(),
	})
}

// ListImports handles GET /api/imports?provider=&active=
func (ic *ImportsController) ListImports(c *gin.Context) {
	active, ok := parseBoolQuery(c, "active")
	if !ok {
		return
	}

	list, err := ic.service.ListImports(GetUserID(c), imports.ListFilter{
		Provider:   c.Query("provider"),
		ActiveOnly: active,
		Limit:      100,
	})
	if err != nil {
		respondInternalError(c, err, "list imports")
		return
	}
	c.JSON(http.StatusOK, gin.H{"imports": list})
}

// GetImport handles GET /api/imports/:id and GET /api/imports/:id/status
func (ic *ImportsController) GetImport(c *gin.Context) {
	id, ok := importIDParam(c)
	if !ok {
		return
	}

	details, err := ic.service.GetImport(GetUserID(c), id)
	if err != nil {
		respondServiceError(c, err, "get import")
		return
	}
	c.JSON(http.StatusOK, details)
}

// DeleteImport handles DELETE /api/imports/:id
func (ic *ImportsController) DeleteImport(c *gin.Context) {
	id, ok := importIDParam(c)
	if !ok {
		return
	}

	if err := ic.service.DeleteImport(GetUserID(c), id); err != nil {
		respondServiceError(c, err, "delete import")
		return
	}
	respondSuccess(c, "import deleted")
}
