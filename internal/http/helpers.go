package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/gallery/internal/auth"
	"github.com/mrlokans/gallery/internal/credentials"
	"github.com/mrlokans/gallery/internal/logger"
	"github.com/mrlokans/gallery/internal/providers"
	"github.com/mrlokans/gallery/internal/services"
)

// GetUserID extracts the acting user's ID from the Gin context.
func GetUserID(c *gin.Context) uint {
	return auth.GetUserID(c)
}

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (validation errors, etc.)
}

// SuccessResponse is a standard success response with optional data.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Error codes returned in ErrorResponse.Code.
const (
	CodeAlreadyImported = "already_imported"
	CodeImportRunning   = "import_running"
	CodeNotConnected    = "not_connected"
	CodeUnknownProvider = "unknown_provider"
	CodeInvalidState    = "invalid_state"
	CodeMissingKeys     = "missing_api_keys"
)

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	logger.WithFields(logger.Fields{
		"context": context,
		"path":    c.Request.URL.Path,
	}).WithError(err).Error("[HTTP] internal error")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// respondError sends an error response with the given status code.
// Use the specific helpers (respondBadRequest, respondNotFound, etc.) when possible.
func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{Error: message, Code: code})
}

// respondServiceError maps domain errors to HTTP responses. Anything it
// does not recognise is treated as an internal error.
func respondServiceError(c *gin.Context, err error, context string) {
	switch {
	case errors.Is(err, services.ErrAlreadyImported):
		respondError(c, http.StatusConflict, CodeAlreadyImported, "album has already been imported")
	case errors.Is(err, services.ErrImportRunning):
		respondError(c, http.StatusConflict, CodeImportRunning, "import is running and cannot be deleted")
	case errors.Is(err, services.ErrImportNotFound):
		respondNotFound(c, "import")
	case errors.Is(err, services.ErrUnknownProvider), errors.Is(err, providers.ErrProviderNotFound):
		respondError(c, http.StatusNotFound, CodeUnknownProvider, "unknown provider")
	case errors.Is(err, credentials.ErrNotConnected):
		respondError(c, http.StatusBadRequest, CodeNotConnected, "provider is not connected")
	case errors.Is(err, providers.ErrCredentialsMissing):
		respondError(c, http.StatusBadRequest, CodeMissingKeys, "api_key and api_secret are required")
	case errors.Is(err, providers.ErrInvalidState):
		respondError(c, http.StatusBadRequest, CodeInvalidState, "authorization could not be verified, please connect again")
	case errors.Is(err, services.ErrInvalidInput):
		respondBadRequest(c, err.Error())
	default:
		respondInternalError(c, err, context)
	}
}

// --- Success Response Helpers ---

// respondSuccess sends a 200 OK response with a message.
func respondSuccess(c *gin.Context, message string) {
	c.JSON(http.StatusOK, SuccessResponse{Message: message})
}

// respondAccepted sends a 202 Accepted response (for async operations).
func respondAccepted(c *gin.Context, message string, data any) {
	c.JSON(http.StatusAccepted, SuccessResponse{Message: message, Data: data})
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	idStr := c.Param(paramName)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// parsePageQuery reads the 1-based page query parameter. Missing means 1.
func parsePageQuery(c *gin.Context) (int, bool) {
	pageStr := c.Query("page")
	if pageStr == "" {
		return 1, true
	}
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		respondBadRequest(c, "invalid page")
		return 0, false
	}
	return page, true
}

// parseBoolQuery reads an optional boolean query parameter.
func parseBoolQuery(c *gin.Context, name string) (bool, bool) {
	value := c.Query(name)
	if value == "" {
		return false, true
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		respondBadRequest(c, "invalid "+name)
		return false, false
	}
	return b, true
}

// wantsJSON reports whether the client asked for a JSON body instead of
// a browser redirect.
func wantsJSON(c *gin.Context) bool {
	if c.Query("format") == "json" {
		return true
	}
	return c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON
}
