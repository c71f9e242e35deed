// Package handlers contains the Gin HTTP handlers for the public site API
// and the admin console. Handlers translate between the HTTP surface (paths,
// payload shapes, Arabic user-facing messages) and the service layer, which
// owns the business rules.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lkataba/community-backend/internal/services"
)

// Error codes, stable across releases. Clients branch on these, not on the
// localized message text.
const (
	codeBadRequest   = "bad_request"
	codeUnauthorized = "unauthorized"
	codeForbidden    = "forbidden"
	codeNotFound     = "not_found"
	codeConflict     = "conflict"
	codeRateLimited  = "rate_limited"
	codeInternal     = "internal_error"
)

// Exported codes used by the router's fallback handlers.
const (
	ErrCodeNotFound         = codeNotFound
	ErrCodeMethodNotAllowed = "method_not_allowed"
)

// ErrorResponse is the uniform error envelope. The success flag is carried for
// the legacy frontend, which branches on it instead of the HTTP status.
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code"`
	Success   bool   `json:"success"`
	Message   string `json:"message"`
}

func requestID(c *gin.Context) string {
	return c.Writer.Header().Get("X-Request-ID")
}

// fail writes the error envelope and aborts the chain.
func fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: requestID(c),
		Code:      code,
		Success:   false,
		Message:   message,
	})
}

// Fail is the exported envelope writer used by the router's NoRoute and
// NoMethod fallbacks.
func Fail(c *gin.Context, status int, code, message string) {
	fail(c, status, code, message)
}

// failErr maps common service errors onto HTTP statuses. Validation errors
// carry their own localized message; everything unrecognized becomes a 500
// with a generic message so internals never leak to clients.
func failErr(c *gin.Context, err error) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		fail(c, http.StatusBadRequest, codeBadRequest, ve.Message)
	case errors.Is(err, services.ErrPostNotFound):
		fail(c, http.StatusNotFound, codeNotFound, "Post not found")
	case errors.Is(err, services.ErrInvalidStatus):
		fail(c, http.StatusBadRequest, codeBadRequest, "invalid status")
	case errors.Is(err, services.ErrInvalidInteraction):
		fail(c, http.StatusBadRequest, codeBadRequest, "invalid interaction")
	default:
		fail(c, http.StatusInternalServerError, codeInternal, "حدث خطأ في الخادم")
	}
}

// ok writes a 200 with the given payload.
func ok(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
