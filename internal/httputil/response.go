// Package httputil writes the JSON error bodies shared by every route.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/sessions/internal/errors"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

type errorMapping struct {
	category   error
	statusCode int
	response   ErrorResponse
	// exposeMessage copies err.Error() into the body instead of the fixed message.
	exposeMessage bool
}

// Checked in order. The first category matched by errors.Is wins.
var errorMappings = []errorMapping{
	{
		category:   apperrors.ErrNotFound,
		statusCode: http.StatusNotFound,
		response:   ErrorResponse{Error: "not_found", Message: "The requested resource was not found"},
	},
	{
		category:   apperrors.ErrConflict,
		statusCode: http.StatusConflict,
		response:   ErrorResponse{Error: "conflict", Message: "A conflict occurred with existing data"},
	},
	{
		category:      apperrors.ErrInvalidInput,
		statusCode:    http.StatusUnprocessableEntity,
		response:      ErrorResponse{Error: "invalid_input"},
		exposeMessage: true,
	},
	{
		category:   apperrors.ErrUnauthorized,
		statusCode: http.StatusUnauthorized,
		response:   ErrorResponse{Error: "unauthorized", Message: "Authentication is required"},
	},
}

var internalErrorResponse = ErrorResponse{
	Error:   "internal_error",
	Message: "An internal error occurred",
}

// HandleErrorGin writes the status and body for err's category. Unknown errors become a 500
// whose body never carries the cause. 4xx responses are logged at debug level, 5xx at error.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	statusCode := http.StatusInternalServerError
	errorResponse := internalErrorResponse
	for _, m := range errorMappings {
		if !apperrors.Is(err, m.category) {
			continue
		}
		statusCode = m.statusCode
		errorResponse = m.response
		if m.exposeMessage {
			errorResponse.Message = err.Error()
		}
		break
	}

	if logger != nil {
		level := slog.LevelError
		if statusCode < http.StatusInternalServerError {
			level = slog.LevelDebug
		}
		logger.Log(c.Request.Context(), level, "request failed",
			slog.Int("status_code", statusCode),
			slog.String("error_code", errorResponse.Error),
			slog.Any("error", err),
		)
	}

	c.JSON(statusCode, errorResponse)
}

// HandleBadRequestGin writes a 400 for a body that could not be decoded.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("bad request", slog.Any("error", err))
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "bad_request",
		Message: err.Error(),
	})
}

// HandleValidationErrorGin writes a 422 for a decoded body that failed validation.
func HandleValidationErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("validation failed", slog.Any("error", err))
	}

	c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error:   "validation_error",
		Message: err.Error(),
	})
}
