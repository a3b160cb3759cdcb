package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mzwallet/mz_wallet_backend/internal/apperrors"
	"github.com/mzwallet/mz_wallet_backend/internal/middleware"
)

// ErrorResponse is a generic error response structure for handlers.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError maps typed service errors to HTTP statuses and writes the
// response. Unknown errors become a 500 with a generic body so internal
// detail never leaks to callers.
func respondError(c *gin.Context, err error) {
	status := statusForError(err)
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", slog.String("error", err.Error()))
		c.JSON(status, ErrorResponse{Error: "Internal server error"})
		return
	}
	logger.Warn("request rejected", slog.Int("status", status), slog.String("error", err.Error()))
	c.JSON(status, ErrorResponse{Error: err.Error()})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrSelfTransfer),
		errors.Is(err, apperrors.ErrAmountOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrInsufficientFunds),
		errors.Is(err, apperrors.ErrInsufficientFloat):
		return http.StatusPaymentRequired
	case errors.Is(err, apperrors.ErrForbidden),
		errors.Is(err, apperrors.ErrInactiveAccount),
		errors.Is(err, apperrors.ErrLimitExceeded):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrLocked):
		return http.StatusLocked
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
