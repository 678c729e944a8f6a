package backend

import (
	"context"
	"errors"
	"net/http"

	"github.com/noah-isme/toko-pos/internal/common"
	"github.com/noah-isme/toko-pos/internal/resilience"
)

// AsAppError maps a backend failure onto the API error it should surface as.
// AppErrors pass through unchanged and errors unrelated to the backend become
// a plain 500.
func AsAppError(err error, what string) *common.AppError {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, ErrNotFound) {
		return common.NewAppError("NOT_FOUND", what+" not found", http.StatusNotFound, err)
	}
	if errors.Is(err, resilience.ErrOpenCircuit) {
		return common.NewAppError("UPSTREAM_UNAVAILABLE", "backend temporarily unavailable", http.StatusServiceUnavailable, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return common.NewAppError("UPSTREAM_TIMEOUT", "backend timed out", http.StatusGatewayTimeout, err)
	}
	var serr *StatusError
	if !errors.As(err, &serr) {
		if errors.Is(err, ErrUnreachable) {
			return common.NewAppError("UPSTREAM", "backend unreachable", http.StatusBadGateway, err)
		}
		return common.NewAppError("INTERNAL", "internal error", http.StatusInternalServerError, err)
	}
	{
		switch serr.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return common.NewAppError("UPSTREAM_UNAUTHORIZED", "backend rejected credentials", serr.Status, err)
		case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
			return common.NewAppError("UPSTREAM_REJECTED", "backend rejected the request", http.StatusUnprocessableEntity, err).
				WithDetails(map[string]any{"status": serr.Status, "body": serr.Body})
		}
	}
	return common.NewAppError("UPSTREAM", "backend request failed", http.StatusBadGateway, err)
}
