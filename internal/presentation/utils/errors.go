package utils

import (
	"errors"
	"net/http"

	"github.com/hilthontt/nodeline/internal/domain"
	"github.com/hilthontt/nodeline/internal/infrastructure/json"
	"github.com/hilthontt/nodeline/internal/infrastructure/logging"
)

// StatusFor maps domain errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNodeNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrAutoReplyNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoNodeAvailable),
		errors.Is(err, domain.ErrAlreadyOccupied),
		errors.Is(err, domain.ErrAlreadyConnected),
		errors.Is(err, domain.ErrRecipientOffline),
		errors.Is(err, domain.ErrNodeUnoccupied):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func WriteDomainError(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error(logging.RequestResponse, logging.ExternalService, "request failed", map[logging.ExtraKey]any{
			logging.Method:       r.Method,
			logging.Path:         r.URL.Path,
			logging.ErrorMessage: err.Error(),
		})
		json.WriteInternalError(w)
		return
	}

	var invalid *domain.ValidationError
	if errors.As(err, &invalid) {
		json.WriteFieldError(w, invalid.Field, invalid.Reason)
		return
	}
	json.WriteError(w, status, err.Error())
}
