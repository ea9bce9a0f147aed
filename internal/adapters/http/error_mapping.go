package httpadapter

import (
	"errors"
	"net/http"

	"github.com/snapcal/snapcal/internal/core/domain"
)

var (
	errNoStore   = errors.New("event store is not configured; set POSTGRES_DSN")
	errNoOwner   = errors.New("missing " + ownerHeader + " header")
	errNoEventID = errors.New("event id is required")
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrEventNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// userFacingMessage keeps stack traces and transport noise away from API
// clients while still telling operators where to look.
func userFacingMessage(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrConfiguration):
		if errors.Is(err, errNoStore) {
			return errNoStore.Error()
		}
		return "service misconfigured: check the inference credential configuration"
	case domain.IsKind(err, domain.ErrUnauthorized):
		if errors.Is(err, errNoOwner) {
			return errNoOwner.Error()
		}
		return "inference service rejected the credential: check the configured API key"
	case domain.IsKind(err, domain.ErrMalformedResponse):
		return "inference service returned an unexpected response format"
	default:
		return err.Error()
	}
}
