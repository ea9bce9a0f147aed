package domain

import (
	"errors"
	"fmt"
)

// Network-shaped failures. The degradation policy absorbs these and turns
// them into a fallback event instead of failing the extraction.
var (
	ErrConnectivityUnavailable = errors.New("connectivity unavailable")
	ErrNetworkExhausted        = errors.New("network retries exhausted")
	ErrTimeout                 = errors.New("attempt timed out")
	ErrModelUnavailable        = errors.New("all candidate models unavailable")
)

// Developer-actionable failures. These always propagate to the caller.
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrConfiguration     = errors.New("configuration error")
	ErrMalformedResponse = errors.New("malformed model response")
	ErrInvalidInput      = errors.New("invalid input")
	ErrEventNotFound     = errors.New("event not found")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// IsNetworkShaped reports whether err belongs to the failure classes the
// degradation policy converts into a fallback event.
func IsNetworkShaped(err error) bool {
	return errors.Is(err, ErrConnectivityUnavailable) ||
		errors.Is(err, ErrNetworkExhausted) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrModelUnavailable)
}
