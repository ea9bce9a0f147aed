package inference

import (
	"context"
	"errors"
	"net/http"

	"github.com/snapcal/snapcal/internal/infrastructure/resilience"
)

// classifyCallError implements the call-level policy: network errors and
// attempt timeouts are retryable-but-bounded, HTTP status errors are
// never blindly retried (the chain interprets them), caller cancellation
// is terminal.
func classifyCallError(ctx context.Context) resilience.ErrorClassifier {
	return func(err error) resilience.ErrorClassification {
		if err == nil {
			return resilience.ErrorClassification{}
		}
		if resilience.AttemptTimedOut(ctx, err) {
			return resilience.ErrorClassification{
				Retryable:     true,
				RecordFailure: true,
				Class:         "timeout",
			}
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return resilience.ErrorClassification{
				Retryable:     false,
				RecordFailure: false,
				Class:         "cancelled",
			}
		}

		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) {
			return resilience.ErrorClassification{
				Retryable:     false,
				RecordFailure: statusErr.StatusCode >= 500,
				Class:         "http_status",
			}
		}

		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
			Class:         "network",
		}
	}
}

// advancesChain reports whether a failure is retryable at the model level:
// model loading, model not found, or an internal server error. Anything
// else is not model-specific, so trying the next model cannot fix it.
func advancesChain(err error) bool {
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	switch statusErr.StatusCode {
	case http.StatusServiceUnavailable, http.StatusNotFound, http.StatusInternalServerError:
		return true
	default:
		return false
	}
}
