package ports

import (
	"context"

	"github.com/snapcal/snapcal/internal/core/domain"
)

// ConnectivityProber checks that the inference host is reachable before
// the first expensive call. One attempt, no retries.
type ConnectivityProber interface {
	Probe(ctx context.Context) error
}

// ModelChain runs the request against candidate models in priority order
// and returns the first successful raw output.
type ModelChain interface {
	Run(ctx context.Context, req domain.ExtractionRequest, opts domain.ExtractionOptions) (domain.ModelOutput, error)
}

// EventParser turns raw model text into candidate events.
type EventParser interface {
	Parse(raw string) ([]domain.ExtractedEvent, error)
}

// TimeNormalizer canonicalizes event times and infers missing end times.
type TimeNormalizer interface {
	Normalize(event domain.ExtractedEvent) domain.ExtractedEvent
}

// EventStore is the thin CRUD surface of the external persistence
// collaborator, keyed by owner identity. The pipeline never writes to it;
// only the caller layer does.
type EventStore interface {
	CreateEvents(ctx context.Context, ownerID string, events []domain.ExtractedEvent) ([]domain.CalendarEvent, error)
	ListEvents(ctx context.Context, ownerID string) ([]domain.CalendarEvent, error)
	UpdateEvent(ctx context.Context, ownerID, eventID string, event domain.ExtractedEvent) (*domain.CalendarEvent, error)
	DeleteEvent(ctx context.Context, ownerID, eventID string) error
}
