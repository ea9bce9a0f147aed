package ports

import (
	"context"

	"github.com/snapcal/snapcal/internal/core/domain"
)

// EventExtractor is the inbound contract for the image-to-event pipeline.
type EventExtractor interface {
	Extract(ctx context.Context, req domain.ExtractionRequest, opts domain.ExtractionOptions) (*domain.ExtractionResult, error)
}
