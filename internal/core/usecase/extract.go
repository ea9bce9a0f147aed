package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/snapcal/snapcal/internal/core/domain"
	"github.com/snapcal/snapcal/internal/core/ports"
)

// ExtractEventsUseCase orchestrates one extraction: a single connectivity
// probe, the model fallback chain, parse and repair, time normalization,
// and the degradation policy. It runs sequentially; the only suspension
// points are the network call and the inter-retry backoff, both owned by
// the layers below.
type ExtractEventsUseCase struct {
	prober     ports.ConnectivityProber
	chain      ports.ModelChain
	parser     ports.EventParser
	normalizer ports.TimeNormalizer
	now        func() time.Time
}

func NewExtractEventsUseCase(
	prober ports.ConnectivityProber,
	chain ports.ModelChain,
	parser ports.EventParser,
	normalizer ports.TimeNormalizer,
) *ExtractEventsUseCase {
	return &ExtractEventsUseCase{
		prober:     prober,
		chain:      chain,
		parser:     parser,
		normalizer: normalizer,
		now:        time.Now,
	}
}

func (uc *ExtractEventsUseCase) Extract(
	ctx context.Context,
	req domain.ExtractionRequest,
	opts domain.ExtractionOptions,
) (*domain.ExtractionResult, error) {
	if strings.TrimSpace(req.ImageBase64) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "extract events", errors.New("empty image payload"))
	}

	// One-time gate: a dead host should fail fast here instead of
	// dragging the request through the full retry and fallback budget.
	if err := uc.prober.Probe(ctx); err != nil {
		return uc.degrade(err)
	}

	output, err := uc.chain.Run(ctx, req, opts)
	if err != nil {
		return uc.degrade(err)
	}

	events, err := uc.parser.Parse(output.Text)
	if err != nil {
		return nil, fmt.Errorf("parse model output: %w", err)
	}
	for i := range events {
		events[i] = uc.normalizer.Normalize(events[i])
	}

	return &domain.ExtractionResult{
		Events:    events,
		ModelUsed: output.ModelUsed,
	}, nil
}

// degrade is the degradation policy: network-shaped terminal failures
// become a single fallback event and a successful result, so the user
// always gets something actionable. Configuration and auth failures
// propagate untouched; hiding those would mask a deployment defect.
func (uc *ExtractEventsUseCase) degrade(terminal error) (*domain.ExtractionResult, error) {
	if !domain.IsNetworkShaped(terminal) {
		return nil, terminal
	}
	slog.Warn("extraction_degraded_to_fallback", "error", terminal)
	return &domain.ExtractionResult{
		Events:       []domain.ExtractedEvent{domain.NewFallbackEvent(uc.now())},
		FallbackUsed: true,
	}, nil
}
