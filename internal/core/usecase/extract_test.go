package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/snapcal/snapcal/internal/core/domain"
	"github.com/snapcal/snapcal/internal/infrastructure/parsing"
)

type proberFake struct {
	err   error
	calls int
}

func (f *proberFake) Probe(context.Context) error {
	f.calls++
	return f.err
}

type chainFake struct {
	output domain.ModelOutput
	err    error
	calls  int
}

func (f *chainFake) Run(context.Context, domain.ExtractionRequest, domain.ExtractionOptions) (domain.ModelOutput, error) {
	f.calls++
	if f.err != nil {
		return domain.ModelOutput{}, f.err
	}
	return f.output, nil
}

func newUseCase(prober *proberFake, chain *chainFake) *ExtractEventsUseCase {
	uc := NewExtractEventsUseCase(prober, chain, parsing.NewParser(0), parsing.NewNormalizer())
	uc.now = func() time.Time { return time.Date(2025, 6, 9, 10, 0, 0, 0, time.UTC) }
	return uc
}

func validRequest() domain.ExtractionRequest {
	return domain.ExtractionRequest{ImageBase64: "aW1n", Filename: "schedule.jpg"}
}

func TestExtractHappyPathNormalizesTimes(t *testing.T) {
	chain := &chainFake{output: domain.ModelOutput{
		Text:      `[{"title":"Team Sync","date":"2025-06-09","start_time":"2:00 PM"}]`,
		ModelUsed: "gpt-4o",
	}}
	uc := newUseCase(&proberFake{}, chain)

	result, err := uc.Extract(context.Background(), validRequest(), domain.ExtractionOptions{})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(result.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(result.Events))
	}
	ev := result.Events[0]
	if ev.Title != "Team Sync" || !ev.IsValidDate {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.StartTime != "14:00" || ev.EndTime != "15:00" {
		t.Fatalf("expected 14:00-15:00, got %s-%s", ev.StartTime, ev.EndTime)
	}
	if result.ModelUsed != "gpt-4o" || result.FallbackUsed {
		t.Fatalf("unexpected result metadata: %+v", result)
	}
}

func TestExtractProbeFailureShortCircuitsToFallback(t *testing.T) {
	prober := &proberFake{err: domain.WrapError(domain.ErrConnectivityUnavailable, "connectivity probe", errors.New("no route to host"))}
	chain := &chainFake{}
	uc := newUseCase(prober, chain)

	result, err := uc.Extract(context.Background(), validRequest(), domain.ExtractionOptions{})
	if err != nil {
		t.Fatalf("network-shaped failure must not surface as error, got %v", err)
	}
	if chain.calls != 0 {
		t.Fatalf("probe failure must skip all inference calls, got %d", chain.calls)
	}
	if !result.FallbackUsed || len(result.Events) != 1 {
		t.Fatalf("expected single fallback event, got %+v", result)
	}
	if !result.Events[0].IsValidDate || result.Events[0].Date != "2025-06-09" {
		t.Fatalf("fallback event must carry a valid date: %+v", result.Events[0])
	}
}

func TestExtractDegradesOnNetworkShapedChainFailures(t *testing.T) {
	for _, kind := range []error{
		domain.ErrNetworkExhausted,
		domain.ErrTimeout,
		domain.ErrModelUnavailable,
	} {
		chain := &chainFake{err: domain.WrapError(kind, "model call", errors.New("boom"))}
		uc := newUseCase(&proberFake{}, chain)

		result, err := uc.Extract(context.Background(), validRequest(), domain.ExtractionOptions{})
		if err != nil {
			t.Fatalf("%v: expected degradation, got error %v", kind, err)
		}
		if !result.FallbackUsed || len(result.Events) != 1 {
			t.Fatalf("%v: expected single fallback event, got %+v", kind, result)
		}
	}
}

func TestExtractPropagatesActionableFailures(t *testing.T) {
	for _, kind := range []error{
		domain.ErrUnauthorized,
		domain.ErrConfiguration,
		domain.ErrMalformedResponse,
	} {
		chain := &chainFake{err: domain.WrapError(kind, "model call", errors.New("boom"))}
		uc := newUseCase(&proberFake{}, chain)

		_, err := uc.Extract(context.Background(), validRequest(), domain.ExtractionOptions{})
		if !domain.IsKind(err, kind) {
			t.Fatalf("expected %v to propagate, got %v", kind, err)
		}
	}
}

func TestExtractRejectsEmptyImage(t *testing.T) {
	prober := &proberFake{}
	uc := newUseCase(prober, &chainFake{})

	_, err := uc.Extract(context.Background(), domain.ExtractionRequest{}, domain.ExtractionOptions{})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if prober.calls != 0 {
		t.Fatalf("invalid request must not reach the probe")
	}
}

func TestExtractProbeRunsExactlyOnce(t *testing.T) {
	prober := &proberFake{}
	chain := &chainFake{output: domain.ModelOutput{Text: "[]", ModelUsed: "gpt-4o"}}
	uc := newUseCase(prober, chain)

	if _, err := uc.Extract(context.Background(), validRequest(), domain.ExtractionOptions{}); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if prober.calls != 1 {
		t.Fatalf("expected exactly one probe, got %d", prober.calls)
	}
}
