package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/snapcal/snapcal/internal/core/domain"
	"github.com/snapcal/snapcal/internal/core/ports"
)

type extractorFake struct {
	result *domain.ExtractionResult
	err    error
	calls  int
}

func (f *extractorFake) Extract(context.Context, domain.ExtractionRequest, domain.ExtractionOptions) (*domain.ExtractionResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type storeFake struct {
	created []domain.ExtractedEvent
	owner   string
	listed  []domain.CalendarEvent
}

func (f *storeFake) CreateEvents(_ context.Context, ownerID string, events []domain.ExtractedEvent) ([]domain.CalendarEvent, error) {
	f.owner = ownerID
	f.created = append(f.created, events...)
	return nil, nil
}

func (f *storeFake) ListEvents(context.Context, string) ([]domain.CalendarEvent, error) {
	return f.listed, nil
}

func (f *storeFake) UpdateEvent(_ context.Context, _, eventID string, event domain.ExtractedEvent) (*domain.CalendarEvent, error) {
	return &domain.CalendarEvent{ID: eventID, Event: event}, nil
}

func (f *storeFake) DeleteEvent(context.Context, string, string) error { return nil }

func successResult() *domain.ExtractionResult {
	return &domain.ExtractionResult{
		Events: []domain.ExtractedEvent{
			{Title: "Team Sync", Date: "2025-06-09", IsValidDate: true, StartTime: "14:00", EndTime: "15:00"},
		},
		ModelUsed: "gpt-4o",
	}
}

func newTestHandler(extractor *extractorFake, store *storeFake, traffic TrafficConfig) http.Handler {
	// Avoid handing the router a non-nil interface wrapping a nil pointer.
	var eventStore ports.EventStore
	if store != nil {
		eventStore = store
	}
	rt := NewRouter(extractor, eventStore, domain.DefaultModels(), nil, traffic)
	return rt.Handler()
}

func postExtraction(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	body := `{"image_base64":"aW1n","filename":"schedule.jpg"}`
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-Id", "u-1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestCreateExtractionReturnsResult(t *testing.T) {
	extractor := &extractorFake{result: successResult()}
	handler := newTestHandler(extractor, nil, TrafficConfig{})

	res := postExtraction(t, handler, "/v1/extractions")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var result domain.ExtractionResult
	if err := json.Unmarshal(res.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(result.Events) != 1 || result.ModelUsed != "gpt-4o" || result.FallbackUsed {
		t.Fatalf("unexpected result: %+v", result)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestCreateExtractionMapsConfigurationErrorWithOperatorMessage(t *testing.T) {
	extractor := &extractorFake{err: domain.WrapError(domain.ErrConfiguration, "validate config", errors.New("INFERENCE_API_KEY is not set"))}
	handler := newTestHandler(extractor, nil, TrafficConfig{})

	res := postExtraction(t, handler, "/v1/extractions")
	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "credential") {
		t.Fatalf("expected operator-directed message, got %s", res.Body.String())
	}
}

func TestCreateExtractionMapsUnauthorizedTo401(t *testing.T) {
	extractor := &extractorFake{err: domain.WrapError(domain.ErrUnauthorized, "model call", errors.New("invalid api key"))}
	handler := newTestHandler(extractor, nil, TrafficConfig{})

	res := postExtraction(t, handler, "/v1/extractions")
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestCreateExtractionSavesThroughEventStore(t *testing.T) {
	extractor := &extractorFake{result: successResult()}
	store := &storeFake{}
	handler := newTestHandler(extractor, store, TrafficConfig{})

	res := postExtraction(t, handler, "/v1/extractions?save=true")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if store.owner != "u-1" || len(store.created) != 1 {
		t.Fatalf("expected saved events for u-1, got owner=%q events=%d", store.owner, len(store.created))
	}
}

func TestCreateExtractionSaveRequiresOwnerHeader(t *testing.T) {
	extractor := &extractorFake{result: successResult()}
	handler := newTestHandler(extractor, &storeFake{}, TrafficConfig{})

	req := httptest.NewRequest(http.MethodPost, "/v1/extractions?save=true", strings.NewReader(`{"image_base64":"aW1n"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without owner header, got %d", res.Code)
	}
}

func TestCreateExtractionRendersICS(t *testing.T) {
	extractor := &extractorFake{result: successResult()}
	handler := newTestHandler(extractor, nil, TrafficConfig{})

	res := postExtraction(t, handler, "/v1/extractions?format=ics")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.HasPrefix(res.Header().Get("Content-Type"), "text/calendar") {
		t.Fatalf("expected text/calendar, got %q", res.Header().Get("Content-Type"))
	}
	if !strings.Contains(res.Body.String(), "BEGIN:VEVENT") {
		t.Fatalf("expected a VEVENT in body:\n%s", res.Body.String())
	}
}

func TestListEventsRequiresOwner(t *testing.T) {
	handler := newTestHandler(&extractorFake{}, &storeFake{}, TrafficConfig{})

	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestListEventsReturnsOwnerEvents(t *testing.T) {
	store := &storeFake{listed: []domain.CalendarEvent{{ID: "e-1", OwnerID: "u-1"}}}
	handler := newTestHandler(&extractorFake{}, store, TrafficConfig{})

	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	req.Header.Set("X-User-Id", "u-1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if !strings.Contains(res.Body.String(), "e-1") {
		t.Fatalf("expected stored event in body, got %s", res.Body.String())
	}
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	extractor := &extractorFake{result: successResult()}
	handler := newTestHandler(extractor, nil, TrafficConfig{RateLimitRPS: 0.001, RateLimitBurst: 1})

	res1 := postExtraction(t, handler, "/v1/extractions")
	if res1.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", res1.Code)
	}

	res2 := postExtraction(t, handler, "/v1/extractions")
	if res2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", res2.Code)
	}
	if res2.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header for 429 response")
	}
}

func TestBackpressureMiddlewareReturns503WhenSaturated(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan int, 1)

	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		w.WriteHeader(http.StatusNoContent)
	})
	handler := backpressureMiddleware(base, 1, 20*time.Millisecond)

	go func() {
		req := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		done <- res.Code
	}()

	<-started

	req2 := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, req2)
	if res2.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for saturated backpressure gate, got %d", res2.Code)
	}

	close(release)
	if code := <-done; code != http.StatusNoContent {
		t.Fatalf("first request expected 204, got %d", code)
	}
}

func TestCreateExtractionRejectsWrongMethod(t *testing.T) {
	handler := newTestHandler(&extractorFake{}, nil, TrafficConfig{})

	req := httptest.NewRequest(http.MethodGet, "/v1/extractions", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}
