package httpadapter

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/snapcal/snapcal/internal/core/domain"
	"github.com/snapcal/snapcal/internal/core/ports"
	"github.com/snapcal/snapcal/internal/infrastructure/export"
	"github.com/snapcal/snapcal/internal/observability/metrics"
)

const (
	serviceName   = "snapcal-api"
	ownerHeader   = "X-User-Id"
	maxUploadSize = 20 << 20
)

type TrafficConfig struct {
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
}

// Router is the caller layer around the extraction pipeline. It owns what
// the pipeline does not: trust of the upstream-verified owner identity,
// optional persistence of accepted results, and the ICS rendering.
type Router struct {
	extractor ports.EventExtractor
	store     ports.EventStore
	models    []domain.CandidateModel
	metrics   *metrics.HTTPServerMetrics
	traffic   TrafficConfig
}

func NewRouter(
	extractor ports.EventExtractor,
	store ports.EventStore,
	models []domain.CandidateModel,
	serverMetrics *metrics.HTTPServerMetrics,
	traffic TrafficConfig,
) *Router {
	return &Router{
		extractor: extractor,
		store:     store,
		models:    models,
		metrics:   serverMetrics,
		traffic:   traffic,
	}
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/v1/extractions", rt.createExtraction)
	api.HandleFunc("/v1/events", rt.listEvents)
	api.HandleFunc("/v1/events/", rt.eventByID)

	var apiHandler http.Handler = api
	apiHandler = backpressureMiddleware(apiHandler, rt.traffic.MaxInFlight, 100*time.Millisecond)
	apiHandler = rateLimitMiddleware(apiHandler, rt.traffic.RateLimitRPS, rt.traffic.RateLimitBurst)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}
	mux.Handle("/v1/", apiHandler)

	var handler http.Handler = mux
	handler = metricsMiddleware(handler, rt.metrics)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type extractionRequestBody struct {
	ImageBase64 string `json:"image_base64"`
	Filename    string `json:"filename"`
	Options     struct {
		MaxRetries       int      `json:"max_retries"`
		AttemptTimeoutMs int      `json:"attempt_timeout_ms"`
		Models           []string `json:"models"`
	} `json:"options"`
}

func (rt *Router) createExtraction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	req, opts, err := rt.decodeExtraction(r)
	if err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	result, err := rt.extractor.Extract(r.Context(), req, opts)
	if err != nil {
		rt.observeExtraction("error", nil, start)
		writeError(w, err)
		return
	}
	rt.observeExtraction(extractionStatus(result), result, start)

	if r.URL.Query().Get("save") == "true" {
		if err := rt.saveEvents(r, result); err != nil {
			writeError(w, err)
			return
		}
	}

	if r.URL.Query().Get("format") == "ics" {
		body, err := export.ICS(result.Events)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", "attachment; filename="+export.Filename(time.Now()))
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, body)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) decodeExtraction(r *http.Request) (domain.ExtractionRequest, domain.ExtractionOptions, error) {
	opts := domain.ExtractionOptions{Models: rt.models}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			return domain.ExtractionRequest{}, opts, domain.WrapError(domain.ErrInvalidInput, "decode extraction", err)
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			return domain.ExtractionRequest{}, opts, domain.WrapError(domain.ErrInvalidInput, "decode extraction", err)
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
		if err != nil {
			return domain.ExtractionRequest{}, opts, domain.WrapError(domain.ErrInvalidInput, "decode extraction", err)
		}
		return domain.ExtractionRequest{
			ImageBase64: base64.StdEncoding.EncodeToString(data),
			Filename:    header.Filename,
		}, opts, nil
	}

	var body extractionRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return domain.ExtractionRequest{}, opts, domain.WrapError(domain.ErrInvalidInput, "decode extraction", err)
	}
	if body.Options.MaxRetries > 0 {
		opts.MaxRetries = body.Options.MaxRetries
	}
	if body.Options.AttemptTimeoutMs > 0 {
		opts.PerAttemptTimeout = time.Duration(body.Options.AttemptTimeoutMs) * time.Millisecond
	}
	if len(body.Options.Models) > 0 {
		models := make([]domain.CandidateModel, 0, len(body.Options.Models))
		for i, name := range body.Options.Models {
			models = append(models, domain.CandidateModel{Name: name, Priority: i})
		}
		opts.Models = models
	}
	return domain.ExtractionRequest{
		ImageBase64: body.ImageBase64,
		Filename:    body.Filename,
	}, opts, nil
}

// saveEvents hands the pipeline's output to the persistence collaborator.
// This is the caller's responsibility, never the pipeline's.
func (rt *Router) saveEvents(r *http.Request, result *domain.ExtractionResult) error {
	if rt.store == nil {
		return domain.WrapError(domain.ErrConfiguration, "save events",
			errNoStore)
	}
	owner := strings.TrimSpace(r.Header.Get(ownerHeader))
	if owner == "" {
		return domain.WrapError(domain.ErrUnauthorized, "save events", errNoOwner)
	}
	_, err := rt.store.CreateEvents(r.Context(), owner, result.Events)
	return err
}

func (rt *Router) listEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.store == nil {
		writeError(w, domain.WrapError(domain.ErrConfiguration, "list events", errNoStore))
		return
	}
	owner := strings.TrimSpace(r.Header.Get(ownerHeader))
	if owner == "" {
		writeError(w, domain.WrapError(domain.ErrUnauthorized, "list events", errNoOwner))
		return
	}

	events, err := rt.store.ListEvents(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (rt *Router) eventByID(w http.ResponseWriter, r *http.Request) {
	if rt.store == nil {
		writeError(w, domain.WrapError(domain.ErrConfiguration, "event by id", errNoStore))
		return
	}
	owner := strings.TrimSpace(r.Header.Get(ownerHeader))
	if owner == "" {
		writeError(w, domain.WrapError(domain.ErrUnauthorized, "event by id", errNoOwner))
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/events/")
	if id == "" {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "event by id", errNoEventID))
		return
	}

	switch r.Method {
	case http.MethodPut:
		var event domain.ExtractedEvent
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			writeError(w, domain.WrapError(domain.ErrInvalidInput, "update event", err))
			return
		}
		updated, err := rt.store.UpdateEvent(r.Context(), owner, id, event)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := rt.store.DeleteEvent(r.Context(), owner, id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) observeExtraction(status string, result *domain.ExtractionResult, start time.Time) {
	if rt.metrics == nil {
		return
	}
	events := 0
	if result != nil {
		events = len(result.Events)
		rt.metrics.ObserveModelUsed(serviceName, result.ModelUsed)
	}
	rt.metrics.ObserveExtraction(serviceName, status, events, time.Since(start))
}

func extractionStatus(result *domain.ExtractionResult) string {
	if result.FallbackUsed {
		return "fallback"
	}
	return "ok"
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": userFacingMessage(err)})
}
