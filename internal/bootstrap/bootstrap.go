package bootstrap

import (
	"context"
	"fmt"

	httpadapter "github.com/snapcal/snapcal/internal/adapters/http"
	"github.com/snapcal/snapcal/internal/config"
	"github.com/snapcal/snapcal/internal/core/domain"
	"github.com/snapcal/snapcal/internal/core/ports"
	"github.com/snapcal/snapcal/internal/core/usecase"
	"github.com/snapcal/snapcal/internal/infrastructure/inference"
	"github.com/snapcal/snapcal/internal/infrastructure/parsing"
	"github.com/snapcal/snapcal/internal/infrastructure/repository/postgres"
	"github.com/snapcal/snapcal/internal/infrastructure/resilience"
	"github.com/snapcal/snapcal/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Extractor ports.EventExtractor
	Store     ports.EventStore
	Models    []domain.CandidateModel
	Metrics   *metrics.HTTPServerMetrics
	Router    *httpadapter.Router

	closeFn func()
}

// New wires the extraction pipeline. Credential validation runs before any
// network component is built so a misconfigured deployment fails fast.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	models, err := cfg.Models()
	if err != nil {
		return nil, err
	}

	extractor := NewExtractor(cfg)

	var store ports.EventStore
	closeFn := func() {}
	if cfg.PostgresDSN != "" {
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		repo := postgres.NewEventRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		store = repo
		closeFn = func() { _ = db.Close() }
	}

	serverMetrics := metrics.NewHTTPServerMetrics("snapcal-api")
	router := httpadapter.NewRouter(extractor, store, models, serverMetrics, httpadapter.TrafficConfig{
		RateLimitRPS:   cfg.APIRateLimitRPS,
		RateLimitBurst: cfg.APIRateLimitBurst,
		MaxInFlight:    cfg.MaxConcurrentExtractions,
	})

	return &App{
		Config:    cfg,
		Extractor: extractor,
		Store:     store,
		Models:    models,
		Metrics:   serverMetrics,
		Router:    router,
		closeFn:   closeFn,
	}, nil
}

// NewExtractor builds the pipeline without the server-side collaborators.
// The CLI uses it directly.
func NewExtractor(cfg config.Config) ports.EventExtractor {
	client := inference.New(cfg.InferenceURL, cfg.InferenceAPIKey)
	chain := inference.NewFallbackChain(client, resilience.Config{
		MaxRetries:     cfg.ExtractMaxRetries,
		AttemptTimeout: cfg.ExtractAttemptTimeout,
		BaseDelay:      cfg.ExtractBaseDelay,
		MaxDelay:       cfg.ExtractMaxDelay,
		BreakerEnabled: cfg.BreakerEnabled,
	})
	prober := inference.NewProber(cfg.InferenceURL, cfg.ProbeTimeout)
	parser := parsing.NewParser(cfg.ParseDescriptionCap)
	normalizer := parsing.NewNormalizer()
	return usecase.NewExtractEventsUseCase(prober, chain, parser, normalizer)
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
