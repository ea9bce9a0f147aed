package inference

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"

	"github.com/snapcal/snapcal/internal/core/domain"
	"github.com/snapcal/snapcal/internal/infrastructure/resilience"
)

// FallbackChain tries candidate models in priority order. Each model gets
// one pass through the resilient request executor; the chain advances only
// on model-level failures (503, 404, 500) and aborts immediately on
// anything that a different model cannot fix.
type FallbackChain struct {
	client  *Client
	baseCfg resilience.Config
	exec    *resilience.Executor
}

func NewFallbackChain(client *Client, cfg resilience.Config) *FallbackChain {
	return &FallbackChain{
		client:  client,
		baseCfg: cfg,
		exec:    resilience.NewExecutor(cfg),
	}
}

func (c *FallbackChain) Run(ctx context.Context, req domain.ExtractionRequest, opts domain.ExtractionOptions) (domain.ModelOutput, error) {
	models := opts.Models
	if len(models) == 0 {
		models = domain.DefaultModels()
	}
	models = append([]domain.CandidateModel(nil), models...)
	sort.SliceStable(models, func(i, j int) bool { return models[i].Priority < models[j].Priority })

	exec := c.executorFor(opts)

	var lastErr error
	for _, model := range models {
		var text string
		err := exec.Execute(ctx, "extract_"+model.Name, func(attemptCtx context.Context) error {
			out, callErr := c.client.Complete(attemptCtx, model.Name, req)
			if callErr != nil {
				return callErr
			}
			text = out
			return nil
		}, classifyCallError(ctx))

		if err == nil {
			slog.Info("model_chain_done", "model", model.Name)
			return domain.ModelOutput{Text: text, ModelUsed: model.Name}, nil
		}

		if advancesChain(err) {
			slog.Warn("model_chain_advance", "model", model.Name, "error", err)
			lastErr = err
			continue
		}
		return domain.ModelOutput{}, c.terminal(ctx, err)
	}

	return domain.ModelOutput{}, domain.WrapError(domain.ErrModelUnavailable, "model fallback chain", lastErr)
}

// executorFor honors per-request retry and timeout overrides without
// disturbing the shared executor (and its breaker state).
func (c *FallbackChain) executorFor(opts domain.ExtractionOptions) *resilience.Executor {
	if opts.MaxRetries <= 0 && opts.PerAttemptTimeout <= 0 {
		return c.exec
	}
	cfg := c.baseCfg
	cfg.BreakerEnabled = false
	if opts.MaxRetries > 0 {
		cfg.MaxRetries = opts.MaxRetries
	}
	if opts.PerAttemptTimeout > 0 {
		cfg.AttemptTimeout = opts.PerAttemptTimeout
	}
	return resilience.NewExecutor(cfg)
}

// terminal maps a chain-aborting failure onto the error taxonomy.
func (c *FallbackChain) terminal(ctx context.Context, err error) error {
	if domain.IsKind(err, domain.ErrMalformedResponse) {
		return err
	}
	if resilience.AttemptTimedOut(ctx, err) {
		return domain.WrapError(domain.ErrTimeout, "model call", err)
	}
	if ctx.Err() != nil {
		return err
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return domain.WrapError(domain.ErrUnauthorized, "model call", err)
		default:
			return domain.WrapError(domain.ErrInvalidInput, "model call", err)
		}
	}

	return domain.WrapError(domain.ErrNetworkExhausted, "model call", err)
}
