package inference

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/snapcal/snapcal/internal/core/domain"
)

// Prober issues a single minimal reachability call against the inference
// host before the first expensive request. It carries its own short
// timeout and never retries; the pipeline runs it exactly once per
// extraction, not per attempt.
type Prober struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

func NewProber(baseURL string, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Prober{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

func (p *Prober) Probe(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, p.baseURL+"/v1/models", nil)
	if err != nil {
		return domain.WrapError(domain.ErrConnectivityUnavailable, "connectivity probe", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return domain.WrapError(domain.ErrConnectivityUnavailable, "connectivity probe", err)
	}
	// Any HTTP response, including 401, proves the host is reachable.
	_ = resp.Body.Close()
	return nil
}
