package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/shahar-caura/scout/internal/config"
)

// ErrNotConfigured is returned when no API key is available.
var ErrNotConfigured = errors.New("search: EXA_API_KEY not configured")

// maxErrorBody caps how much of a failed response is kept in the error.
const maxErrorBody = 512

// Exa queries an Exa-compatible neural search API.
type Exa struct {
	baseURL    string
	apiKey     string
	numResults int
	kind       string
	limiter    *rate.Limiter
	client     *http.Client
}

// New returns an Exa client for cfg. A zero rate disables throttling.
func New(cfg config.SearchConfig) *Exa {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	numResults := cfg.NumResults
	if numResults < 1 {
		numResults = 5
	}
	kind := cfg.Type
	if kind == "" {
		kind = "neural"
	}
	return &Exa{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		numResults: numResults,
		kind:       kind,
		limiter:    rate.NewLimiter(limit, burst),
		client:     &http.Client{Timeout: cfg.Timeout.Duration},
	}
}

// Configured reports whether an API key is set.
func (e *Exa) Configured() bool { return e.apiKey != "" }

// Search runs query against the provider.
func (e *Exa) Search(ctx context.Context, query string) (*Response, error) {
	if !e.Configured() {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("search: query is empty")
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("search: waiting for rate limiter: %w", err)
	}

	payload, err := json.Marshal(request{
		Query:         query,
		NumResults:    e.numResults,
		Type:          e.kind,
		UseAutoprompt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("search: marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("search: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("search: reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, fmt.Errorf("search: unexpected status %d after %s: %s",
			resp.StatusCode, time.Since(start).Round(time.Millisecond), body)
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("search: decoding response: %w", err)
	}
	if out.Results == nil {
		out.Results = []Result{}
	}
	return &out, nil
}
