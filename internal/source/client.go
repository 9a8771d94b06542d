// Venuescope - Multi-Source Venue Aggregation and Deduplication
// Copyright 2026 Venuescope Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/venuescope/venuescope

package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/venuescope/venuescope/internal/logging"
	"github.com/venuescope/venuescope/internal/metrics"
)

// maxErrorBodySize limits the response body read for error reporting,
// preventing unbounded allocation on large upstream error pages.
const maxErrorBodySize = 64 * 1024 // 64KB

// apiClient is the shared HTTP layer under every source adapter. It combines:
//
//   - a request pacing limiter (token bucket, per-provider QPS)
//   - automatic HTTP 429 handling with exponential backoff (1s..16s) and
//     Retry-After honoring, max 5 retries
//   - a circuit breaker that opens after a 60% failure rate over at least
//     10 requests, degrading the source instead of hammering a dead API
//
// Thread safety: safe for concurrent use; each request is independent.
type apiClient struct {
	source         string
	client         *http.Client
	limiter        *rate.Limiter
	breaker        *gobreaker.CircuitBreaker[[]byte]
	maxRetries     int
	retryBaseDelay time.Duration
}

// newAPIClient creates the shared HTTP layer for one provider. qps bounds
// steady-state request rate; burst allows short pagination bursts.
func newAPIClient(source string, qps float64, burst int) *apiClient {
	metrics.CircuitBreakerState.WithLabelValues(source).Set(0) // 0 = closed

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        source,
		MaxRequests: 3,               // concurrent probes in half-open state
		Interval:    time.Minute,     // reset counts after 1 minute closed
		Timeout:     2 * time.Minute, // open -> half-open after 2 minutes

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("source", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Source circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &apiClient{
		source:         source,
		client:         &http.Client{Timeout: 30 * time.Second},
		limiter:        rate.NewLimiter(rate.Limit(qps), burst),
		breaker:        breaker,
		maxRetries:     5,
		retryBaseDelay: time.Second,
	}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateOpen:
		return 2
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 0
	}
}

// getJSON performs a rate-limited, breaker-protected GET and decodes the JSON
// body into result. header may be nil. On any failure the caller degrades the
// source; getJSON never panics and never retries past the backoff budget.
func (c *apiClient) getJSON(ctx context.Context, reqURL string, header http.Header, result interface{}) error {
	_, err := c.getJSONPaged(ctx, reqURL, header, result)
	return err
}

// getJSONPaged is getJSON plus access to the response headers, which the
// Foursquare adapter needs for Link-header cursor pagination.
func (c *apiClient) getJSONPaged(ctx context.Context, reqURL string, header http.Header, result interface{}) (http.Header, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait canceled: %w", err)
	}

	var respHeader http.Header
	body, err := c.breaker.Execute(func() ([]byte, error) {
		resp, err := c.doRequestWithRateLimit(ctx, reqURL, header)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			errBody := readBodyForError(resp.Body)
			return nil, fmt.Errorf("%s request failed with status %d: %s", c.source, resp.StatusCode, string(errBody))
		}

		respHeader = resp.Header
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", c.source, err)
	}
	return respHeader, nil
}

// doRequestWithRateLimit performs an HTTP GET with automatic rate limit
// handling. Implements exponential backoff for HTTP 429 responses
// (1s, 2s, 4s, 8s, 16s). The context is used for cancellation during
// backoff waits.
func (c *apiClient) doRequestWithRateLimit(ctx context.Context, reqURL string, header http.Header) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		for k, vals := range header {
			for _, v := range vals {
				req.Header.Add(k, v)
			}
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("HTTP request failed: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		// Rate limited (HTTP 429): close body and retry with backoff.
		_ = resp.Body.Close()
		metrics.SourceRateLimitHits.WithLabelValues(c.source).Inc()

		if attempt == c.maxRetries {
			lastErr = fmt.Errorf("rate limit exceeded after %d retries (HTTP 429)", c.maxRetries)
			break
		}

		delay := c.retryBaseDelay * time.Duration(1<<uint(attempt))

		// Honor Retry-After (RFC 6585) when the provider supplies one.
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := time.ParseDuration(retryAfter + "s"); err == nil {
				delay = seconds
			}
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// readBodyForError reads the response body for error reporting (max 64KB).
// Returns the body content or a placeholder message if reading fails.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// sleepCtx blocks for d or until ctx is canceled. Used for mandatory
// inter-page delays such as Google's page token activation wait.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
