// Package resilience wraps outbound provider calls with retry and circuit
// breaker protection. Every external condition provider routes its HTTP
// traffic through a Client from this package.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned when the circuit breaker rejects a call.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config holds configuration for a resilient HTTP client.
type Config struct {
	// Name identifies the client in circuit breaker state and logs.
	Name string

	// Timeout applies to each individual HTTP attempt. Default: 10s.
	Timeout time.Duration

	// MaxRetries bounds retry attempts after the first call. Default: 3.
	MaxRetries uint64

	// InitialBackoff is the first retry delay. Default: 100ms.
	InitialBackoff time.Duration

	// MaxBackoff caps the retry delay. Default: 5s.
	MaxBackoff time.Duration

	// BreakerTimeout is how long the breaker stays open before probing.
	// Default: 60s.
	BreakerTimeout time.Duration
}

// DefaultConfig returns defaults suitable for condition providers.
func DefaultConfig(name string) Config {
	return Config{
		Name:           name,
		Timeout:        10 * time.Second,
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		BreakerTimeout: 60 * time.Second,
	}
}

// Client is an HTTP client with exponential-backoff retry and a circuit
// breaker per upstream provider.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	config     Config
}

// NewClient creates a resilient HTTP client. Zero config fields are filled
// with defaults.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialBackoff == 0 {
		cfg.InitialBackoff = 100 * time.Millisecond
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	if cfg.BreakerTimeout == 0 {
		cfg.BreakerTimeout = 60 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && ratio >= 0.5
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		config:     cfg,
	}
}

// Do executes the request with retry and breaker protection. Transient
// failures (network errors, 5xx) are retried with exponential backoff; an
// open breaker aborts immediately with ErrCircuitOpen. The caller owns the
// response body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.do(req.Context(), req)
}

func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.config.InitialBackoff
	bo.MaxInterval = c.config.MaxBackoff
	bo.MaxElapsedTime = 0 // retries bounded by MaxRetries, not wall clock

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.config.MaxRetries), ctx)

	var lastResp *http.Response

	attempt := func() error {
		resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // caller closes
			r, err := c.httpClient.Do(req.Clone(ctx))
			if err != nil {
				return nil, err
			}
			// 5xx feeds the breaker and is retryable.
			if r.StatusCode >= 500 {
				return r, &ServerError{StatusCode: r.StatusCode}
			}
			return r, nil
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			if resp != nil {
				lastResp = resp
			}
			return err
		}
		lastResp = resp
		return nil
	}

	if err := backoff.Retry(attempt, policy); err != nil {
		// Surface the final 5xx response when retries are exhausted so the
		// caller can read the upstream status.
		if lastResp != nil {
			return lastResp, nil
		}
		return nil, err
	}

	return lastResp, nil
}

// State returns the current circuit breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// ServerError represents an HTTP 5xx upstream failure.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}
