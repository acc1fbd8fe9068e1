// Package resilience wraps outbound HTTP calls with a circuit breaker,
// per-attempt timeouts and exponential backoff retries.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

var (
	// ErrCircuitOpen is returned without calling upstream while the breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// BreakerConfig configures the circuit breaker of a Client.
type BreakerConfig struct {
	// MaxRequests allowed while half-open. Default: 1
	MaxRequests uint32

	// Interval clears counts while closed. Zero never clears.
	Interval time.Duration

	// OpenTimeout is how long the breaker stays open. Default: 60s
	OpenTimeout time.Duration

	// ReadyToTrip decides when to open. Default: DefaultReadyToTrip
	ReadyToTrip func(counts gobreaker.Counts) bool

	// OnStateChange is called on every transition.
	OnStateChange func(name string, from, to gobreaker.State)
}

// ClientConfig holds configuration for the resilient HTTP client.
type ClientConfig struct {
	// Name identifies the upstream in the registry and breaker.
	Name string

	// Timeout bounds each attempt. Default: 10s
	Timeout time.Duration

	// MaxRetries after the first attempt. Negative disables retries. Default: 3
	MaxRetries int

	// InitialInterval and MaxInterval shape the backoff. Defaults: 100ms, 5s
	InitialInterval time.Duration
	MaxInterval     time.Duration

	Breaker BreakerConfig

	// Registry receives success and failure reports. Optional.
	Registry *Registry

	// Transport overrides the HTTP transport, e.g. an oauth2 transport.
	Transport http.RoundTripper
}

// DefaultReadyToTrip opens the breaker once 5 requests have been seen and at
// least half of them failed.
func DefaultReadyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < 5 {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
}

// Client is a resilient HTTP client.
type Client struct {
	name       string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	registry   *Registry
	maxRetries int
	initial    time.Duration
	maxBackoff time.Duration
}

// NewClient creates a new resilient HTTP client and registers it with
// cfg.Registry when one is set.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 5 * time.Second
	}
	if cfg.Breaker.MaxRequests == 0 {
		cfg.Breaker.MaxRequests = 1
	}
	if cfg.Breaker.OpenTimeout == 0 {
		cfg.Breaker.OpenTimeout = 60 * time.Second
	}
	if cfg.Breaker.ReadyToTrip == nil {
		cfg.Breaker.ReadyToTrip = DefaultReadyToTrip
	}

	c := &Client{
		name:       cfg.Name,
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		breaker: gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{ //nolint:bodyclose // type param
			Name:          cfg.Name,
			MaxRequests:   cfg.Breaker.MaxRequests,
			Interval:      cfg.Breaker.Interval,
			Timeout:       cfg.Breaker.OpenTimeout,
			ReadyToTrip:   cfg.Breaker.ReadyToTrip,
			OnStateChange: cfg.Breaker.OnStateChange,
		}),
		registry:   cfg.Registry,
		maxRetries: cfg.MaxRetries,
		initial:    cfg.InitialInterval,
		maxBackoff: cfg.MaxInterval,
	}

	if c.registry != nil {
		c.registry.Register(cfg.Name, c)
	}
	return c
}

// Name returns the upstream name.
func (c *Client) Name() string {
	return c.name
}

// Do executes req, retrying network errors and 5xx responses. 4xx responses
// are returned as is. Requests with a body must be replayable (GetBody set),
// which http.NewRequest does for bytes, strings and bytes.Buffer readers.
// When retries are exhausted on a 5xx the last response is returned.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initial
	bo.MaxInterval = c.maxBackoff
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.maxRetries)), ctx)

	var last *http.Response
	attempt := func() error {
		if last != nil {
			drain(last)
			last = nil
		}

		resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // returned to caller
			attemptReq, err := replay(ctx, req)
			if err != nil {
				return nil, err
			}
			r, err := c.httpClient.Do(attemptReq)
			if err != nil {
				return nil, err
			}
			if r.StatusCode >= http.StatusInternalServerError {
				return r, &ServerError{StatusCode: r.StatusCode}
			}
			return r, nil
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			last = resp
			return err
		}
		last = resp
		return nil
	}

	err := backoff.Retry(attempt, policy)
	switch {
	case err == nil:
		c.report(nil)
		return last, nil
	case last != nil:
		c.report(err)
		return last, nil
	default:
		c.report(err)
		return nil, err
	}
}

func (c *Client) report(err error) {
	if c.registry == nil {
		return
	}
	if err != nil {
		c.registry.RecordFailure(c.name, err)
		return
	}
	c.registry.RecordSuccess(c.name)
}

func replay(ctx context.Context, req *http.Request) (*http.Request, error) {
	clone := req.Clone(ctx)
	if req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, backoff.Permanent(errors.New("request body cannot be replayed"))
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("rewinding request body: %w", err))
	}
	clone.Body = body
	return clone, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// ServerError represents an HTTP 5xx server error.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return "server error: " + http.StatusText(e.StatusCode)
}

// State returns the current state of the circuit breaker.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// Counts returns the current counts of the circuit breaker.
func (c *Client) Counts() gobreaker.Counts {
	return c.breaker.Counts()
}
