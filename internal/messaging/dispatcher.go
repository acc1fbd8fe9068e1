package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// TokenStore resolves and prunes the device tokens of a user.
type TokenStore interface {
	PushTokens(ctx context.Context, userID string) ([]string, error)
	DeleteByToken(ctx context.Context, token string) error
}

// DispatcherConfig holds configuration for the dispatcher.
type DispatcherConfig struct {
	Transport Transport
	Tokens    TokenStore
	Logger    zerolog.Logger
	Metrics   *Metrics

	// Concurrency limits parallel sends per call (default: 8).
	Concurrency int
}

// Dispatcher fans messages out to a user's devices.
type Dispatcher struct {
	transport   Transport
	tokens      TokenStore
	logger      zerolog.Logger
	metrics     *Metrics
	concurrency int
}

// NewDispatcher creates a new dispatcher. A nil transport disables sending.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	transport := cfg.Transport
	if transport == nil {
		transport = NoopTransport{}
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}

	return &Dispatcher{
		transport:   transport,
		tokens:      cfg.Tokens,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		concurrency: concurrency,
	}
}

// Enabled reports whether a real provider is configured.
func (d *Dispatcher) Enabled() bool {
	_, noop := d.transport.(NoopTransport)
	return !noop
}

// SendPushNotification sends msg to every active device of the user.
// A user without devices yields an empty result and no error.
func (d *Dispatcher) SendPushNotification(ctx context.Context, userID string, msg Message) (Result, error) {
	if !d.Enabled() {
		return Result{}, ErrDisabled
	}

	tokens, err := d.tokens.PushTokens(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("resolving device tokens: %w", err)
	}
	if len(tokens) == 0 {
		d.logger.Debug().Str("user_id", userID).Msg("no push tokens for user")
		return Result{}, nil
	}

	return d.SendToDeviceTokens(ctx, tokens, msg)
}

// SendToDeviceTokens sends msg to each token and reports per-token outcomes.
// Tokens the provider rejects as invalid are removed from the token store.
func (d *Dispatcher) SendToDeviceTokens(ctx context.Context, tokens []string, msg Message) (Result, error) {
	if !d.Enabled() {
		return Result{}, ErrDisabled
	}

	var (
		mu     sync.Mutex
		result Result
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	for _, token := range tokens {
		g.Go(func() error {
			err := d.transport.SendToToken(gctx, token, msg)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				result.SuccessCount++
			case errors.Is(err, ErrInvalidToken):
				result.FailureCount++
				result.InvalidTokens = append(result.InvalidTokens, token)
			default:
				result.FailureCount++
				d.logger.Warn().Err(err).Str("provider", d.transport.Name()).Msg("push delivery failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, token := range result.InvalidTokens {
		if d.tokens == nil {
			break
		}
		if err := d.tokens.DeleteByToken(ctx, token); err != nil {
			d.logger.Warn().Err(err).Msg("pruning invalid push token failed")
		}
	}

	d.metrics.record(ctx, d.transport.Name(), result)
	return result, nil
}

// SendToDevice sends msg to a single token.
func (d *Dispatcher) SendToDevice(ctx context.Context, token string, msg Message) error {
	result, err := d.SendToDeviceTokens(ctx, []string{token}, msg)
	if err != nil {
		return err
	}
	if len(result.InvalidTokens) > 0 {
		return ErrInvalidToken
	}
	if result.FailureCount > 0 {
		return errors.New("push to device failed")
	}
	return nil
}

// SendToTopic broadcasts msg to a topic.
func (d *Dispatcher) SendToTopic(ctx context.Context, topic string, msg Message) error {
	err := d.transport.SendToTopic(ctx, topic, msg)
	result := Result{SuccessCount: 1}
	if err != nil {
		result = Result{FailureCount: 1}
	}
	d.metrics.record(ctx, d.transport.Name(), result)
	return err
}
