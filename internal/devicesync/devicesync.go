// Package devicesync queues push-token registrations obtained before the
// user is signed in and replays them against the API after login.
package devicesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrEmptyToken is returned when enqueuing an empty token.
var ErrEmptyToken = errors.New("token is required")

// DeviceInfo describes the device a token belongs to.
type DeviceInfo struct {
	Platform   string `json:"platform"`
	Model      string `json:"model,omitempty"`
	OSVersion  string `json:"osVersion,omitempty"`
	AppVersion string `json:"appVersion,omitempty"`
}

// Entry is one pending registration.
type Entry struct {
	Seq        int64
	Token      string
	DeviceInfo DeviceInfo
	Timestamp  time.Time
}

// Store persists pending entries in insertion order.
type Store interface {
	Append(ctx context.Context, e Entry) (Entry, error)
	List(ctx context.Context) ([]Entry, error)
	Remove(ctx context.Context, seq int64) error
	RemoveToken(ctx context.Context, token string) (int, error)
}

// RegisterFunc registers one token with the backend.
type RegisterFunc func(ctx context.Context, token string, info DeviceInfo) error

// FlushResult reports what a flush did.
type FlushResult struct {
	Registered int
	Failed     int
	Errors     []error
}

// Queue is the pending device-sync list.
type Queue struct {
	store  Store
	logger zerolog.Logger
	now    func() time.Time

	// flushMu keeps two flushes from registering the same entry.
	flushMu sync.Mutex
}

// NewQueue creates a queue over store.
func NewQueue(store Store, logger zerolog.Logger) *Queue {
	return &Queue{store: store, logger: logger, now: time.Now}
}

// Enqueue appends a pending registration. Duplicate tokens are kept.
func (q *Queue) Enqueue(ctx context.Context, token string, info DeviceInfo) (Entry, error) {
	if token == "" {
		return Entry{}, ErrEmptyToken
	}
	e, err := q.store.Append(ctx, Entry{Token: token, DeviceInfo: info, Timestamp: q.now()})
	if err != nil {
		return Entry{}, fmt.Errorf("appending pending sync: %w", err)
	}
	return e, nil
}

// Flush calls register for every pending entry in insertion order. Entries
// that register successfully are removed; failed entries stay queued and
// do not stop the remaining ones.
func (q *Queue) Flush(ctx context.Context, register RegisterFunc) (FlushResult, error) {
	q.flushMu.Lock()
	defer q.flushMu.Unlock()

	entries, err := q.store.List(ctx)
	if err != nil {
		return FlushResult{}, fmt.Errorf("listing pending syncs: %w", err)
	}

	var result FlushResult
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if err := register(ctx, e.Token, e.DeviceInfo); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Errorf("registering pending sync %d: %w", e.Seq, err))
			q.logger.Warn().Err(err).Int64("seq", e.Seq).Msg("pending device sync failed")
			continue
		}

		if err := q.store.Remove(ctx, e.Seq); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("removing pending sync %d: %w", e.Seq, err))
			continue
		}
		result.Registered++
	}

	q.logger.Debug().
		Int("registered", result.Registered).
		Int("failed", result.Failed).
		Msg("pending device syncs flushed")

	return result, nil
}

// DequeueMatching removes every entry with token and returns how many were removed.
func (q *Queue) DequeueMatching(ctx context.Context, token string) (int, error) {
	n, err := q.store.RemoveToken(ctx, token)
	if err != nil {
		return 0, fmt.Errorf("removing pending syncs: %w", err)
	}
	return n, nil
}

// Pending returns the queued entries in insertion order.
func (q *Queue) Pending(ctx context.Context) ([]Entry, error) {
	return q.store.List(ctx)
}
