package devicesync_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watertime/watertime/internal/devicesync"
)

func stores(t *testing.T) map[string]devicesync.Store {
	t.Helper()

	sqlite, err := devicesync.OpenSQLiteStore(filepath.Join(t.TempDir(), "queue", "pending.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]devicesync.Store{
		"memory": devicesync.NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestQueue_FlushIsolatesFailures(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			q := devicesync.NewQueue(store, zerolog.Nop())

			_, err := q.Enqueue(ctx, "tok-fail", devicesync.DeviceInfo{Platform: "android"})
			require.NoError(t, err)
			_, err = q.Enqueue(ctx, "tok-ok", devicesync.DeviceInfo{Platform: "ios", Model: "iPhone"})
			require.NoError(t, err)

			var calls []string
			result, err := q.Flush(ctx, func(_ context.Context, token string, _ devicesync.DeviceInfo) error {
				calls = append(calls, token)
				if token == "tok-fail" {
					return errors.New("backend unavailable")
				}
				return nil
			})
			require.NoError(t, err)

			assert.Equal(t, []string{"tok-fail", "tok-ok"}, calls)
			assert.Equal(t, 1, result.Registered)
			assert.Equal(t, 1, result.Failed)
			assert.Len(t, result.Errors, 1)

			pending, err := q.Pending(ctx)
			require.NoError(t, err)
			require.Len(t, pending, 1)
			assert.Equal(t, "tok-fail", pending[0].Token)
			assert.Equal(t, "android", pending[0].DeviceInfo.Platform)
		})
	}
}

func TestQueue_EnqueueKeepsDuplicatesInOrder(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			q := devicesync.NewQueue(store, zerolog.Nop())

			for _, tok := range []string{"a", "b", "a"} {
				_, err := q.Enqueue(ctx, tok, devicesync.DeviceInfo{Platform: "ios", OSVersion: "18.1"})
				require.NoError(t, err)
			}

			pending, err := q.Pending(ctx)
			require.NoError(t, err)
			require.Len(t, pending, 3)
			assert.Equal(t, "a", pending[0].Token)
			assert.Equal(t, "b", pending[1].Token)
			assert.Equal(t, "a", pending[2].Token)
			assert.Less(t, pending[0].Seq, pending[2].Seq)
			assert.Equal(t, "18.1", pending[2].DeviceInfo.OSVersion)
			assert.False(t, pending[0].Timestamp.IsZero())

			removed, err := q.DequeueMatching(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, 2, removed)

			removed, err = q.DequeueMatching(ctx, "a")
			require.NoError(t, err)
			assert.Zero(t, removed)

			pending, err = q.Pending(ctx)
			require.NoError(t, err)
			require.Len(t, pending, 1)
			assert.Equal(t, "b", pending[0].Token)
		})
	}
}

func TestQueue_EnqueueRejectsEmptyToken(t *testing.T) {
	q := devicesync.NewQueue(devicesync.NewMemoryStore(), zerolog.Nop())

	_, err := q.Enqueue(context.Background(), "", devicesync.DeviceInfo{})
	assert.ErrorIs(t, err, devicesync.ErrEmptyToken)
}

func TestSQLiteStore_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.db")
	ctx := context.Background()

	store, err := devicesync.OpenSQLiteStore(path)
	require.NoError(t, err)
	_, err = devicesync.NewQueue(store, zerolog.Nop()).Enqueue(ctx, "tok", devicesync.DeviceInfo{Platform: "android"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = devicesync.OpenSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	pending, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "tok", pending[0].Token)
}
