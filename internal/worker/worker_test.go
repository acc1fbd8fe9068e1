package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watertime/watertime/internal/reminder"
	"github.com/watertime/watertime/internal/user"
	"github.com/watertime/watertime/internal/worker"
)

type fakeEvaluator struct {
	mu      sync.Mutex
	calls   []string
	failFor map[string]bool
}

func (f *fakeEvaluator) Evaluate(_ context.Context, userID string) (reminder.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, userID)
	if f.failFor[userID] {
		return reminder.Outcome{}, errors.New("store unavailable")
	}
	return reminder.Outcome{ReminderSent: true}, nil
}

func (f *fakeEvaluator) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := append([]string(nil), f.calls...)
	sort.Strings(out)
	return out
}

func seedUsers(t *testing.T, n int) *user.InMemoryRepository {
	t.Helper()

	repo := user.NewInMemoryRepository()
	for i := 0; i < n; i++ {
		require.NoError(t, repo.Create(context.Background(), &user.User{
			ID:       fmt.Sprintf("usr_%03d", i),
			Email:    fmt.Sprintf("u%d@example.com", i),
			Goal:     2000,
			IsActive: true,
		}))
	}
	return repo
}

func TestDefaultSweepConfig(t *testing.T) {
	cfg := worker.DefaultSweepConfig()

	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 100, cfg.PageSize)
}

func TestSweepJob_Run_EvaluatesAllUsersAcrossPages(t *testing.T) {
	eval := &fakeEvaluator{}
	job := worker.NewSweepJob(worker.SweepJobConfig{
		Config:    worker.SweepConfig{Concurrency: 3, PageSize: 2},
		Users:     seedUsers(t, 5),
		Evaluator: eval,
		Logger:    zerolog.Nop(),
	})

	result := job.Run(context.Background())

	assert.Equal(t, 5, result.Users)
	assert.Equal(t, 5, result.Evaluated)
	assert.Equal(t, 5, result.RemindersSent)
	assert.Zero(t, result.Failed)
	assert.Equal(t, []string{"usr_000", "usr_001", "usr_002", "usr_003", "usr_004"}, eval.called())
}

func TestSweepJob_Run_IsolatesFailures(t *testing.T) {
	eval := &fakeEvaluator{failFor: map[string]bool{"usr_001": true}}
	job := worker.NewSweepJob(worker.SweepJobConfig{
		Users:     seedUsers(t, 3),
		Evaluator: eval,
		Logger:    zerolog.Nop(),
	})

	result := job.Run(context.Background())

	assert.Equal(t, 3, result.Users)
	assert.Equal(t, 2, result.Evaluated)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "usr_001", result.Errors[0].UserID)

	metrics := job.MetricsSnapshot()
	assert.Equal(t, int64(1), metrics["total_sweeps"])
	assert.Equal(t, int64(2), metrics["users_evaluated"])
	assert.Equal(t, int64(1), metrics["failures"])
}

func TestSweepJob_Run_NoUsers(t *testing.T) {
	eval := &fakeEvaluator{}
	job := worker.NewSweepJob(worker.SweepJobConfig{
		Users:     user.NewInMemoryRepository(),
		Evaluator: eval,
		Logger:    zerolog.Nop(),
	})

	result := job.Run(context.Background())

	assert.Zero(t, result.Users)
	assert.Empty(t, eval.called())
}

func TestRunner_Handle(t *testing.T) {
	eval := &fakeEvaluator{failFor: map[string]bool{"usr_bad": true}}
	sweep := worker.NewSweepJob(worker.SweepJobConfig{
		Users:     seedUsers(t, 2),
		Evaluator: eval,
		Logger:    zerolog.Nop(),
	})
	runner := worker.NewRunner(eval, sweep, zerolog.Nop())
	ctx := context.Background()

	t.Run("reminder check", func(t *testing.T) {
		data, err := worker.EncodeReminderCheck("usr_42")
		require.NoError(t, err)

		require.NoError(t, runner.Handle(ctx, data))
		assert.Contains(t, eval.called(), "usr_42")
	})

	t.Run("evaluation failure", func(t *testing.T) {
		data, err := worker.EncodeReminderCheck("usr_bad")
		require.NoError(t, err)

		err = runner.Handle(ctx, data)
		require.Error(t, err)
		assert.NotErrorIs(t, err, worker.ErrUnknownJob)
	})

	t.Run("missing user", func(t *testing.T) {
		err := runner.Handle(ctx, []byte(`{"job_type":"reminder_check"}`))
		assert.ErrorIs(t, err, worker.ErrMissingUserID)
	})

	t.Run("unknown job", func(t *testing.T) {
		err := runner.Handle(ctx, []byte(`{"job_type":"provider_refresh"}`))
		assert.ErrorIs(t, err, worker.ErrUnknownJob)
	})

	t.Run("malformed", func(t *testing.T) {
		assert.Error(t, runner.Handle(ctx, []byte(`not json`)))
	})

	t.Run("sweep", func(t *testing.T) {
		require.NoError(t, runner.Handle(ctx, []byte(`{"job_type":"reminder_sweep"}`)))
		assert.Subset(t, eval.called(), []string{"usr_000", "usr_001"})
	})
}

func TestSweepJob_Schedule_StopsOnCancel(t *testing.T) {
	job := worker.NewSweepJob(worker.SweepJobConfig{
		Users:     user.NewInMemoryRepository(),
		Evaluator: &fakeEvaluator{},
		Logger:    zerolog.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- job.Schedule(ctx, time.Millisecond) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("schedule did not stop")
	}
}
