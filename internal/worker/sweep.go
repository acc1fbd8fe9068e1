package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/watertime/watertime/internal/user"
)

// SweepConfig holds configuration for the reminder sweep.
type SweepConfig struct {
	// Concurrency is the number of users evaluated in parallel.
	// Default: 4
	Concurrency int

	// Timeout bounds the evaluation of a single user.
	// Default: 10 seconds
	Timeout time.Duration

	// PageSize is the number of users fetched per page.
	// Default: 100
	PageSize int
}

// DefaultSweepConfig returns the default sweep configuration.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Concurrency: 4,
		Timeout:     10 * time.Second,
		PageSize:    100,
	}
}

// ActiveUsers pages through active users ordered by ID.
type ActiveUsers interface {
	ListActive(ctx context.Context, afterID string, limit int) ([]*user.User, error)
}

// SweepJob evaluates reminder policy for every active user.
type SweepJob struct {
	config    SweepConfig
	users     ActiveUsers
	evaluator Evaluator
	logger    zerolog.Logger

	metrics *SweepMetrics
}

// SweepMetrics tracks sweep statistics across runs.
type SweepMetrics struct {
	mu sync.RWMutex

	TotalSweeps      int64
	UsersEvaluated   int64
	RemindersSent    int64
	AchievementsSent int64
	Failures         int64

	LastSweepAt       time.Time
	LastSweepDuration time.Duration
}

// SweepJobConfig holds the dependencies of a SweepJob.
type SweepJobConfig struct {
	Config    SweepConfig
	Users     ActiveUsers
	Evaluator Evaluator
	Logger    zerolog.Logger
}

// NewSweepJob creates a new sweep job. Zero config values take defaults.
func NewSweepJob(cfg SweepJobConfig) *SweepJob {
	config := cfg.Config
	defaults := DefaultSweepConfig()
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.PageSize <= 0 {
		config.PageSize = defaults.PageSize
	}

	return &SweepJob{
		config:    config,
		users:     cfg.Users,
		evaluator: cfg.Evaluator,
		logger:    cfg.Logger,
		metrics:   &SweepMetrics{},
	}
}

// SweepResult contains the result of one sweep.
type SweepResult struct {
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
	Users            int
	Evaluated        int
	RemindersSent    int
	AchievementsSent int
	Failed           int
	Errors           []SweepError
}

// SweepError records a failed user evaluation.
type SweepError struct {
	UserID string
	Error  string
}

type userResult struct {
	userID      string
	reminder    bool
	achievement bool
	err         error
}

// Run evaluates all active users. A failure for one user never stops the
// others; listing failures end the sweep early with what was collected.
func (j *SweepJob) Run(ctx context.Context) *SweepResult {
	startTime := time.Now()
	result := &SweepResult{StartTime: startTime}

	j.logger.Info().
		Int("concurrency", j.config.Concurrency).
		Msg("starting reminder sweep")

	userIDs := make(chan string)
	results := make(chan userResult)

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.sweepWorker(ctx, userIDs, results)
		}()
	}

	go func() {
		defer close(userIDs)
		j.produce(ctx, userIDs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for ur := range results {
		result.Users++
		if ur.err != nil {
			result.Failed++
			result.Errors = append(result.Errors, SweepError{UserID: ur.userID, Error: ur.err.Error()})
			continue
		}
		result.Evaluated++
		if ur.reminder {
			result.RemindersSent++
		}
		if ur.achievement {
			result.AchievementsSent++
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("users", result.Users).
		Int("reminders_sent", result.RemindersSent).
		Int("achievements_sent", result.AchievementsSent).
		Int("failed", result.Failed).
		Msg("reminder sweep completed")

	return result
}

func (j *SweepJob) produce(ctx context.Context, out chan<- string) {
	after := ""
	for {
		page, err := j.users.ListActive(ctx, after, j.config.PageSize)
		if err != nil {
			j.logger.Error().Err(err).Str("after", after).Msg("listing active users failed")
			return
		}
		for _, u := range page {
			select {
			case out <- u.ID:
			case <-ctx.Done():
				return
			}
		}
		if len(page) < j.config.PageSize {
			return
		}
		after = page[len(page)-1].ID
	}
}

func (j *SweepJob) sweepWorker(ctx context.Context, userIDs <-chan string, results chan<- userResult) {
	for userID := range userIDs {
		userCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
		outcome, err := j.evaluator.Evaluate(userCtx, userID)
		cancel()

		results <- userResult{
			userID:      userID,
			reminder:    outcome.ReminderSent,
			achievement: outcome.AchievementSent,
			err:         err,
		}
	}
}

func (j *SweepJob) updateMetrics(result *SweepResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalSweeps++
	j.metrics.UsersEvaluated += int64(result.Evaluated)
	j.metrics.RemindersSent += int64(result.RemindersSent)
	j.metrics.AchievementsSent += int64(result.AchievementsSent)
	j.metrics.Failures += int64(result.Failed)
	j.metrics.LastSweepAt = result.EndTime
	j.metrics.LastSweepDuration = result.Duration
}

// MetricsSnapshot returns a snapshot of the sweep metrics as a map.
func (j *SweepJob) MetricsSnapshot() map[string]interface{} {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return map[string]interface{}{
		"total_sweeps":        j.metrics.TotalSweeps,
		"users_evaluated":     j.metrics.UsersEvaluated,
		"reminders_sent":      j.metrics.RemindersSent,
		"achievements_sent":   j.metrics.AchievementsSent,
		"failures":            j.metrics.Failures,
		"last_sweep_at":       j.metrics.LastSweepAt,
		"last_sweep_duration": j.metrics.LastSweepDuration.String(),
	}
}

// Schedule runs the sweep every interval until ctx is cancelled.
func (j *SweepJob) Schedule(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			j.Run(ctx)
		}
	}
}
