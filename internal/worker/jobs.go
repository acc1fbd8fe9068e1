// Package worker runs WaterTime background jobs: per-user reminder checks
// delivered over Pub/Sub and the periodic sweep over all active users.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/watertime/watertime/internal/reminder"
)

// Job types carried in Pub/Sub messages.
const (
	JobReminderCheck = "reminder_check"
	JobReminderSweep = "reminder_sweep"
)

// Job errors that redelivery cannot fix.
var (
	ErrMissingUserID = errors.New("reminder check requires user_id")
	ErrUnknownJob    = errors.New("unknown job type")

	errMalformed = errors.New("malformed job")
)

// JobMessage is the JSON body of a worker Pub/Sub message.
type JobMessage struct {
	JobType string `json:"job_type"`
	UserID  string `json:"user_id,omitempty"`
}

// Evaluator applies reminder policy to one user.
type Evaluator interface {
	Evaluate(ctx context.Context, userID string) (reminder.Outcome, error)
}

// Runner executes decoded jobs.
type Runner struct {
	evaluator Evaluator
	sweep     *SweepJob
	logger    zerolog.Logger
}

// NewRunner creates a job runner. sweep may be nil, in which case sweep
// jobs are acknowledged without running.
func NewRunner(evaluator Evaluator, sweep *SweepJob, logger zerolog.Logger) *Runner {
	return &Runner{evaluator: evaluator, sweep: sweep, logger: logger}
}

// Handle decodes and runs one job message.
func (r *Runner) Handle(ctx context.Context, data []byte) error {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %v", errMalformed, err)
	}

	switch msg.JobType {
	case JobReminderCheck:
		if msg.UserID == "" {
			return ErrMissingUserID
		}
		outcome, err := r.evaluator.Evaluate(ctx, msg.UserID)
		if err != nil {
			return fmt.Errorf("evaluating reminders for %s: %w", msg.UserID, err)
		}
		r.logger.Debug().
			Str("user_id", msg.UserID).
			Bool("reminder_sent", outcome.ReminderSent).
			Bool("achievement_sent", outcome.AchievementSent).
			Msg("reminder check completed")
		return nil
	case JobReminderSweep:
		if r.sweep == nil {
			return nil
		}
		result := r.sweep.Run(ctx)
		if result.Failed > 0 && result.Evaluated == 0 {
			return fmt.Errorf("reminder sweep failed for all %d users", result.Failed)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJob, msg.JobType)
	}
}

// EncodeReminderCheck builds the message body for a per-user check.
func EncodeReminderCheck(userID string) ([]byte, error) {
	return json.Marshal(JobMessage{JobType: JobReminderCheck, UserID: userID})
}

func isPermanent(err error) bool {
	return errors.Is(err, ErrUnknownJob) || errors.Is(err, ErrMissingUserID) || errors.Is(err, errMalformed)
}
