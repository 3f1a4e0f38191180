/*
Package jobqueue provides a River-based job queue for running automated marketplace sessions.

For configuration options and tuning parameters, see queue_config.go.
*/
package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/rs/zerolog/log"

	"github.com/agentmarket/internal/market"
)

// SessionRunner executes an automated session
type SessionRunner interface {
	ExecuteAutomatedSession(ctx context.Context, sessionID string) (*market.AutomationResult, error)
}

// AutomatedSessionArgs represents the arguments for an automated session job
type AutomatedSessionArgs struct {
	SessionID string `json:"session_id"`
}

// Kind returns the job kind for River
func (AutomatedSessionArgs) Kind() string {
	return "automated_session"
}

// AutomatedSessionWorker runs queued automated sessions
type AutomatedSessionWorker struct {
	river.WorkerDefaults[AutomatedSessionArgs]
	runner SessionRunner
	config *QueueConfig
}

// Timeout bounds a single run
func (w *AutomatedSessionWorker) Timeout(*river.Job[AutomatedSessionArgs]) time.Duration {
	return w.config.JobTimeout
}

// Work performs the automated session
func (w *AutomatedSessionWorker) Work(ctx context.Context, job *river.Job[AutomatedSessionArgs]) error {
	sessionID := job.Args.SessionID
	log.Info().Str("session_id", sessionID).Int("attempt", job.Attempt).Msg("Running automated session")

	res, err := w.runner.ExecuteAutomatedSession(ctx, sessionID)
	if errors.Is(err, market.ErrSessionNotFound) {
		// the session was deleted after the job was queued; retrying cannot help
		return river.JobCancel(err)
	}
	if err != nil {
		return fmt.Errorf("automated session %s: %w", sessionID, err)
	}

	log.Info().
		Str("session_id", sessionID).
		Int("deals", len(res.Deals)).
		Int("deadlocks", len(res.Deadlocks)).
		Int("switches", len(res.Switches)).
		Int("total_rounds", res.TotalRounds).
		Msg("Automated session job completed")
	return nil
}

// JobQueue manages the River job queue
type JobQueue struct {
	client *river.Client[pgx.Tx]
	config *QueueConfig
}

// NewJobQueue creates a new job queue instance over an existing pool
func NewJobQueue(pool *pgxpool.Pool, runner SessionRunner, config *QueueConfig) (*JobQueue, error) {
	if config == nil {
		config = DefaultQueueConfig()
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &AutomatedSessionWorker{runner: runner, config: config})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:  config.RiverQueueConfig(),
		Workers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	return &JobQueue{client: client, config: config}, nil
}

// Start starts the job queue workers
func (jq *JobQueue) Start(ctx context.Context) error {
	return jq.client.Start(ctx)
}

// Stop stops the job queue workers
func (jq *JobQueue) Stop(ctx context.Context) error {
	return jq.client.Stop(ctx)
}

// QueueAutomatedSession queues a session run and returns the job id
func (jq *JobQueue) QueueAutomatedSession(ctx context.Context, sessionID string) (int64, error) {
	res, err := jq.client.Insert(ctx, AutomatedSessionArgs{SessionID: sessionID}, &river.InsertOpts{
		MaxAttempts: jq.config.MaxAttempts,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to queue automated session job: %w", err)
	}

	log.Info().Str("session_id", sessionID).Int64("job_id", res.Job.ID).Msg("Queued automated session")
	return res.Job.ID, nil
}
