/*
Package jobqueue configuration - tunable parameters for the River job queue.

Automated marketplace sessions can run for minutes when every turn is an LLM call,
so they are executed by River workers instead of inside the HTTP request.

## Tuning:
- MaxWorkers bounds how many sessions negotiate at once (and so how many LLM calls are in flight)
- MaxAttempts bounds retries of a failed run; a retry resumes from the stored session state
- JobTimeout caps a single run

## Database Requirements:
- PostgreSQL with River schema migrations applied (`agentmarket db migrate`)
*/
package jobqueue

import (
	"time"

	"github.com/riverqueue/river"
)

// QueueConfig holds all configurable parameters for the job queue
type QueueConfig struct {
	MaxWorkers  int           // Concurrent automated sessions (default: 5)
	MaxAttempts int           // Attempts per job before it is discarded (default: 3)
	JobTimeout  time.Duration // Maximum time a single run may take (default: 30 minutes)
}

// DefaultQueueConfig returns the default configuration
func DefaultQueueConfig() *QueueConfig {
	return &QueueConfig{
		MaxWorkers:  5,
		MaxAttempts: 3,
		JobTimeout:  30 * time.Minute,
	}
}

// RiverQueueConfig converts our config to River's queue configuration format
func (c *QueueConfig) RiverQueueConfig() map[string]river.QueueConfig {
	return map[string]river.QueueConfig{
		river.QueueDefault: {
			MaxWorkers: c.MaxWorkers,
		},
	}
}
