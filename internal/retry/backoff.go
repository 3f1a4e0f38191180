package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config configures retry behavior with exponential backoff
type Config struct {
	MaxRetries int           `json:"max_retries" koanf:"max_retries"`
	BaseDelay  time.Duration `json:"base_delay" koanf:"base_delay"`
	MaxDelay   time.Duration `json:"max_delay" koanf:"max_delay"`
	Multiplier float64       `json:"multiplier" koanf:"multiplier"`
	Jitter     bool          `json:"jitter" koanf:"jitter"`

	// ShouldRetry decides whether a failed attempt is worth repeating.
	// Nil retries every error.
	ShouldRetry func(error) bool `json:"-" koanf:"-"`
}

// Result describes how a retried operation went
type Result struct {
	Attempts      int           `json:"attempts"`
	TotalDuration time.Duration `json:"total_duration"`
	LastError     error         `json:"-"`
	Success       bool          `json:"success"`
	Reasons       []string      `json:"reasons"`
}

// OracleConfig returns a configuration for offer oracle calls.
// A negotiation turn is interactive, so delays stay short and only transient failures are retried.
func OracleConfig() Config {
	return Config{
		MaxRetries:  2,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2.0,
		Jitter:      true,
		ShouldRetry: IsRetryableError,
	}
}

// DoWithReason executes op with exponential backoff, recording the reason reported for each failure
func DoWithReason(ctx context.Context, cfg Config, op func(ctx context.Context) (string, error), logger *zerolog.Logger) Result {
	start := time.Now()
	result := Result{Reasons: make([]string, 0)}

	finish := func(err error) Result {
		result.LastError = err
		result.Success = err == nil
		result.TotalDuration = time.Since(start)
		return result
	}

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result.Attempts = attempt + 1

		reason, err := op(ctx)
		if err == nil {
			if attempt > 0 && logger != nil {
				logger.Debug().Int("attempts", result.Attempts).Dur("duration", time.Since(start)).Msg("Operation succeeded after retry")
			}
			return finish(nil)
		}
		result.Reasons = append(result.Reasons, reason)

		if attempt >= cfg.MaxRetries || (cfg.ShouldRetry != nil && !cfg.ShouldRetry(err)) {
			if logger != nil {
				logger.Warn().Err(err).Int("attempts", result.Attempts).Msg("Operation failed, giving up")
			}
			return finish(err)
		}
		if ctx.Err() != nil {
			return finish(ctx.Err())
		}

		delay := ComputeDelay(cfg, attempt)
		if logger != nil {
			logger.Debug().Err(err).
				Int("attempt", attempt+1).
				Int("max_attempts", cfg.MaxRetries+1).
				Dur("delay", delay).
				Msg("Operation failed, retrying")
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return finish(ctx.Err())
		case <-timer.C:
		}
	}

	return finish(result.LastError)
}

// ComputeDelay returns the wait before the attempt following attempt (zero based)
func ComputeDelay(cfg Config, attempt int) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(cfg.Multiplier, float64(attempt))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	if cfg.Jitter {
		// +/- 10%
		spread := delay * 0.1
		delay += (rand.Float64() - 0.5) * 2 * spread
		if delay < 0 {
			delay = float64(cfg.BaseDelay)
		}
	}

	return time.Duration(delay)
}

var retryableMarkers = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"temporary failure",
	"service unavailable",
	"too many requests",
	"rate limit",
	"overloaded",
	"429",
	"500",
	"502",
	"503",
	"504",
	"no such host",
	"network unreachable",
	"broken pipe",
	"eof",
}

// IsRetryableError reports whether err looks like a transient transport or provider failure.
// Caller cancellation is never retryable; a per-attempt deadline is.
func IsRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range retryableMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
