package llm

import (
	"time"

	"github.com/rs/zerolog"
)

// EventSink receives resiliency events for oracle calls
type EventSink interface {
	RetryEvent(negotiationID, role string, attempt int, reason string)
	RepairEvent(negotiationID, role string, stats RepairStats)
	TimeoutEvent(negotiationID, role string, timeout, elapsed time.Duration)
}

// LogSink writes resiliency events to a zerolog logger
type LogSink struct {
	Logger zerolog.Logger
}

func (s LogSink) RetryEvent(negotiationID, role string, attempt int, reason string) {
	s.Logger.Warn().
		Str("negotiation_id", negotiationID).
		Str("role", role).
		Int("attempt", attempt).
		Str("reason", reason).
		Msg("Oracle attempt failed")
}

func (s LogSink) RepairEvent(negotiationID, role string, stats RepairStats) {
	s.Logger.Info().
		Str("negotiation_id", negotiationID).
		Str("role", role).
		Strs("strategies", stats.Strategies).
		Int("comments_lost", stats.CommentsLost).
		Msg("Oracle response repaired")
}

func (s LogSink) TimeoutEvent(negotiationID, role string, timeout, elapsed time.Duration) {
	s.Logger.Warn().
		Str("negotiation_id", negotiationID).
		Str("role", role).
		Dur("timeout", timeout).
		Dur("elapsed", elapsed).
		Msg("Oracle call timed out")
}
