package llm

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/agentmarket/internal/retry"
)

// ResilientClient wraps a Client with per-attempt timeouts, retries and JSON repair
type ResilientClient struct {
	client    Client
	retry     retry.Config
	eventSink EventSink
}

// NewResilientClient creates a resilient wrapper. eventSink may be nil.
func NewResilientClient(client Client, cfg retry.Config, eventSink EventSink) *ResilientClient {
	base := cfg.ShouldRetry
	cfg.ShouldRetry = func(err error) bool {
		if errors.Is(err, ErrMalformedResponse) {
			return true
		}
		return base == nil || base(err)
	}
	return &ResilientClient{client: client, retry: cfg, eventSink: eventSink}
}

// Request is one oracle call
type Request struct {
	NegotiationID string
	Role          string
	Prompt        string
	Timeout       time.Duration
}

// Response describes how the call went
type Response struct {
	Raw         string
	Attempts    int
	Duration    time.Duration
	RepairStats *RepairStats
	Reasons     []string
}

// GenerateJSON calls the model until it returns JSON that decodes into target or retries run out
func (rc *ResilientClient) GenerateJSON(ctx context.Context, req Request, target any) (Response, error) {
	var resp Response
	attempt := 0

	result := retry.DoWithReason(ctx, rc.retry, func(ctx context.Context) (string, error) {
		attempt++
		attemptCtx := ctx
		if req.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, req.Timeout)
			defer cancel()
		}

		started := time.Now()
		raw, err := rc.client.Generate(attemptCtx, req.Prompt)
		if err != nil {
			reason := err.Error()
			if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				reason = "timeout"
				if rc.eventSink != nil {
					rc.eventSink.TimeoutEvent(req.NegotiationID, req.Role, req.Timeout, time.Since(started))
				}
			}
			rc.retryEvent(req, attempt, reason)
			return reason, err
		}

		stats, err := DecodeJSON(raw, target)
		if err != nil {
			rc.retryEvent(req, attempt, "json_processing_failed")
			return "json_processing_failed", err
		}
		if stats.Repaired {
			resp.RepairStats = &stats
			if rc.eventSink != nil {
				rc.eventSink.RepairEvent(req.NegotiationID, req.Role, stats)
			}
		}
		resp.Raw = raw
		return "", nil
	}, &log.Logger)

	resp.Attempts = result.Attempts
	resp.Duration = result.TotalDuration
	resp.Reasons = result.Reasons
	if !result.Success {
		return resp, result.LastError
	}
	return resp, nil
}

func (rc *ResilientClient) retryEvent(req Request, attempt int, reason string) {
	if rc.eventSink != nil {
		rc.eventSink.RetryEvent(req.NegotiationID, req.Role, attempt, reason)
	}
}
