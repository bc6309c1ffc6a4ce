package client

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"nbastats/reconciliation/internal/metrics"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Default retry policy for stats provider calls. The provider enforces
// undocumented rate limits, so every attempt is paced and transient
// failures back off exponentially.
const (
	DefaultPacing      = 1 * time.Second
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 800 * time.Millisecond
	DefaultMaxDelay    = 8 * time.Second
)

// transientMarkers are case-insensitive substrings that identify a
// retryable failure in an error's text. Kept as a documented heuristic:
// the provider surfaces rate limiting and gateway trouble in many
// shapes, and the message text is the only stable signal.
var transientMarkers = []string{
	"429",
	"too many requests",
	"timeout",
	"timed out",
	"connection reset",
	"temporary",
	"service unavailable",
	"503",
	"502",
	"bad gateway",
}

// IsTransient reports whether err looks like a transient remote
// failure worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Executor wraps remote-call operations with pacing, bounded retry and
// jittered exponential backoff. Only transient failures are retried;
// anything else propagates to the caller on the first attempt.
type Executor struct {
	pacer       *rate.Limiter
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// NewExecutor creates an executor. Zero values fall back to the
// defaults above.
func NewExecutor(pacing time.Duration, maxAttempts int, baseDelay, maxDelay time.Duration) *Executor {
	if pacing <= 0 {
		pacing = DefaultPacing
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	// The limiter starts with a full token; drain it so the very
	// first attempt also waits a full pacing interval.
	pacer := rate.NewLimiter(rate.Every(pacing), 1)
	pacer.Allow()

	return &Executor{
		pacer:       pacer,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
	}
}

// Do executes fn, pacing before every attempt (including the first)
// and retrying transient failures up to the attempt budget. The most
// recent error is returned once attempts are exhausted or a
// non-transient failure is seen.
func (e *Executor) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if err := e.pacer.Wait(ctx); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt >= e.maxAttempts || !IsTransient(lastErr) {
			break
		}

		sleep := e.backoff(attempt)
		metrics.RecordRetry(op)
		log.Warn().
			Str("op", op).
			Int("attempt", attempt).
			Int("max_attempts", e.maxAttempts).
			Dur("sleep", sleep).
			Err(lastErr).
			Msg("Transient error, retrying after backoff")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
	return lastErr
}

// backoff computes the delay before the next attempt: exponential from
// the base delay, capped, plus uniform jitter in [20%, 50%] of the
// capped delay to desynchronize concurrent callers.
func (e *Executor) backoff(attempt int) time.Duration {
	delay := e.baseDelay << uint(attempt-1)
	if delay > e.maxDelay || delay <= 0 {
		delay = e.maxDelay
	}
	jitter := time.Duration((0.2 + 0.3*rand.Float64()) * float64(delay))
	return delay + jitter
}
