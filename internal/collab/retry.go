package collab

import (
	"context"
	"strings"
	"time"
)

// RetryPolicy controls how failed collaborator calls are retried.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy returns a RetryPolicy with sensible defaults:
// 3 attempts, 500ms between them.
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: 3,
		Delay:       500 * time.Millisecond,
	}
}

// isRetryable classifies errors as retryable or permanent based on their
// message. Transient errors (connection, timeout, 5xx) are retryable;
// decode failures are not. Unknown errors default to retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())

	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "temporary failure") ||
		strings.Contains(msg, "status 5") {
		return true
	}
	if strings.Contains(msg, "decode response") ||
		strings.Contains(msg, "status 4") {
		return false
	}
	return true
}

// Do runs fn up to MaxAttempts times, waiting Delay between attempts.
// It stops early on success, on a non-retryable error, or when ctx ends;
// a retry never outlives the caller's deadline.
func (p *RetryPolicy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return lastErr
		}
		if !isRetryable(lastErr) || attempt == attempts {
			return lastErr
		}
		select {
		case <-ctx.Done():
			return lastErr
		case <-time.After(p.Delay):
		}
	}
	return lastErr
}
