// Package classifier provides a uniform interface to remote deepfake
// classification services.
package classifier

import (
	"context"
	"fmt"
	"time"
)

// Verdict is the normalized output of one classifier call.
// PFake is the probability in [0,1] that the sample is synthetic or
// manipulated.
type Verdict struct {
	PFake   float64
	Latency time.Duration
}

// Classifier scores raw media bytes.
type Classifier interface {
	// Name identifies the provider for logging and fallback bookkeeping.
	Name() string
	// Classify scores the sample. Errors are one of the typed errors in
	// this package so callers can pick a fallback strategy with errors.As.
	Classify(ctx context.Context, data []byte) (*Verdict, error)
}

// AuthError indicates the provider rejected our credentials.
type AuthError struct {
	Provider string
	Detail   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("classifier %s: authentication failed: %s", e.Provider, e.Detail)
}

// RateLimitError indicates the provider throttled the request or the
// account's quota is exhausted. Callers may retry later.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("classifier %s: rate limited, retry after %s", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("classifier %s: rate limited", e.Provider)
}

// TimeoutError indicates a polling classifier exhausted its attempt budget
// before the remote job finished.
type TimeoutError struct {
	Provider string
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("classifier %s: timed out after %d poll attempts", e.Provider, e.Attempts)
}

// ProcessingError indicates the provider explicitly failed to process the
// sample, or returned an unusable response.
type ProcessingError struct {
	Provider string
	Detail   string
	Err      error
}

func (e *ProcessingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classifier %s: %s: %v", e.Provider, e.Detail, e.Err)
	}
	return fmt.Sprintf("classifier %s: %s", e.Provider, e.Detail)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}
