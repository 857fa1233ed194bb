package retry

import (
	"context"
	"fmt"
	"time"
)

// BackoffMode selects how the delay grows between attempts.
type BackoffMode string

const (
	BackoffFixed       BackoffMode = "fixed"
	BackoffLinear      BackoffMode = "linear"
	BackoffExponential BackoffMode = "exponential"
)

// Policy encapsulates retry/backoff settings for transient failures.
// It is immutable after construction.
type Policy struct {
	Mode    BackoffMode
	Initial time.Duration // base delay
	Max     time.Duration // cap for growth
	// Attempts is the total number of tries, including the first.
	Attempts int
}

// DefaultPolicy returns exponential backoff from 200ms capped at 5s over 5 attempts.
func DefaultPolicy() Policy {
	return Policy{Mode: BackoffExponential, Initial: 200 * time.Millisecond, Max: 5 * time.Second, Attempts: 5}
}

// NewPolicy builds a policy from raw config fields; zero or invalid values fall back to defaults.
func NewPolicy(mode BackoffMode, initial, maxDuration time.Duration, attempts int) Policy {
	p := DefaultPolicy()
	if attempts > 0 {
		p.Attempts = attempts
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDuration > 0 {
		p.Max = maxDuration
	}
	switch mode {
	case BackoffFixed, BackoffLinear, BackoffExponential:
		p.Mode = mode
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// Delay returns the backoff delay for the given retry number (1-based: first retry => 1).
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	switch p.Mode {
	case BackoffFixed:
		return p.Initial
	case BackoffLinear:
		d := time.Duration(retryCount) * p.Initial
		if d > p.Max {
			return p.Max
		}
		return d
	default:
		if retryCount > 30 {
			return p.Max
		}
		d := p.Initial * (1 << (retryCount - 1))
		if d > p.Max {
			return p.Max
		}
		return d
	}
}

// Validate ensures invariants; returns error if policy impossible to apply.
func (p Policy) Validate() error {
	if p.Initial <= 0 {
		return fmt.Errorf("initial must be >0")
	}
	if p.Max <= 0 {
		return fmt.Errorf("max must be >0")
	}
	if p.Attempts <= 0 {
		return fmt.Errorf("attempts must be >0")
	}
	return nil
}

// Do calls fn until it succeeds, the attempts are exhausted or ctx is done.
// It returns the last error from fn, or the context error.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(p.Delay(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
		if err = fn(ctx); err == nil {
			return nil
		}
	}
	return err
}
