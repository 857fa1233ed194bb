package core

import (
	"errors"
	"fmt"
)

var (
	// ErrQueueUnavailable means the durable queue could not accept work.
	// It is retryable.
	ErrQueueUnavailable = errors.New("queue unavailable")
	// ErrNotFound means a site, organization, user or record is absent.
	ErrNotFound = errors.New("not found")
	// ErrValidation means an inbound payload is malformed.
	ErrValidation = errors.New("validation failed")
)

// ValidationError describes a malformed inbound payload.
type ValidationError struct {
	Fields []string
	Reason string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return fmt.Sprintf("%s: %s", ErrValidation, e.Reason)
	}
	return fmt.Sprintf("%s: %s %v", ErrValidation, e.Reason, e.Fields)
}

// Is makes errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
