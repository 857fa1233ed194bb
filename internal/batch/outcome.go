// Package batch captures per-item outcomes of bulk operations so that one
// failing item never aborts its siblings.
package batch

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Outcome is the settled result of one item: a value, or the error it failed with.
type Outcome[T any] struct {
	// Label identifies the item in summaries, e.g. "organization 12".
	Label string
	Value T
	Err   error
}

// Failed reports whether the item was rejected.
func (o Outcome[T]) Failed() bool { return o.Err != nil }

// Task is one labelled unit of a bulk operation.
type Task[T any] struct {
	Label string
	Run   func(ctx context.Context) (T, error)
}

// Settle runs every task concurrently and returns one outcome per task in
// input order. Panics are not recovered.
func Settle[T any](ctx context.Context, tasks []Task[T]) []Outcome[T] {
	out := make([]Outcome[T], len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := task.Run(ctx)
			out[i] = Outcome[T]{Label: task.Label, Value: v, Err: err}
		}()
	}
	wg.Wait()
	return out
}

// Summary partitions outcomes into counts and failure reasons.
type Summary struct {
	Name      string
	Succeeded int
	Failed    int
	Reasons   []string
}

// Summarize partitions outcomes.
func Summarize[T any](name string, outcomes []Outcome[T]) Summary {
	s := Summary{Name: name}
	for _, o := range outcomes {
		if o.Err == nil {
			s.Succeeded++
			continue
		}
		s.Failed++
		if o.Label != "" {
			s.Reasons = append(s.Reasons, fmt.Sprintf("%s: %v", o.Label, o.Err))
		} else {
			s.Reasons = append(s.Reasons, o.Err.Error())
		}
	}
	return s
}

// Message is the human-readable report of the summary.
func (s Summary) Message() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d succeeded, %d failed", s.Name, s.Succeeded, s.Failed)
	for _, r := range s.Reasons {
		b.WriteString("\n  - ")
		b.WriteString(r)
	}
	return b.String()
}

// Err returns a *PartialFailureError when any item failed, nil otherwise.
func (s Summary) Err() error {
	if s.Failed == 0 {
		return nil
	}
	return &PartialFailureError{Summary: s}
}

// PartialFailureError reports a bulk operation in which some items failed.
type PartialFailureError struct {
	Summary
}

func (e *PartialFailureError) Error() string {
	return e.Message()
}
