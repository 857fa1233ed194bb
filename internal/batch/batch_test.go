package batch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func numberedTasks(n int, fail func(i int) bool, run func()) []Task[int] {
	tasks := make([]Task[int], n)
	for i := range n {
		tasks[i] = Task[int]{
			Label: fmt.Sprintf("item %d", i),
			Run: func(context.Context) (int, error) {
				if run != nil {
					run()
				}
				if fail != nil && fail(i) {
					return 0, errors.New("boom")
				}
				return i * 10, nil
			},
		}
	}
	return tasks
}

func TestSettle_PreservesOrderAndIsolatesFailures(t *testing.T) {
	out := Settle(context.Background(), numberedTasks(4, func(i int) bool { return i == 1 }, nil))
	require.Len(t, out, 4)
	for i, o := range out {
		assert.Equal(t, fmt.Sprintf("item %d", i), o.Label)
		if i == 1 {
			assert.True(t, o.Failed())
			continue
		}
		assert.NoError(t, o.Err)
		assert.Equal(t, i*10, o.Value)
	}
}

func TestSettleLimit_BoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	run := func() {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
	}

	out := SettleLimit(context.Background(), 5, numberedTasks(20, func(i int) bool { return i%7 == 0 }, run))
	require.Len(t, out, 20)
	assert.LessOrEqual(t, peak.Load(), int32(5))
	assert.Equal(t, 3, Summarize("destroy", out).Failed)
	for i, o := range out {
		assert.Equal(t, fmt.Sprintf("item %d", i), o.Label)
	}
}

func TestSettleLimit_EdgeCases(t *testing.T) {
	assert.Empty(t, SettleLimit[int](context.Background(), 5, nil))
	out := SettleLimit(context.Background(), 0, numberedTasks(2, nil, nil))
	assert.Len(t, out, 2)
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []Outcome[int]
		wantErr  bool
		message  string
	}{
		{
			name:     "empty batch succeeds",
			outcomes: nil,
			message:  "job: 0 succeeded, 0 failed",
		},
		{
			name:     "all succeed",
			outcomes: []Outcome[int]{{Label: "a"}, {Label: "b"}},
			message:  "job: 2 succeeded, 0 failed",
		},
		{
			name:     "one failure",
			outcomes: []Outcome[int]{{Label: "a"}, {Label: "b", Err: errors.New("down")}, {Err: errors.New("anon")}},
			wantErr:  true,
			message:  "job: 1 succeeded, 2 failed\n  - b: down\n  - anon",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize("job", tt.outcomes)
			assert.Equal(t, tt.message, s.Message())
			err := s.Err()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var pf *PartialFailureError
			require.ErrorAs(t, err, &pf)
			assert.Equal(t, tt.message, pf.Error())
		})
	}
}
