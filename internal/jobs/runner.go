// Package jobs holds the background job handlers that wrap bulk operations,
// and the daily schedule that runs them.
package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloud-gov/pages-core-sub005/internal/batch"
	"github.com/cloud-gov/pages-core-sub005/internal/metrics"
)

// BulkFunc is a bulk operation returning one settled outcome per item. A
// non-nil error means the operation could not start at all.
type BulkFunc[T any] func(ctx context.Context) ([]batch.Outcome[T], error)

// RunBatch runs fn and reports its outcomes. It returns a
// *batch.PartialFailureError if and only if at least one item failed.
func RunBatch[T any](ctx context.Context, name string, logger *slog.Logger, recorder metrics.Recorder, fn BulkFunc[T]) (batch.Summary, error) {
	outcomes, err := fn(ctx)
	if err != nil {
		logger.Error("job failed", "job", name, "error", err)
		return batch.Summary{Name: name}, fmt.Errorf("%s: %w", name, err)
	}

	summary := batch.Summarize(name, outcomes)
	if recorder != nil {
		recorder.AddBatchOutcomes(name, summary.Succeeded, summary.Failed)
	}
	if summary.Failed > 0 {
		logger.Error(summary.Message(), "job", name, "succeeded", summary.Succeeded, "failed", summary.Failed)
		return summary, summary.Err()
	}
	logger.Info(summary.Message(), "job", name, "succeeded", summary.Succeeded, "failed", 0)
	return summary, nil
}
