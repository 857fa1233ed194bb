// Package metrics exposes counters for queue submissions, build ingestion and
// scheduled batch outcomes.
package metrics

// Result labels for batch and destruction counters.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Recorder defines observability hooks for orchestration metrics.
// Implementations may forward to Prometheus or discard.
type Recorder interface {
	IncJobEnqueued(queue string)
	IncJobEnqueueFailure(queue string)
	IncBuildCreated(source string)
	IncBuildDeduplicated(source string)
	AddBatchOutcomes(job string, succeeded, failed int)
	IncSiteDestruction(result string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncJobEnqueued(string)             {}
func (NoopRecorder) IncJobEnqueueFailure(string)       {}
func (NoopRecorder) IncBuildCreated(string)            {}
func (NoopRecorder) IncBuildDeduplicated(string)       {}
func (NoopRecorder) AddBatchOutcomes(string, int, int) {}
func (NoopRecorder) IncSiteDestruction(string)         {}
