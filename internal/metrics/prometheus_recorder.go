package metrics

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pages_core"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	enqueued        *prom.CounterVec
	enqueueFailures *prom.CounterVec
	buildsCreated   *prom.CounterVec
	buildsDeduped   *prom.CounterVec
	batchOutcomes   *prom.CounterVec
	destructions    *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
// A nil reg gets a private registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		enqueued: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_enqueued_total",
			Help:      "Jobs accepted by the durable queue",
		}, []string{"queue"}),
		enqueueFailures: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_enqueue_failures_total",
			Help:      "Jobs the durable queue could not accept",
		}, []string{"queue"}),
		buildsCreated: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "builds_created_total",
			Help:      "New builds by source",
		}, []string{"source"}),
		buildsDeduped: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "builds_deduplicated_total",
			Help:      "Build requests folded into an existing pending build",
		}, []string{"source"}),
		batchOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "batch_outcomes_total",
			Help:      "Per-item outcomes of scheduled batch jobs",
		}, []string{"job", "result"}),
		destructions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "site_destructions_total",
			Help:      "Site destruction attempts by result",
		}, []string{"result"}),
	}
	reg.MustRegister(pr.enqueued, pr.enqueueFailures, pr.buildsCreated, pr.buildsDeduped, pr.batchOutcomes, pr.destructions)
	return pr
}

func (p *PrometheusRecorder) IncJobEnqueued(queue string) {
	if p == nil {
		return
	}
	p.enqueued.WithLabelValues(queue).Inc()
}

func (p *PrometheusRecorder) IncJobEnqueueFailure(queue string) {
	if p == nil {
		return
	}
	p.enqueueFailures.WithLabelValues(queue).Inc()
}

func (p *PrometheusRecorder) IncBuildCreated(source string) {
	if p == nil {
		return
	}
	p.buildsCreated.WithLabelValues(source).Inc()
}

func (p *PrometheusRecorder) IncBuildDeduplicated(source string) {
	if p == nil {
		return
	}
	p.buildsDeduped.WithLabelValues(source).Inc()
}

func (p *PrometheusRecorder) AddBatchOutcomes(job string, succeeded, failed int) {
	if p == nil {
		return
	}
	p.batchOutcomes.WithLabelValues(job, ResultSuccess).Add(float64(succeeded))
	p.batchOutcomes.WithLabelValues(job, ResultFailure).Add(float64(failed))
}

func (p *PrometheusRecorder) IncSiteDestruction(result string) {
	if p == nil {
		return
	}
	p.destructions.WithLabelValues(result).Inc()
}

// HTTPHandler returns an http.Handler that serves Prometheus metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
