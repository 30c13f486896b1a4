// Package metrics owns the Prometheus registry for pipeline stages, feed
// registration retries and reconciler progress.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushJob is the Pushgateway job the lister pushes under.
const PushJob = "lister"

const (
	MetricStageTotal           = "lister_stage_total"
	MetricStageDurationSeconds = "lister_stage_duration_seconds"
	MetricRegisterRetriesTotal = "lister_register_retries_total"
	MetricReconciledTotal      = "lister_reconciled_total"
)

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Recorder is safe for concurrent use. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	stageTotal      *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	registerRetries prometheus.Counter
	reconciled      *prometheus.CounterVec
}

func New() *Recorder {
	reg := prometheus.NewRegistry()

	r := &Recorder{
		registry: reg,
		stageTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricStageTotal,
			Help: "Pipeline stage completions by outcome.",
		}, []string{"stage", "outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricStageDurationSeconds,
			Help:    "Pipeline stage latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		registerRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRegisterRetriesTotal,
			Help: "Feed registrations retried after throttling.",
		}),
		reconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricReconciledTotal,
			Help: "Submissions checked by the reconciler, by resulting status.",
		}, []string{"status"}),
	}

	reg.MustRegister(
		r.stageTotal,
		r.stageDuration,
		r.registerRetries,
		r.reconciled,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) Stage(stage string, err error, d time.Duration) {
	if r == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	r.stageTotal.WithLabelValues(stage, outcome).Inc()
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (r *Recorder) RegisterRetry(int) {
	if r == nil {
		return
	}
	r.registerRetries.Inc()
}

func (r *Recorder) Reconciled(status string) {
	if r == nil {
		return
	}
	r.reconciled.WithLabelValues(status).Inc()
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Push replaces the job's metrics on the Pushgateway at url with the stage and
// retry series. Runtime collectors stay local. An empty url is a no-op.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if r == nil || url == "" {
		return nil
	}
	return push.New(url, job).
		Collector(r.stageTotal).
		Collector(r.stageDuration).
		Collector(r.registerRetries).
		PushContext(ctx)
}
