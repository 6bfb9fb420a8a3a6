// Package metrics records aggregate sweep counters in a per-run Prometheus
// registry and optionally pushes them to a Pushgateway when the run ends.
//
// Metrics:
//   - renovateshard_repositories_discovered (Gauge): repositories returned by the fetcher
//   - renovateshard_listing_requests_total (Counter): listing pages requested
//   - renovateshard_jobs_total{outcome} (Counter): jobs by outcome (success, failure, skipped)
//   - renovateshard_job_duration_seconds (Histogram): wall time of jobs that ran
//   - renovateshard_workers_busy (Gauge): workers currently running a job
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const jobName = "renovateshard"

// Job outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// Recorder is safe for concurrent use. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	discovered      prometheus.Gauge
	listingRequests prometheus.Counter
	jobs            *prometheus.CounterVec
	jobDuration     prometheus.Histogram
	busy            prometheus.Gauge
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		discovered: factory.NewGauge(prometheus.GaugeOpts{
			Name: "renovateshard_repositories_discovered",
			Help: "Repositories returned by the paginated listing",
		}),
		listingRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "renovateshard_listing_requests_total",
			Help: "Total number of repository listing pages requested",
		}),
		jobs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "renovateshard_jobs_total",
			Help: "Total number of Renovate jobs by outcome",
		}, []string{"outcome"}),
		jobDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "renovateshard_job_duration_seconds",
			Help:    "Wall time of Renovate jobs",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10), // 5s .. ~43m
		}),
		busy: factory.NewGauge(prometheus.GaugeOpts{
			Name: "renovateshard_workers_busy",
			Help: "Workers currently running a job",
		}),
	}
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) ListingRequest() {
	if r == nil {
		return
	}
	r.listingRequests.Inc()
}

func (r *Recorder) Discovered(n int) {
	if r == nil {
		return
	}
	r.discovered.Set(float64(n))
}

// JobStarted marks a worker busy; call the returned func when the job ends.
func (r *Recorder) JobStarted() func() {
	if r == nil {
		return func() {}
	}
	r.busy.Inc()
	return r.busy.Dec
}

func (r *Recorder) JobFinished(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.jobs.WithLabelValues(outcome).Inc()
	if outcome != OutcomeSkipped {
		r.jobDuration.Observe(d.Seconds())
	}
}

// Push sends every metric to the Pushgateway at url, grouped by run id.
func (r *Recorder) Push(ctx context.Context, url, runID string) error {
	if r == nil || url == "" {
		return nil
	}
	p := push.New(url, jobName).Gatherer(r.registry)
	if runID != "" {
		p = p.Grouping("run_id", runID)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
