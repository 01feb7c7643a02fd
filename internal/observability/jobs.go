package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics exposes Prometheus collectors for background jobs.
type JobMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	warmed   prometheus.Counter
}

// NewJobMetrics registers the job metrics against registerer.
func NewJobMetrics(registerer prometheus.Registerer) *JobMetrics {
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_jobs_total",
		Help: "Job executions by job name and status.",
	}, []string{"job", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "console_job_duration_seconds",
		Help:    "Duration of background job executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	warmed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "console_option_lists_warmed_total",
		Help: "Option lists loaded by warm-up jobs.",
	})
	registerer.MustRegister(runs, duration, warmed)
	return &JobMetrics{runs: runs, duration: duration, warmed: warmed}
}

// Tracker instruments a single job run.
type Tracker struct {
	metrics *JobMetrics
	job     string
	start   time.Time
}

// Track starts a tracker for job.
func (m *JobMetrics) Track(job string) *Tracker {
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End records the run and returns err untouched.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil {
		return err
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	t.metrics.runs.WithLabelValues(t.job, status).Inc()
	t.metrics.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// AddWarmed counts option lists loaded by a warm-up run.
func (m *JobMetrics) AddWarmed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.warmed.Add(float64(n))
}
