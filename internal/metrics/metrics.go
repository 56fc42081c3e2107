// internal/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors for scoring runs. Collectors are registered
// on the registry passed to New, never on the global default.
type Metrics struct {
	// TasksTotal counts finished scoring tasks by policy and status (ok/error).
	TasksTotal *prometheus.CounterVec
	// TaskDuration observes per-task wall time by policy.
	TaskDuration *prometheus.HistogramVec
	// RunDuration observes the wall time of a whole policy run.
	RunDuration *prometheus.HistogramVec
	// InFlight is the number of tasks currently executing.
	InFlight prometheus.Gauge
	// Workers is the configured pool size of the last run per policy.
	Workers *prometheus.GaugeVec
}

// New creates and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "parani",
				Name:      "tasks_total",
				Help:      "Total number of scoring tasks finished.",
			},
			[]string{"policy", "status"},
		),
		TaskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "parani",
				Name:      "task_duration_seconds",
				Help:      "Wall time of one scoring task.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"policy"},
		),
		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "parani",
				Name:      "run_duration_seconds",
				Help:      "Wall time of one dispatch policy run.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"policy"},
		),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "parani",
			Name:      "tasks_in_flight",
			Help:      "Number of scoring tasks currently running.",
		}),
		Workers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "parani",
				Name:      "pool_workers",
				Help:      "Worker pool size used by the last run of a policy.",
			},
			[]string{"policy"},
		),
	}
	reg.MustRegister(m.TasksTotal, m.TaskDuration, m.RunDuration, m.InFlight, m.Workers)
	return m
}

// ObserveRun records a finished policy run.
func (m *Metrics) ObserveRun(policy string, workers int, d time.Duration) {
	m.RunDuration.WithLabelValues(policy).Observe(d.Seconds())
	m.Workers.WithLabelValues(policy).Set(float64(workers))
}

// TaskObserver returns an observer that attributes task events to policy.
// It satisfies pool.Observer.
func (m *Metrics) TaskObserver(policy string) *TaskObserver {
	return &TaskObserver{m: m, policy: policy}
}

// TaskObserver forwards worker events to the collectors.
type TaskObserver struct {
	m      *Metrics
	policy string
}

func (o *TaskObserver) TaskStarted() { o.m.InFlight.Inc() }

func (o *TaskObserver) TaskFinished(d time.Duration, err error) {
	o.m.InFlight.Dec()
	status := "ok"
	if err != nil {
		status = "error"
	}
	o.m.TasksTotal.WithLabelValues(o.policy, status).Inc()
	o.m.TaskDuration.WithLabelValues(o.policy).Observe(d.Seconds())
}

// WriteFile writes every metric gathered from g to path in the text exposition format.
func WriteFile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
