package core

import (
	"context"
	"expvar"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsRecorder observes every executed command: its name, whether it
// succeeded, and how long it took.
type MetricsRecorder interface {
	Observe(ctx context.Context, op string, success bool, elapsed time.Duration)
}

// ExpvarMetricsRecorder publishes per-command counters on an expvar map,
// reachable through the standard /debug/vars surface.
type ExpvarMetricsRecorder struct {
	mu   sync.Mutex
	vars *expvar.Map
}

var _ MetricsRecorder = (*ExpvarMetricsRecorder)(nil)

// NewExpvarMetricsRecorder publishes a command metrics map under name. The
// name must be unique per process; expvar panics on duplicates.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	return &ExpvarMetricsRecorder{vars: expvar.NewMap(name)}
}

// Observe bumps <op>_total and either <op>_ok or <op>_failed.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vars.Add(op+"_total", 1)
	if success {
		r.vars.Add(op+"_ok", 1)
		return
	}
	r.vars.Add(op+"_failed", 1)
}

// PrometheusMetricsRecorder exports command counts and latencies as
// Prometheus metrics.
type PrometheusMetricsRecorder struct {
	commands  *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

var _ MetricsRecorder = (*PrometheusMetricsRecorder)(nil)

// NewPrometheusMetricsRecorder registers the command metrics on reg.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	r := &PrometheusMetricsRecorder{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dutyroster",
			Name:      "commands_total",
			Help:      "Count of executed commands by operation and outcome.",
		}, []string{"op", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dutyroster",
			Name:      "command_duration_seconds",
			Help:      "Command execution latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	if err := reg.Register(r.commands); err != nil {
		return nil, err
	}
	if err := reg.Register(r.durations); err != nil {
		return nil, err
	}
	return r, nil
}

// Observe records one command execution.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, op string, success bool, elapsed time.Duration) {
	status := "ok"
	if !success {
		status = "failed"
	}
	r.commands.WithLabelValues(op, status).Inc()
	r.durations.WithLabelValues(op).Observe(elapsed.Seconds())
}
