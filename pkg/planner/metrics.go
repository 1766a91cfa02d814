package planner

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "bidir"
	metricsSubsystem = "search"
)

// Metrics exports search counters to Prometheus. One Metrics value can be
// shared by many searches; counters accumulate across runs.
type Metrics struct {
	Expanded   *prometheus.CounterVec
	Generated  *prometheus.CounterVec
	Evaluated  *prometheus.CounterVec
	DeadEnds   *prometheus.CounterVec
	Reopened   *prometheus.CounterVec
	Meetings   *prometheus.CounterVec
	Failures   prometheus.Counter
	Aborted    *prometheus.CounterVec
	PlanLength prometheus.Histogram
}

// NewMetrics registers the search metrics on reg. Passing a fresh
// prometheus.NewRegistry() keeps tests independent of the default
// registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Expanded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "expanded_total",
			Help:      "Expanded nodes by direction",
		}, []string{"direction"}),
		Generated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "generated_total",
			Help:      "Generated successor and predecessor states by direction",
		}, []string{"direction"}),
		Evaluated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "evaluated_total",
			Help:      "Evaluated states by direction",
		}, []string{"direction"}),
		DeadEnds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "dead_ends_total",
			Help:      "States recognized as dead ends by direction",
		}, []string{"direction"}),
		Reopened: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "reopened_total",
			Help:      "Closed nodes reopened by direction",
		}, []string{"direction"}),
		Meetings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "meetings_total",
			Help:      "Solved searches by meeting kind",
		}, []string{"kind"}),
		Failures: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "failures_total",
			Help:      "Searches that exhausted both frontiers",
		}),
		Aborted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "aborted_total",
			Help:      "Searches stopped before a decision by reason",
		}, []string{"reason"}),
		PlanLength: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "plan_length",
			Help:      "Number of operators in found plans",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

// observe adds the counters of a finished run. err is the reason a failed
// run stopped early, nil when both frontiers were exhausted.
func (m *Metrics) observe(stats *Statistics, status SearchStatus, err error) {
	if m == nil {
		return
	}
	for _, d := range []Direction{Forward, Backward} {
		ds := stats.direction(d)
		label := d.String()
		m.Expanded.WithLabelValues(label).Add(float64(ds.Expanded))
		m.Generated.WithLabelValues(label).Add(float64(ds.Generated))
		m.Evaluated.WithLabelValues(label).Add(float64(ds.Evaluated))
		m.DeadEnds.WithLabelValues(label).Add(float64(ds.DeadEnds))
		m.Reopened.WithLabelValues(label).Add(float64(ds.Reopened))
	}
	switch status {
	case StatusSolved:
		m.Meetings.WithLabelValues(stats.Meeting.String()).Inc()
		m.PlanLength.Observe(float64(stats.PlanLength))
	case StatusFailed:
		if err == nil {
			m.Failures.Inc()
		} else {
			m.Aborted.WithLabelValues(abortReason(err)).Inc()
		}
	}
}

func abortReason(err error) string {
	switch {
	case errors.Is(err, ErrSearchLimitReached):
		return "limit"
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
