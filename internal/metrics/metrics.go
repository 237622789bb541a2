// Package metrics exposes Prometheus counters and histograms for the
// access-control core: parse outcomes, recompute counts, COAR deliveries,
// trap-write counts, and calc evaluation latency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every metric the core records. Pass the result to the
// components that need it; a nil Registerer yields a Metrics that is
// still safe to record against (promauto.With(nil) registers nowhere).
type Metrics struct {
	ParsesTotal      *prometheus.CounterVec
	RecomputesTotal  *prometheus.CounterVec
	COARTotal        prometheus.Counter
	TrapWritesTotal  prometheus.Counter
	CalcEvalDuration prometheus.Histogram
	ClientsGauge     prometheus.Gauge
}

// New creates and registers all metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		ParsesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "accesssecurity",
				Name:      "parses_total",
				Help:      "Total policy parse attempts by outcome",
			},
			[]string{"outcome"}, // ok|bad_config|bad_calc
		),
		RecomputesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "accesssecurity",
				Name:      "asg_recomputes_total",
				Help:      "Total ASG recompute passes",
			},
			[]string{"asg"},
		),
		COARTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "accesssecurity",
				Name:      "coar_notifications_total",
				Help:      "Total change-of-access-rights notifications delivered",
			},
		),
		TrapWritesTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: "accesssecurity",
				Name:      "trap_writes_total",
				Help:      "Total audited write events dispatched",
			},
		),
		CalcEvalDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "accesssecurity",
				Name:      "calc_eval_duration_seconds",
				Help:      "Calc predicate evaluation latency",
				Buckets:   prometheus.DefBuckets,
			},
		),
		ClientsGauge: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "accesssecurity",
				Name:      "clients",
				Help:      "Number of currently registered clients",
			},
		),
	}
}
