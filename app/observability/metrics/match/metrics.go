package matchmetrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cycle outcomes.
const (
	OutcomeCommitted = "committed"
	OutcomeFailed    = "failed"
	OutcomeDiscarded = "discarded"
)

// Upstream fetch kinds.
const (
	FetchScores   = "scores"
	FetchBeatmap  = "beatmap"
	FetchPlayer   = "player"
	FetchStoreHit = "beatmap_store_hit"
)

// MatchMetrics records refresh and service telemetry for the match module.
type MatchMetrics interface {
	RecordCycle(ctx context.Context, outcome string, duration time.Duration)
	RecordFetch(ctx context.Context, kind string, count int)
	RecordFetchFailure(ctx context.Context, kind string)
	RecordSkippedTick(ctx context.Context)
	SetActiveWatchers(n int)
	RecordOperationAttempt(ctx context.Context, operation string)
	RecordOperationSuccess(ctx context.Context, operation string)
	RecordOperationFailure(ctx context.Context, operation string)
	RecordOperationDuration(ctx context.Context, operation string, duration time.Duration)
}

type prometheusMetrics struct {
	cycles            *prometheus.CounterVec
	cycleDuration     *prometheus.HistogramVec
	fetches           *prometheus.CounterVec
	fetchFailures     *prometheus.CounterVec
	skippedTicks      prometheus.Counter
	activeWatchers    prometheus.Gauge
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

// NewPrometheus registers the match collectors on reg.
func NewPrometheus(reg prometheus.Registerer, namespace string) (MatchMetrics, error) {
	m := &prometheusMetrics{
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "match",
			Name:      "refresh_cycles_total",
			Help:      "Refresh cycles by outcome.",
		}, []string{"outcome"}),
		cycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "match",
			Name:      "refresh_cycle_duration_seconds",
			Help:      "Wall time of refresh cycles.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "match",
			Name:      "upstream_records_total",
			Help:      "Records obtained per source kind.",
		}, []string{"kind"}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "match",
			Name:      "upstream_failures_total",
			Help:      "Failed upstream fetches per source kind.",
		}, []string{"kind"}),
		skippedTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "match",
			Name:      "skipped_ticks_total",
			Help:      "Poll ticks dropped because a cycle was already queued.",
		}),
		activeWatchers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "match",
			Name:      "active_watchers",
			Help:      "Matches currently being polled.",
		}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "match",
			Name:      "operations_total",
			Help:      "Service operations by name and result.",
		}, []string{"operation", "result"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "match",
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	for _, c := range []prometheus.Collector{
		m.cycles, m.cycleDuration, m.fetches, m.fetchFailures,
		m.skippedTicks, m.activeWatchers, m.operations, m.operationDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *prometheusMetrics) RecordCycle(_ context.Context, outcome string, d time.Duration) {
	m.cycles.WithLabelValues(outcome).Inc()
	m.cycleDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *prometheusMetrics) RecordFetch(_ context.Context, kind string, count int) {
	m.fetches.WithLabelValues(kind).Add(float64(count))
}

func (m *prometheusMetrics) RecordFetchFailure(_ context.Context, kind string) {
	m.fetchFailures.WithLabelValues(kind).Inc()
}

func (m *prometheusMetrics) RecordSkippedTick(context.Context) { m.skippedTicks.Inc() }

func (m *prometheusMetrics) SetActiveWatchers(n int) { m.activeWatchers.Set(float64(n)) }

func (m *prometheusMetrics) RecordOperationAttempt(_ context.Context, op string) {
	m.operations.WithLabelValues(op, "attempt").Inc()
}

func (m *prometheusMetrics) RecordOperationSuccess(_ context.Context, op string) {
	m.operations.WithLabelValues(op, "success").Inc()
}

func (m *prometheusMetrics) RecordOperationFailure(_ context.Context, op string) {
	m.operations.WithLabelValues(op, "failure").Inc()
}

func (m *prometheusMetrics) RecordOperationDuration(_ context.Context, op string, d time.Duration) {
	m.operationDuration.WithLabelValues(op).Observe(d.Seconds())
}
