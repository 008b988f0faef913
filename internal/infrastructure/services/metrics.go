// ============================================================================
// FILE: internal/infrastructure/services/metrics.go
// PURPOSE: Prometheus instrumentation for the lifecycle engine
// ============================================================================

package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics bundles the engine's counters and gauges. One instance per
// process, registered once at startup.
type EngineMetrics struct {
	PublishTotal      *prometheus.CounterVec
	PublishLatency    prometheus.Histogram
	QueueDepth        *prometheus.GaugeVec
	LeasesExpired     prometheus.Counter
	CheckbacksFired   *prometheus.CounterVec
	CheckbackLag      prometheus.Histogram
	RollupsRecomputed prometheus.Counter
	EventsIngested    *prometheus.CounterVec
	LensRecomputes    prometheus.Counter
}

// NewEngineMetrics creates and registers the metric set on reg.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		PublishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediaposter",
			Name:      "publish_total",
			Help:      "Publish dispatch outcomes by platform and result.",
		}, []string{"platform", "outcome"}),
		PublishLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mediaposter",
			Name:      "publish_latency_seconds",
			Help:      "Adapter publish call latency.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mediaposter",
			Name:      "queue_depth",
			Help:      "Queue items by status.",
		}, []string{"status"}),
		LeasesExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mediaposter",
			Name:      "leases_expired_total",
			Help:      "Leases reclaimed by the reaper.",
		}),
		CheckbacksFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediaposter",
			Name:      "checkbacks_fired_total",
			Help:      "Checkback jobs fired by outcome.",
		}, []string{"outcome"}),
		CheckbackLag: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mediaposter",
			Name:      "checkback_lag_seconds",
			Help:      "Delay between fire_at and the actual fire.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		RollupsRecomputed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mediaposter",
			Name:      "rollups_recomputed_total",
			Help:      "Content rollup recomputations.",
		}),
		EventsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediaposter",
			Name:      "person_events_ingested_total",
			Help:      "Person events ingested by type.",
		}, []string{"event_type"}),
		LensRecomputes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mediaposter",
			Name:      "lens_recomputes_total",
			Help:      "Person lens recomputations.",
		}),
	}

	reg.MustRegister(
		m.PublishTotal, m.PublishLatency, m.QueueDepth, m.LeasesExpired,
		m.CheckbacksFired, m.CheckbackLag, m.RollupsRecomputed,
		m.EventsIngested, m.LensRecomputes,
	)
	return m
}
