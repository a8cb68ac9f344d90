package monitoring

import (
	"sync"

	"reviewsync/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type PrometheusCollector struct {
	// live tracks which sessions count toward the active gauge. A replay
	// leaves the gauge on whichever of stop/complete/error fires first, so a
	// stop after completion does not decrement twice.
	mu   sync.Mutex
	live map[domain.SessionID]struct{}

	// Gauges
	replaysActive prometheus.Gauge

	// Counters
	replaysStartedTotal   prometheus.Counter
	replaysStoppedTotal   prometheus.Counter
	replaysCompletedTotal prometheus.Counter
	replaysErroredTotal   prometheus.Counter
	actionsExecutedTotal  *prometheus.CounterVec
	driftCorrectionsTotal prometheus.Counter

	// Histograms
	driftSeconds prometheus.Histogram
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		live: make(map[domain.SessionID]struct{}),

		replaysActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "reviewsync_replays_active",
			Help: "Number of replays currently running",
		}),

		replaysStartedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reviewsync_replays_started_total",
			Help: "Total number of replays started",
		}),

		replaysStoppedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reviewsync_replays_stopped_total",
			Help: "Total number of replays stopped by request",
		}),

		replaysCompletedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reviewsync_replays_completed_total",
			Help: "Total number of replays that played to the end",
		}),

		replaysErroredTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reviewsync_replays_errored_total",
			Help: "Total number of replays aborted by a fatal media error",
		}),

		actionsExecutedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "reviewsync_actions_executed_total",
			Help: "Total number of timeline actions executed",
		}, []string{"type"}),

		driftCorrectionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "reviewsync_drift_corrections_total",
			Help: "Total number of audio snaps to the video position",
		}),

		driftSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "reviewsync_drift_seconds",
			Help:    "Audio/video position gap observed at correction time",
			Buckets: []float64{0.1, 0.15, 0.25, 0.5, 1, 2, 5},
		}),
	}
}

func (c *PrometheusCollector) ReplayStarted(id domain.SessionID) {
	c.replaysStartedTotal.Inc()
	c.mu.Lock()
	if _, ok := c.live[id]; !ok {
		c.live[id] = struct{}{}
		c.replaysActive.Inc()
	}
	c.mu.Unlock()
}

func (c *PrometheusCollector) ReplayStopped(id domain.SessionID) {
	c.replaysStoppedTotal.Inc()
	c.retire(id)
}

func (c *PrometheusCollector) ReplayCompleted(id domain.SessionID) {
	c.replaysCompletedTotal.Inc()
	c.retire(id)
}

func (c *PrometheusCollector) ReplayErrored(id domain.SessionID) {
	c.replaysErroredTotal.Inc()
	c.retire(id)
}

func (c *PrometheusCollector) retire(id domain.SessionID) {
	c.mu.Lock()
	if _, ok := c.live[id]; ok {
		delete(c.live, id)
		c.replaysActive.Dec()
	}
	c.mu.Unlock()
}

func (c *PrometheusCollector) ActionExecuted(actionType string) {
	c.actionsExecutedTotal.WithLabelValues(actionType).Inc()
}

func (c *PrometheusCollector) DriftCorrected(drift float64) {
	c.driftCorrectionsTotal.Inc()
	c.driftSeconds.Observe(drift)
}
