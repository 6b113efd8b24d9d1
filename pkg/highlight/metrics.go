package highlight

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes run counters on an optional Prometheus endpoint. Off by
// default; an ambient concern, never consulted for correctness decisions.
type Metrics struct {
	registry *prometheus.Registry

	framesProcessed prometheus.Counter
	framesWritten   prometheus.Counter
	switchesApplied prometheus.Counter
	fallbackHits    prometheus.Counter
	detectorErrors  prometheus.Counter
	missStreak      prometheus.Gauge
	detectorLatency prometheus.Histogram
}

// NewMetrics registers a fresh set of collectors on their own registry, so
// multiple runs in a test process never collide on the default registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		framesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "highlighter_frames_processed_total",
			Help: "Total frames processed by the orchestrator tick loop.",
		}),
		framesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "highlighter_frames_written_total",
			Help: "Total frames appended to the output sink.",
		}),
		switchesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "highlighter_switches_applied_total",
			Help: "Total camera switches applied.",
		}),
		fallbackHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "highlighter_fallback_hits_total",
			Help: "Total confirmed fallback-scanner candidates.",
		}),
		detectorErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "highlighter_detector_errors_total",
			Help: "Total detector backend failures downgraded to a miss.",
		}),
		missStreak: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "highlighter_miss_streak",
			Help: "Current sticky-tracker miss streak on the active camera.",
		}),
		detectorLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "highlighter_detector_latency_seconds",
			Help:    "Per-frame detector backend inference latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.framesProcessed,
		m.framesWritten,
		m.switchesApplied,
		m.fallbackHits,
		m.detectorErrors,
		m.missStreak,
		m.detectorLatency,
	)

	return m
}

func (m *Metrics) ObserveTick(decision Decision) {
	m.framesProcessed.Inc()
	if decision.Action == ActionSwitch {
		m.switchesApplied.Inc()
	}
}

func (m *Metrics) ObserveWrite()                           { m.framesWritten.Inc() }
func (m *Metrics) ObserveFallbackHit()                      { m.fallbackHits.Inc() }
func (m *Metrics) ObserveDetectorError()                    { m.detectorErrors.Inc() }
func (m *Metrics) SetMissStreak(n int)                      { m.missStreak.Set(float64(n)) }
func (m *Metrics) ObserveDetectorLatencySeconds(s float64)  { m.detectorLatency.Observe(s) }

// Handler returns an http.Handler serving this instance's metrics in the
// Prometheus exposition format, for mounting on an optional listener.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
