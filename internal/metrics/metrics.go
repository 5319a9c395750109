// Package metrics exposes Prometheus instruments for a detection session.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "baserah"

// Gauges
var (
	DetectionLocked = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "detection_locked",
		Help:      "1 while a detection has been reported and not yet reset",
	})
	RemoteConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "remote_connected",
		Help:      "1 while the default-voice stream is connected",
	})
)

// Counters
var (
	FramesSampledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_sampled_total",
		Help:      "Frames accepted by the rate limiter and sent to the classifier",
	})
	ClassificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "classifications_total",
		Help:      "Classifier calls by outcome",
	}, []string{"outcome"})
	DetectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "detections_total",
		Help:      "Classified frames by lock decision",
	}, []string{"result"})
	AnnouncementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "announcements_total",
		Help:      "Utterances handed to the speech engine by language",
	}, []string{"language"})
	ResetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "resets_total",
		Help:      "Detection lock resets",
	})
	VoiceChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "voice_changes_total",
		Help:      "Active voice recomputations by triggering source",
	}, []string{"source"})
)

// Histograms
var (
	ClassifyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "classify_duration_seconds",
		Help:      "Classifier latency per sampled frame",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
	})
)

// Classification outcomes.
const (
	OutcomeOK         = "ok"
	OutcomeError      = "error"
	OutcomeBelowFloor = "below_floor"
)

// Detection results.
const (
	ResultAdmitted   = "admitted"
	ResultSuppressed = "suppressed"
)

// SetBool writes 1 or 0 to g.
func SetBool(g prometheus.Gauge, v bool) {
	if v {
		g.Set(1)
		return
	}
	g.Set(0)
}
