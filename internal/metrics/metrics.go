// Package metrics exposes decoder counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sweeney/cdc-sniffer/internal/cdc"
)

const namespace = "cdc_sniffer"

// Metrics holds the collectors fed from decoder annotations.
type Metrics struct {
	frames     *prometheus.CounterVec // by verdict
	commands   *prometheus.CounterVec // valid frames, by description
	bits       prometheus.Counter
	starts     prometheus.Counter
	unmatched  prometheus.Counter
	sampleRate prometheus.Gauge
	mqttUp     prometheus.Gauge
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		frames: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Decoded 32-bit frames by verdict.",
		}, []string{"verdict"}),
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Valid frames by command description.",
		}, []string{"command"}),
		bits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bits_total",
			Help:      "Classified data bits.",
		}),
		starts: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "start_markers_total",
			Help:      "Start pulses seen.",
		}),
		unmatched: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unmatched_pulses_total",
			Help:      "Pulses that matched no timing class.",
		}),
		sampleRate: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sample_rate_hz",
			Help:      "Sample rate of the edge source.",
		}),
		mqttUp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mqtt_connected",
			Help:      "1 when the MQTT client is connected.",
		}),
	}
}

// Observe counts one batch of annotations.
func (m *Metrics) Observe(anns []cdc.Annotation) {
	for _, a := range anns {
		switch a.Row {
		case cdc.RowBits:
			if a.Label == cdc.LabelStart {
				m.starts.Inc()
			} else {
				m.bits.Inc()
			}
		case cdc.RowCommands:
			if a.Frame == nil {
				continue
			}
			m.frames.WithLabelValues(string(a.Frame.Verdict)).Inc()
			if a.Frame.Verdict == cdc.VerdictValid {
				m.commands.WithLabelValues(a.Frame.Description).Inc()
			}
		}
	}
}

// Unmatched counts a pulse that fit no timing class.
func (m *Metrics) Unmatched() {
	m.unmatched.Inc()
}

// SetSampleRate records the source sample rate.
func (m *Metrics) SetSampleRate(rate float64) {
	m.sampleRate.Set(rate)
}

// SetMQTTConnected records broker connectivity.
func (m *Metrics) SetMQTTConnected(up bool) {
	if up {
		m.mqttUp.Set(1)
	} else {
		m.mqttUp.Set(0)
	}
}
