// Package metrics exposes decoder state and loop health to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sweeney/dryer-vent-sensor/internal/logic"
)

const namespace = "dryer_vent"

// Metrics holds every collector the daemon updates.
type Metrics struct {
	registry *prometheus.Registry

	alarm    *prometheus.GaugeVec   // overheat, clog, selftest_failed (0/1)
	counts   *prometheus.GaugeVec   // per-kind packet counters mirrored from the decoder
	events   *prometheus.CounterVec // classified packets by outcome
	overruns prometheus.Counter
	skipped  prometheus.Counter
	samples  prometheus.Counter
	pass     prometheus.Histogram
	mqttUp   prometheus.Gauge
}

// New creates the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		alarm: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "alarm",
				Help:      "Alarm flag as last published (1 = ON)",
			},
			[]string{"kind"},
		),
		counts: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "packet_count",
				Help:      "Decoder packet counters since startup",
			},
			[]string{"kind"},
		),
		events: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Classified packets by outcome",
			},
			[]string{"outcome"},
		),
		overruns: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_overruns_total",
			Help:      "Times the decoder fell a full ring behind the sampler",
		}),
		skipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_skipped_samples_total",
			Help:      "Samples discarded while recovering from overruns",
		}),
		samples: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "samples_decoded_total",
			Help:      "Samples consumed by the decoder",
		}),
		pass: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decode_pass_seconds",
			Help:      "Wall time of one decode cycle",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		mqttUp: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mqtt_connected",
			Help:      "1 while the MQTT client has an open connection",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveReadings mirrors a readings snapshot into the gauges.
func (m *Metrics) ObserveReadings(r logic.Readings) {
	m.alarm.WithLabelValues("overheat").Set(boolValue(r.Overheat))
	m.alarm.WithLabelValues("clog").Set(boolValue(r.Clog))
	m.alarm.WithLabelValues("selftest_failed").Set(boolValue(r.SelfTestFailed))

	c := r.Counts
	m.counts.WithLabelValues("short_packet").Set(float64(c.ShortPacket))
	m.counts.WithLabelValues("short_start").Set(float64(c.ShortStart))
	m.counts.WithLabelValues("long_start").Set(float64(c.LongStart))
	m.counts.WithLabelValues("short_clog").Set(float64(c.ShortClog))
	m.counts.WithLabelValues("long_clog").Set(float64(c.LongClog))
	m.counts.WithLabelValues("short_overheat").Set(float64(c.ShortOverheat))
	m.counts.WithLabelValues("long_overheat").Set(float64(c.LongOverheat))
	m.counts.WithLabelValues("unknown_packet").Set(float64(c.UnknownPacket))
	m.counts.WithLabelValues("selftest_count").Set(float64(c.SelfTestCount))
}

// RecordEvent counts one classified packet.
func (m *Metrics) RecordEvent(e logic.Event) {
	m.events.WithLabelValues(string(e.Outcome)).Inc()
}

// RecordOverrun counts one overrun recovery and the samples it discarded.
func (m *Metrics) RecordOverrun(skipped uint64) {
	m.overruns.Inc()
	m.skipped.Add(float64(skipped))
}

// RecordPass records one decode cycle.
func (m *Metrics) RecordPass(samples int, elapsed time.Duration) {
	m.samples.Add(float64(samples))
	m.pass.Observe(elapsed.Seconds())
}

// SetMQTTConnected records the broker connection state.
func (m *Metrics) SetMQTTConnected(up bool) {
	m.mqttUp.Set(boolValue(up))
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
