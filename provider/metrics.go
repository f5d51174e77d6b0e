package provider

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the provider-side counterpart of consumer.Metrics: one set per
// Server, covering every connected client rather than a single session.
type Metrics struct {
	Connected    prometheus.Gauge
	FramesIn     prometheus.Counter
	FramesOut    prometheus.Counter
	DecodeErrors prometheus.Counter
	Writes       prometheus.Counter
	Invocations  prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "emberflow", Subsystem: "provider", Name: "sessions_connected",
			Help: "Active provider client sessions.",
		}),
		FramesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "emberflow", Subsystem: "provider", Name: "frames_in_total",
			Help: "S101 frames received from clients.",
		}),
		FramesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "emberflow", Subsystem: "provider", Name: "frames_out_total",
			Help: "S101 frames sent to clients.",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "emberflow", Subsystem: "provider", Name: "decode_errors_total",
			Help: "Framing or BER/Glow decode errors encountered.",
		}),
		Writes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "emberflow", Subsystem: "provider", Name: "writes_total",
			Help: "Accepted parameter writes.",
		}),
		Invocations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "emberflow", Subsystem: "provider", Name: "invocations_total",
			Help: "Function invocations dispatched.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Connected, m.FramesIn, m.FramesOut, m.DecodeErrors, m.Writes, m.Invocations)
	}
	return m
}
