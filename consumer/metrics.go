package consumer

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the ambient observability surface a server-shaped component
// carries: connection state, frame counters, and a decode-error counter.
type Metrics struct {
	Connected       prometheus.Gauge
	FramesIn        prometheus.Counter
	FramesOut       prometheus.Counter
	DecodeErrors    prometheus.Counter
	StreamSamples   prometheus.Counter
	DroppedCommands prometheus.Counter
}

// NewMetrics builds a fresh set of label-less counters/gauges and registers
// it against reg when reg is non-nil. Metric names are fixed, so only one
// set can be registered per registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "emberflow", Subsystem: "consumer", Name: "connected",
			Help: "1 if the consumer session is in the Connected state.",
		}),
		FramesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "emberflow", Subsystem: "consumer", Name: "frames_in_total",
			Help: "S101 frames received.",
		}),
		FramesOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "emberflow", Subsystem: "consumer", Name: "frames_out_total",
			Help: "S101 frames sent.",
		}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "emberflow", Subsystem: "consumer", Name: "decode_errors_total",
			Help: "Framing or BER/Glow decode errors encountered.",
		}),
		StreamSamples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "emberflow", Subsystem: "consumer", Name: "stream_samples_total",
			Help: "StreamEntry samples delivered to the host.",
		}),
		DroppedCommands: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "emberflow", Subsystem: "consumer", Name: "dropped_commands_total",
			Help: "Queued prefetch/subscribe host commands dropped because the host command queue was full.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Connected, m.FramesIn, m.FramesOut, m.DecodeErrors, m.StreamSamples, m.DroppedCommands)
	}
	return m
}
