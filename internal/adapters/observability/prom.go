// Package observability implements the Observability port with structured
// slog logging and Prometheus metrics.
package observability

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jocoteles/ESP32WebSocketControl/internal/ports"
)

// PromObs logs through slog and exposes device counters/gauges via the
// default Prometheus registerer. Construct it once per process.
type PromObs struct {
	log      *slog.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
}

// New registers the device metric set and returns the adapter. A nil
// logger falls back to slog.Default.
func New(log *slog.Logger) *PromObs {
	if log == nil {
		log = slog.Default()
	}

	received := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wsctl_messages_received_total",
		Help: "Inbound text frames received from peers.",
	})
	commands := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wsctl_commands_total",
		Help: "Parsed control commands carrying an action field.",
	})
	cmdErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wsctl_command_errors_total",
		Help: "Commands rejected with a structured error response.",
	})
	binaryIgnored := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wsctl_binary_frames_ignored_total",
		Help: "Inbound binary frames accepted and discarded.",
	})
	samples := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wsctl_samples_captured_total",
		Help: "Sensor samples appended to the batch buffer.",
	})
	chunks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wsctl_chunks_flushed_total",
		Help: "Full batches flushed as binary broadcasts.",
	})
	chunkErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wsctl_chunk_publish_errors_total",
		Help: "Chunk hand-offs rejected by a sink.",
	})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wsctl_frames_dropped_total",
		Help: "Outbound frames dropped because a peer's queue was full.",
	})
	sentBytes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wsctl_sent_bytes_total",
		Help: "Bytes enqueued for delivery to peers.",
	})
	clients := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wsctl_clients_connected",
		Help: "Currently connected peers.",
	})
	streaming := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wsctl_stream_active",
		Help: "1 while the telemetry stream is active.",
	})

	prometheus.MustRegister(received, commands, cmdErrors, binaryIgnored,
		samples, chunks, chunkErrors, dropped, sentBytes, clients, streaming)

	return &PromObs{
		log: log,
		counters: map[string]prometheus.Counter{
			"wsctl_messages_received_total":     received,
			"wsctl_commands_total":              commands,
			"wsctl_command_errors_total":        cmdErrors,
			"wsctl_binary_frames_ignored_total": binaryIgnored,
			"wsctl_samples_captured_total":      samples,
			"wsctl_chunks_flushed_total":        chunks,
			"wsctl_chunk_publish_errors_total":  chunkErrors,
			"wsctl_frames_dropped_total":        dropped,
			"wsctl_sent_bytes_total":            sentBytes,
		},
		gauges: map[string]prometheus.Gauge{
			"wsctl_clients_connected": clients,
			"wsctl_stream_active":     streaming,
		},
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.log.Info(msg, attrs(fields)...)
}

func (p *PromObs) LogWarn(msg string, fields ...ports.Field) {
	p.log.Warn(msg, attrs(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	args := attrs(fields)
	if err != nil {
		args = append(args, slog.String("error", err.Error()))
	}
	p.log.Error(msg, args...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func attrs(fields []ports.Field) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
