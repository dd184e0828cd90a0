package wscontrol

import (
	base "github.com/jocoteles/ESP32WebSocketControl/pkg/wscontrol"
)

// Re-exported errors for convenience.
var (
	ErrNotFound    = base.ErrNotFound
	ErrInvalidType = base.ErrInvalidType
	ErrOutOfRange  = base.ErrOutOfRange
	ErrNoHooks     = base.ErrNoHooks
)

// Type aliases so consumers can import
// github.com/jocoteles/ESP32WebSocketControl directly.
type (
	Config          = base.Config
	ServerConfig    = base.ServerConfig
	MetricsConfig   = base.MetricsConfig
	StreamConfig    = base.StreamConfig
	UplinkConfig    = base.UplinkConfig
	VariableConfig  = base.VariableConfig
	Device          = base.Device
	DeviceOption    = base.DeviceOption
	TransportServer = base.TransportServer
	Kind            = base.Kind
	Value           = base.Value
	Variable        = base.Variable
	Info            = base.Info
	SampleRecord    = base.SampleRecord
	PeerID          = base.PeerID
	Transport       = base.Transport
	EventHandler    = base.EventHandler
	SampleSource    = base.SampleSource
	Clock           = base.Clock
	StreamHooks     = base.StreamHooks
	ChunkSink       = base.ChunkSink
	Observability   = base.Observability
	Field           = base.Field
)

// Variable kinds.
const (
	KindInteger = base.KindInteger
	KindFloat   = base.KindFloat
	KindText    = base.KindText
)

// Binary record layout.
const (
	ReadingsPerRecord = base.ReadingsPerRecord
	RecordSize        = base.RecordSize
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func ParseKind(s string) (Kind, error) {
	return base.ParseKind(s)
}

// Value constructors.
func IntValue(v int64) Value     { return base.IntValue(v) }
func FloatValue(v float64) Value { return base.FloatValue(v) }
func TextValue(v string) Value   { return base.TextValue(v) }

// Chunk decoding helpers for client-side consumers.
func DecodeRecord(data []byte) (SampleRecord, error) {
	return base.DecodeRecord(data)
}

func DecodeChunk(data []byte) ([]SampleRecord, error) {
	return base.DecodeChunk(data)
}

// Device runtime and options.
func NewDevice(cfg *Config, opts ...DeviceOption) (*Device, error) {
	return base.NewDevice(cfg, opts...)
}

func WithTransport(t TransportServer) DeviceOption {
	return base.WithTransport(t)
}

func WithSampleSource(s SampleSource) DeviceOption {
	return base.WithSampleSource(s)
}

func WithClock(c Clock) DeviceOption {
	return base.WithClock(c)
}

func WithStreamHooks(h StreamHooks) DeviceOption {
	return base.WithStreamHooks(h)
}

func WithObservability(obs Observability) DeviceOption {
	return base.WithObservability(obs)
}

func WithChunkSink(s ChunkSink) DeviceOption {
	return base.WithChunkSink(s)
}
