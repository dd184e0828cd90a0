package wscontrol

import (
	"github.com/jocoteles/ESP32WebSocketControl/internal/adapters/uplink"
	"github.com/jocoteles/ESP32WebSocketControl/internal/adapters/wsserver"
	"github.com/jocoteles/ESP32WebSocketControl/internal/app/config"
	"github.com/jocoteles/ESP32WebSocketControl/internal/domain"
	"github.com/jocoteles/ESP32WebSocketControl/internal/ports"
	"github.com/jocoteles/ESP32WebSocketControl/internal/registry"
	"github.com/jocoteles/ESP32WebSocketControl/internal/stream"
)

// Config re-exports the root configuration struct so downstream projects
// can construct or modify it programmatically.
type Config = config.Config

type (
	// ServerConfig configures the WebSocket transport.
	ServerConfig = wsserver.Config
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// StreamConfig controls chunk size and sampling period.
	StreamConfig = config.StreamConfig
	// UplinkConfig configures the optional MQTT chunk uplink.
	UplinkConfig = uplink.Config
	// VariableConfig declares one controllable variable.
	VariableConfig = config.VariableConfig
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// Kind selects a variable's value type.
type Kind = domain.Kind

const (
	KindInteger = domain.KindInteger
	KindFloat   = domain.KindFloat
	KindText    = domain.KindText
)

// Value is the tagged union stored in the registry.
type Value = domain.Value

// Variable is one registered control variable.
type Variable = domain.Variable

// Info is the JSON shape a variable takes in var_config_list responses.
type Info = domain.Info

// SampleRecord is one fixed-layout telemetry record.
type SampleRecord = domain.SampleRecord

const (
	// ReadingsPerRecord is the channel count in every record.
	ReadingsPerRecord = domain.ReadingsPerRecord
	// RecordSize is the encoded record width in bytes.
	RecordSize = domain.RecordSize
)

// Value constructors for programmatic registry setup.
var (
	IntValue   = domain.IntValue
	FloatValue = domain.FloatValue
	TextValue  = domain.TextValue
)

// ParseKind maps a configuration type string onto a Kind.
func ParseKind(s string) (Kind, error) { return domain.ParseKind(s) }

// DecodeRecord decodes one record from a binary chunk.
func DecodeRecord(data []byte) (SampleRecord, error) { return domain.DecodeRecord(data) }

// DecodeChunk decodes a whole binary chunk into records.
func DecodeChunk(data []byte) ([]SampleRecord, error) { return domain.DecodeChunk(data) }

// PeerID identifies one connected client for the lifetime of its connection.
type PeerID = ports.PeerID

// Transport sends frames to connected peers.
type Transport = ports.Transport

// EventHandler consumes transport events; the device installs its command
// dispatcher here.
type EventHandler = ports.EventHandler

// SampleSource produces one multi-channel reading per acquisition tick.
type SampleSource = ports.SampleSource

// Clock supplies the millisecond timestamps embedded in records.
type Clock = ports.Clock

// StreamHooks observes stream start/stop transitions.
type StreamHooks = ports.StreamHooks

// ChunkSink receives completed binary chunks.
type ChunkSink = ports.ChunkSink

// Observability emits metrics and structured logs.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// Registry errors, re-exported so callers can classify lookup and set
// failures from the programmatic API.
var (
	ErrNotFound    = registry.ErrNotFound
	ErrInvalidType = registry.ErrInvalidType
	ErrOutOfRange  = registry.ErrOutOfRange
	ErrNoHooks     = stream.ErrNoHooks
)
