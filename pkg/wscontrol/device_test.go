package wscontrol

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jocoteles/ESP32WebSocketControl/internal/ports"
)

// stubTransport records sent frames without opening any sockets.
type stubTransport struct {
	handler ports.EventHandler
	started bool
	stopped bool
	sent    map[ports.PeerID][][]byte
	chunks  [][]byte
	peers   int
}

func newStubTransport() *stubTransport {
	return &stubTransport{sent: make(map[ports.PeerID][][]byte)}
}

func (s *stubTransport) SetHandler(h ports.EventHandler) { s.handler = h }
func (s *stubTransport) Start() error                    { s.started = true; return nil }
func (s *stubTransport) Shutdown(context.Context) error  { s.stopped = true; return nil }
func (s *stubTransport) Send(peer ports.PeerID, data []byte) {
	s.sent[peer] = append(s.sent[peer], data)
}
func (s *stubTransport) Broadcast(data []byte) {}
func (s *stubTransport) PeerCount() int        { return s.peers }
func (s *stubTransport) PublishChunk(data []byte) error {
	s.chunks = append(s.chunks, data)
	return nil
}
func (s *stubTransport) Name() string { return "stub" }

type stubObs struct{}

func (stubObs) LogInfo(string, ...ports.Field)         {}
func (stubObs) LogWarn(string, ...ports.Field)         {}
func (stubObs) LogError(string, error, ...ports.Field) {}
func (stubObs) IncCounter(string, float64)             {}
func (stubObs) SetGauge(string, float64)               {}

type stubHooks struct {
	starts int
	stops  int
}

func (h *stubHooks) OnStreamStart() { h.starts++ }
func (h *stubHooks) OnStreamStop()  { h.stops++ }

func testConfig() *Config {
	min, max := 0.0, 255.0
	return &Config{
		Server:  ServerConfig{Addr: "127.0.0.1:0", Path: "/ws"},
		Metrics: MetricsConfig{},
		Stream:  StreamConfig{ChunkSize: 25, SampleInterval: time.Millisecond},
		Variables: []VariableConfig{
			{Name: "led_intensity", Type: "int", Value: 128, Min: &min, Max: &max},
		},
	}
}

func TestNewDeviceWithCustomAdapters(t *testing.T) {
	transport := newStubTransport()
	hooks := &stubHooks{}

	dev, err := NewDevice(testConfig(),
		WithTransport(transport),
		WithStreamHooks(hooks),
		WithObservability(stubObs{}),
	)
	if err != nil {
		t.Fatalf("NewDevice returned error: %v", err)
	}

	if dev.transport != transport {
		t.Fatalf("expected custom transport to be used")
	}
	if transport.handler == nil {
		t.Fatalf("expected dispatcher to be installed on the transport")
	}
	if dev.acquirer != nil {
		t.Fatalf("custom hooks should suppress the built-in acquisition loop")
	}
}

func TestDeviceLifecycle(t *testing.T) {
	transport := newStubTransport()
	dev, err := NewDevice(testConfig(),
		WithTransport(transport),
		WithObservability(stubObs{}),
	)
	if err != nil {
		t.Fatalf("NewDevice returned error: %v", err)
	}

	if err := dev.Start(); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if !transport.started {
		t.Fatalf("expected transport to be started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := dev.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}
	if !transport.stopped {
		t.Fatalf("expected transport to be stopped")
	}
}

func TestDeviceDispatchesCommands(t *testing.T) {
	transport := newStubTransport()
	dev, err := NewDevice(testConfig(),
		WithTransport(transport),
		WithStreamHooks(&stubHooks{}),
		WithObservability(stubObs{}),
	)
	if err != nil {
		t.Fatalf("NewDevice returned error: %v", err)
	}

	peer := ports.PeerID(1)
	transport.handler.HandleConnect(peer)
	transport.handler.HandleText(peer, []byte(`{"action":"get","variable":"led_intensity"}`))

	if len(transport.sent[peer]) != 1 {
		t.Fatalf("expected one response, got %d", len(transport.sent[peer]))
	}

	var resp struct {
		Variable string `json:"variable"`
		Value    int    `json:"value"`
	}
	if err := json.Unmarshal(transport.sent[peer][0], &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Variable != "led_intensity" || resp.Value != 128 {
		t.Fatalf("unexpected response: %+v", resp)
	}

	i, ok := dev.Registry().Find("led_intensity")
	if !ok {
		t.Fatalf("variable missing from registry")
	}
	if got := dev.Registry().Get(i).Int(); got != 128 {
		t.Fatalf("registry value = %d, want 128", got)
	}
}

func TestDeviceStreamToggle(t *testing.T) {
	transport := newStubTransport()
	hooks := &stubHooks{}
	dev, err := NewDevice(testConfig(),
		WithTransport(transport),
		WithStreamHooks(hooks),
		WithObservability(stubObs{}),
	)
	if err != nil {
		t.Fatalf("NewDevice returned error: %v", err)
	}

	peer := ports.PeerID(1)
	transport.handler.HandleText(peer, []byte(`{"action":"start_stream"}`))
	if !dev.Streaming() {
		t.Fatalf("expected streaming after start_stream")
	}
	if hooks.starts != 1 {
		t.Fatalf("start hook fired %d times, want 1", hooks.starts)
	}

	transport.handler.HandleDisconnect(peer, 0)
	if dev.Streaming() {
		t.Fatalf("expected auto-stop when the last peer leaves")
	}
	if hooks.stops != 1 {
		t.Fatalf("stop hook fired %d times, want 1", hooks.stops)
	}
}
