package dispatch

import (
	"encoding/json"
	"testing"

	"github.com/jocoteles/ESP32WebSocketControl/internal/domain"
	"github.com/jocoteles/ESP32WebSocketControl/internal/ports"
	"github.com/jocoteles/ESP32WebSocketControl/internal/registry"
	"github.com/jocoteles/ESP32WebSocketControl/internal/stream"
)

type fakeTransport struct {
	sent       map[ports.PeerID][][]byte
	broadcasts [][]byte
	peers      int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{sent: make(map[ports.PeerID][][]byte)}
}

func (f *fakeTransport) Send(peer ports.PeerID, data []byte) {
	f.sent[peer] = append(f.sent[peer], data)
}

func (f *fakeTransport) Broadcast(data []byte) { f.broadcasts = append(f.broadcasts, data) }
func (f *fakeTransport) PeerCount() int        { return f.peers }

type nopObs struct{}

func (nopObs) LogInfo(string, ...ports.Field)         {}
func (nopObs) LogWarn(string, ...ports.Field)         {}
func (nopObs) LogError(string, error, ...ports.Field) {}
func (nopObs) IncCounter(string, float64)             {}
func (nopObs) SetGauge(string, float64)               {}

type recordingHooks struct {
	starts int
	stops  int
}

func (h *recordingHooks) OnStreamStart() { h.starts++ }
func (h *recordingHooks) OnStreamStop()  { h.stops++ }

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New([]domain.Variable{
		{Name: "led_intensity", Kind: domain.KindInteger, Value: domain.IntValue(128), HasLimits: true, Min: 0, Max: 255},
		{Name: "device_label", Kind: domain.KindText, Value: domain.TextValue("ESP32-01")},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

func newTestDispatcher(t *testing.T, opts ...Option) (*Dispatcher, *fakeTransport, *recordingHooks) {
	t.Helper()
	tr := newFakeTransport()
	hooks := &recordingHooks{}
	d := New(testRegistry(t), stream.New(hooks), tr, nopObs{}, opts...)
	return d, tr, hooks
}

func lastResponse(t *testing.T, tr *fakeTransport, peer ports.PeerID) map[string]any {
	t.Helper()
	frames := tr.sent[peer]
	if len(frames) == 0 {
		t.Fatalf("no response sent to peer %d", peer)
	}
	var m map[string]any
	if err := json.Unmarshal(frames[len(frames)-1], &m); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	return m
}

func expectStatus(t *testing.T, tr *fakeTransport, peer ports.PeerID, status, message string) {
	t.Helper()
	m := lastResponse(t, tr, peer)
	if m["status"] != status || m["message"] != message {
		t.Fatalf("expected {%s, %q}, got %v", status, message, m)
	}
}

func TestMalformedJSON(t *testing.T) {
	d, tr, _ := newTestDispatcher(t)
	d.HandleText(1, []byte("not json at all"))
	expectStatus(t, tr, 1, "error", "Invalid JSON format received.")
}

func TestMissingAction(t *testing.T) {
	d, tr, _ := newTestDispatcher(t)
	d.HandleText(1, []byte(`{"variable":"led_intensity"}`))
	expectStatus(t, tr, 1, "error", "JSON missing 'action' field.")
}

func TestUnknownAction(t *testing.T) {
	d, tr, _ := newTestDispatcher(t)
	d.HandleText(1, []byte(`{"action":"reboot"}`))
	expectStatus(t, tr, 1, "error", "Unknown action")
}

func TestGetReturnsValue(t *testing.T) {
	d, tr, _ := newTestDispatcher(t)
	d.HandleText(1, []byte(`{"action":"get","variable":"led_intensity"}`))

	m := lastResponse(t, tr, 1)
	if m["variable"] != "led_intensity" || m["value"] != float64(128) {
		t.Fatalf("unexpected get response: %v", m)
	}
}

func TestGetMissingVariableField(t *testing.T) {
	d, tr, _ := newTestDispatcher(t)
	d.HandleText(1, []byte(`{"action":"get"}`))
	expectStatus(t, tr, 1, "error", "Missing 'variable' field for get/set action.")
}

func TestGetUnknownVariable(t *testing.T) {
	d, tr, _ := newTestDispatcher(t)
	d.HandleText(1, []byte(`{"action":"get","variable":"LED_INTENSITY"}`))
	expectStatus(t, tr, 1, "error", "Variable name not found.")
}

func TestSetEchoesUpdatedValue(t *testing.T) {
	d, tr, _ := newTestDispatcher(t)
	d.HandleText(1, []byte(`{"action":"set","variable":"led_intensity","value":200}`))

	m := lastResponse(t, tr, 1)
	if m["variable"] != "led_intensity" || m["value"] != float64(200) {
		t.Fatalf("unexpected set response: %v", m)
	}

	// Read-after-write through the protocol.
	d.HandleText(2, []byte(`{"action":"get","variable":"led_intensity"}`))
	if m := lastResponse(t, tr, 2); m["value"] != float64(200) {
		t.Fatalf("get after set returned %v", m)
	}
}

func TestSetMissingOrNullValue(t *testing.T) {
	d, tr, _ := newTestDispatcher(t)

	d.HandleText(1, []byte(`{"action":"set","variable":"led_intensity"}`))
	expectStatus(t, tr, 1, "error", "Missing or null 'value' field for set action.")

	d.HandleText(1, []byte(`{"action":"set","variable":"led_intensity","value":null}`))
	expectStatus(t, tr, 1, "error", "Missing or null 'value' field for set action.")
}

func TestSetOutOfRange(t *testing.T) {
	d, tr, _ := newTestDispatcher(t)
	d.HandleText(1, []byte(`{"action":"set","variable":"led_intensity","value":300}`))
	expectStatus(t, tr, 1, "error", "Failed to set value (invalid type or out of limits).")

	// Stored value untouched.
	d.HandleText(1, []byte(`{"action":"get","variable":"led_intensity"}`))
	if m := lastResponse(t, tr, 1); m["value"] != float64(128) {
		t.Fatalf("value changed by rejected set: %v", m)
	}
}

func TestSetInvalidType(t *testing.T) {
	d, tr, _ := newTestDispatcher(t)
	d.HandleText(1, []byte(`{"action":"set","variable":"led_intensity","value":3.5}`))
	expectStatus(t, tr, 1, "error", "Failed to set value (invalid type or out of limits).")
}

func TestSetBroadcastOption(t *testing.T) {
	d, tr, _ := newTestDispatcher(t, WithSetBroadcast(true))
	d.HandleText(1, []byte(`{"action":"set","variable":"led_intensity","value":10}`))

	if len(tr.broadcasts) != 1 {
		t.Fatalf("expected one broadcast of the updated value, got %d", len(tr.broadcasts))
	}
	var m map[string]any
	if err := json.Unmarshal(tr.broadcasts[0], &m); err != nil {
		t.Fatalf("broadcast not JSON: %v", err)
	}
	if m["variable"] != "led_intensity" || m["value"] != float64(10) {
		t.Fatalf("unexpected broadcast payload: %v", m)
	}
}

func TestSetBroadcastDisabledByDefault(t *testing.T) {
	d, tr, _ := newTestDispatcher(t)
	d.HandleText(1, []byte(`{"action":"set","variable":"led_intensity","value":10}`))
	if len(tr.broadcasts) != 0 {
		t.Fatalf("set must not broadcast by default")
	}
}

func TestStartStreamTwice(t *testing.T) {
	d, tr, hooks := newTestDispatcher(t)

	d.HandleText(1, []byte(`{"action":"start_stream"}`))
	expectStatus(t, tr, 1, "ok", "Stream started.")

	d.HandleText(1, []byte(`{"action":"start_stream"}`))
	expectStatus(t, tr, 1, "info", "Stream was already active.")

	if hooks.starts != 1 {
		t.Fatalf("start hook fired %d times, want 1", hooks.starts)
	}
}

func TestStopStreamMirror(t *testing.T) {
	d, tr, hooks := newTestDispatcher(t)

	d.HandleText(1, []byte(`{"action":"stop_stream"}`))
	expectStatus(t, tr, 1, "info", "Stream was already stopped.")

	d.HandleText(1, []byte(`{"action":"start_stream"}`))
	d.HandleText(1, []byte(`{"action":"stop_stream"}`))
	expectStatus(t, tr, 1, "ok", "Stream stopped.")

	if hooks.stops != 1 {
		t.Fatalf("stop hook fired %d times, want 1", hooks.stops)
	}
}

func TestStreamWithoutHooks(t *testing.T) {
	tr := newFakeTransport()
	d := New(testRegistry(t), stream.New(nil), tr, nopObs{})

	d.HandleText(1, []byte(`{"action":"start_stream"}`))
	expectStatus(t, tr, 1, "error", "Streaming feature not implemented/configured.")

	d.HandleText(1, []byte(`{"action":"stop_stream"}`))
	expectStatus(t, tr, 1, "error", "Streaming feature not implemented/configured.")
}

func TestDisconnectOfLastPeerAutoStops(t *testing.T) {
	d, tr, hooks := newTestDispatcher(t)

	d.HandleConnect(1)
	d.HandleText(1, []byte(`{"action":"start_stream"}`))
	expectStatus(t, tr, 1, "ok", "Stream started.")

	// Post-disconnect count of zero stops the stream without a command.
	d.HandleDisconnect(1, 0)
	if hooks.stops != 1 {
		t.Fatalf("expected auto-stop on last disconnect, stops=%d", hooks.stops)
	}

	// A later peer sees the stream stopped.
	d.HandleText(2, []byte(`{"action":"start_stream"}`))
	expectStatus(t, tr, 2, "ok", "Stream started.")
}

func TestDisconnectWithPeersRemainingKeepsStreaming(t *testing.T) {
	d, _, hooks := newTestDispatcher(t)

	d.HandleText(1, []byte(`{"action":"start_stream"}`))
	d.HandleDisconnect(1, 3)
	if hooks.stops != 0 {
		t.Fatalf("stream must keep running while peers remain")
	}
}

func TestGetAllVarsConfig(t *testing.T) {
	d, tr, _ := newTestDispatcher(t)
	d.HandleText(1, []byte(`{"action":"get_all_vars_config"}`))

	m := lastResponse(t, tr, 1)
	if m["status"] != "var_config_list" {
		t.Fatalf("unexpected status: %v", m)
	}
	vars, ok := m["variables"].([]any)
	if !ok || len(vars) != 2 {
		t.Fatalf("expected 2 variables, got %v", m["variables"])
	}

	first, _ := vars[0].(map[string]any)
	if first["name"] != "led_intensity" || first["type"] != "INT" || first["hasLimits"] != true {
		t.Fatalf("unexpected first entry: %v", first)
	}
	if first["min"] != float64(0) || first["max"] != float64(255) {
		t.Fatalf("expected limits in entry: %v", first)
	}

	second, _ := vars[1].(map[string]any)
	if second["type"] != "STRING" || second["hasLimits"] != false {
		t.Fatalf("unexpected second entry: %v", second)
	}
	if _, present := second["min"]; present {
		t.Fatalf("text variable must omit min/max: %v", second)
	}
}

func TestGetAllVarsConfigEmptyRegistry(t *testing.T) {
	empty, err := registry.New(nil)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	tr := newFakeTransport()
	d := New(empty, stream.New(&recordingHooks{}), tr, nopObs{})

	d.HandleText(1, []byte(`{"action":"get_all_vars_config"}`))
	expectStatus(t, tr, 1, "error", "No variables configured on server.")
}

func TestBinaryFramesIgnored(t *testing.T) {
	d, tr, _ := newTestDispatcher(t)
	d.HandleBinary(1, []byte{0x01, 0x02, 0x03})
	if len(tr.sent[1]) != 0 {
		t.Fatalf("binary frames must not produce a response")
	}
}
