package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jocoteles/ESP32WebSocketControl/internal/domain"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
variables:
  - name: led_intensity
    type: int
    value: 128
    min: 0
    max: 255
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("expected default server addr :8080, got %s", cfg.Server.Addr)
	}
	if cfg.Server.Path != "/ws" {
		t.Fatalf("expected default path /ws, got %s", cfg.Server.Path)
	}
	if cfg.Metrics.Addr != ":9100" {
		t.Fatalf("expected default metrics addr :9100, got %s", cfg.Metrics.Addr)
	}
	if cfg.Stream.ChunkSize != 25 {
		t.Fatalf("expected default chunk size 25, got %d", cfg.Stream.ChunkSize)
	}
	if cfg.Stream.SampleInterval != 250*time.Microsecond {
		t.Fatalf("expected default sample interval 250µs, got %s", cfg.Stream.SampleInterval)
	}
}

func TestLoadRejectsUnknownVariableType(t *testing.T) {
	path := writeConfig(t, `
variables:
  - name: sensor_gain
    type: double
    value: 1.5
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown variable type")
	}
}

func TestLoadRejectsHalfOpenLimits(t *testing.T) {
	path := writeConfig(t, `
variables:
  - name: sensor_gain
    type: float
    value: 1.5
    min: 0
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error when only min is set")
	}
}

func TestLoadRejectsEnabledUplinkWithoutBroker(t *testing.T) {
	path := writeConfig(t, `
uplink:
  enabled: true
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for enabled uplink without broker")
	}
}

func TestBuildVariables(t *testing.T) {
	path := writeConfig(t, `
variables:
  - name: led_intensity
    type: int
    value: 128
    min: 0
    max: 255
  - name: sensor_gain
    type: float
    value: 1.5
  - name: device_label
    type: string
    value: bench-1
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	vars, err := cfg.BuildVariables()
	if err != nil {
		t.Fatalf("build variables: %v", err)
	}
	if len(vars) != 3 {
		t.Fatalf("expected 3 variables, got %d", len(vars))
	}

	led := vars[0]
	if led.Kind != domain.KindInteger || led.Value.Int() != 128 {
		t.Fatalf("unexpected led variable: %+v", led)
	}
	if !led.HasLimits || led.Min != 0 || led.Max != 255 {
		t.Fatalf("expected limits [0,255], got %+v", led)
	}

	gain := vars[1]
	if gain.Kind != domain.KindFloat || gain.Value.Float() != 1.5 {
		t.Fatalf("unexpected gain variable: %+v", gain)
	}
	if gain.HasLimits {
		t.Fatal("gain should have no limits")
	}

	label := vars[2]
	if label.Kind != domain.KindText || label.Value.Text() != "bench-1" {
		t.Fatalf("unexpected label variable: %+v", label)
	}
}

func TestBuildVariablesRejectsMismatchedInitialValue(t *testing.T) {
	path := writeConfig(t, `
variables:
  - name: led_intensity
    type: int
    value: half
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if _, err := cfg.BuildVariables(); err == nil {
		t.Fatal("expected error for string initial value on int variable")
	}
}
