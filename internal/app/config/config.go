package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jocoteles/ESP32WebSocketControl/internal/adapters/uplink"
	"github.com/jocoteles/ESP32WebSocketControl/internal/adapters/wsserver"
	"github.com/jocoteles/ESP32WebSocketControl/internal/domain"
)

type Config struct {
	Server    wsserver.Config  `yaml:"server"`
	Metrics   MetricsConfig    `yaml:"metrics"`
	Stream    StreamConfig     `yaml:"stream"`
	Uplink    uplink.Config    `yaml:"uplink"`
	Variables []VariableConfig `yaml:"variables"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type StreamConfig struct {
	// ChunkSize is the number of samples gathered before a binary chunk
	// is broadcast.
	ChunkSize int `yaml:"chunk_size"`
	// SampleInterval is the acquisition period.
	SampleInterval time.Duration `yaml:"sample_interval"`
}

// VariableConfig declares one controllable variable. Value carries the
// initial value with the YAML-native type; limits apply to numeric kinds
// only and must be set as a pair.
type VariableConfig struct {
	Name  string   `yaml:"name"`
	Type  string   `yaml:"type"`
	Value any      `yaml:"value"`
	Min   *float64 `yaml:"min"`
	Max   *float64 `yaml:"max"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	c.Server.ApplyDefaults()
	c.Uplink.ApplyDefaults()

	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Stream.ChunkSize == 0 {
		c.Stream.ChunkSize = 25
	}
	if c.Stream.SampleInterval == 0 {
		c.Stream.SampleInterval = 250 * time.Microsecond
	}
}

func (c *Config) validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Uplink.Validate(); err != nil {
		return fmt.Errorf("uplink config: %w", err)
	}
	if c.Stream.ChunkSize < 0 {
		return fmt.Errorf("stream.chunk_size must be positive")
	}
	if c.Stream.SampleInterval < 0 {
		return fmt.Errorf("stream.sample_interval must be positive")
	}
	for i, v := range c.Variables {
		if v.Name == "" {
			return fmt.Errorf("variables[%d]: name is required", i)
		}
		if _, err := domain.ParseKind(v.Type); err != nil {
			return fmt.Errorf("variables[%d] (%s): %w", i, v.Name, err)
		}
		if (v.Min == nil) != (v.Max == nil) {
			return fmt.Errorf("variables[%d] (%s): min and max must be set together", i, v.Name)
		}
	}
	return nil
}

// BuildVariables converts the declarations into registry variables. Full
// consistency checks (limits vs kind, initial value in range) happen in
// the registry constructor.
func (c *Config) BuildVariables() ([]domain.Variable, error) {
	vars := make([]domain.Variable, 0, len(c.Variables))
	for _, vc := range c.Variables {
		kind, err := domain.ParseKind(vc.Type)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", vc.Name, err)
		}

		value, err := initialValue(kind, vc.Value)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", vc.Name, err)
		}

		v := domain.Variable{Name: vc.Name, Kind: kind, Value: value}
		if vc.Min != nil && vc.Max != nil {
			v.HasLimits = true
			v.Min = *vc.Min
			v.Max = *vc.Max
		}
		vars = append(vars, v)
	}
	return vars, nil
}

func initialValue(kind domain.Kind, raw any) (domain.Value, error) {
	switch kind {
	case domain.KindInteger:
		switch n := raw.(type) {
		case int:
			return domain.IntValue(int64(n)), nil
		case int64:
			return domain.IntValue(n), nil
		case nil:
			return domain.IntValue(0), nil
		case float64:
			if n == float64(int64(n)) {
				return domain.IntValue(int64(n)), nil
			}
		}
		return domain.Value{}, fmt.Errorf("initial value %v is not an integer", raw)
	case domain.KindFloat:
		switch n := raw.(type) {
		case float64:
			return domain.FloatValue(n), nil
		case int:
			return domain.FloatValue(float64(n)), nil
		case int64:
			return domain.FloatValue(float64(n)), nil
		case nil:
			return domain.FloatValue(0), nil
		}
		return domain.Value{}, fmt.Errorf("initial value %v is not a number", raw)
	case domain.KindText:
		switch s := raw.(type) {
		case string:
			return domain.TextValue(s), nil
		case nil:
			return domain.TextValue(""), nil
		}
		return domain.Value{}, fmt.Errorf("initial value %v is not a string", raw)
	}
	return domain.Value{}, fmt.Errorf("unsupported kind %v", kind)
}
