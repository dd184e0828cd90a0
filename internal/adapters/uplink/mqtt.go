// Package uplink forwards telemetry chunks to an MQTT broker so devices
// can feed dashboards beyond directly connected WebSocket clients.
package uplink

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jocoteles/ESP32WebSocketControl/internal/ports"
)

// Config holds the MQTT uplink settings. The uplink is optional; when
// Enabled is false no connection is made.
type Config struct {
	Enabled        bool          `yaml:"enabled"`
	Broker         string        `yaml:"broker"`
	ClientID       string        `yaml:"client_id"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	Topic          string        `yaml:"topic"`
	QOS            byte          `yaml:"qos"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

func (c *Config) ApplyDefaults() {
	if c.ClientID == "" {
		c.ClientID = fmt.Sprintf("wscontrol-%d", time.Now().Unix())
	}
	if c.Topic == "" {
		c.Topic = "wscontrol/chunks"
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
}

func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Broker == "" {
		return fmt.Errorf("mqtt uplink enabled but broker address is empty")
	}
	if c.QOS > 2 {
		return fmt.Errorf("mqtt qos %d out of range [0,2]", c.QOS)
	}
	return nil
}

// Client publishes sample chunks to the configured topic. Publishing is
// best effort: a failed token is reported through observability but never
// blocks the acquisition path.
type Client struct {
	cfg    Config
	obs    ports.Observability
	client mqtt.Client
}

// New builds and connects the uplink client.
func New(cfg Config, obs ports.Observability) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		obs.LogWarn("mqtt_connection_lost", ports.Field{Key: "error", Value: err.Error()})
	})
	opts.SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		obs.LogInfo("mqtt_reconnecting", ports.Field{Key: "broker", Value: cfg.Broker})
	})

	c := &Client{cfg: cfg, obs: obs, client: mqtt.NewClient(opts)}

	token := c.client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", cfg.Broker, err)
	}

	obs.LogInfo("mqtt_uplink_connected",
		ports.Field{Key: "broker", Value: cfg.Broker},
		ports.Field{Key: "topic", Value: cfg.Topic})
	return c, nil
}

// PublishChunk forwards one binary chunk. The token is not awaited;
// delivery follows the configured QOS.
func (c *Client) PublishChunk(data []byte) error {
	token := c.client.Publish(c.cfg.Topic, c.cfg.QOS, false, data)
	if token.Error() != nil {
		return fmt.Errorf("mqtt publish: %w", token.Error())
	}
	return nil
}

// Name identifies this sink in logs.
func (c *Client) Name() string { return "mqtt" }

// Close disconnects from the broker, allowing in-flight work to finish.
func (c *Client) Close() {
	c.client.Disconnect(250)
}

var _ ports.ChunkSink = (*Client)(nil)
