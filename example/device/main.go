// Runs a control server with programmatic configuration: two numeric
// variables and a label, streaming simulated samples to every connected
// WebSocket client.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	wscontrol "github.com/jocoteles/ESP32WebSocketControl"
)

func main() {
	min, max := 0.0, 255.0
	cfg := &wscontrol.Config{
		Server: wscontrol.ServerConfig{
			Addr:          ":8080",
			Path:          "/ws",
			BroadcastSets: true,
		},
		Metrics: wscontrol.MetricsConfig{Addr: ":9100"},
		Stream: wscontrol.StreamConfig{
			ChunkSize:      25,
			SampleInterval: time.Millisecond,
		},
		Variables: []wscontrol.VariableConfig{
			{Name: "led_intensity", Type: "int", Value: 128, Min: &min, Max: &max},
			{Name: "sensor_gain", Type: "float", Value: 1.5},
			{Name: "device_label", Type: "string", Value: "bench-1"},
		},
	}

	dev, err := wscontrol.NewDevice(cfg)
	if err != nil {
		log.Fatalf("build device: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("control server listening on %s%s", cfg.Server.Addr, cfg.Server.Path)
	if err := dev.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("device exited: %v", err)
	}
}
