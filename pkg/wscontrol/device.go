// Package wscontrol is the public facade: it wires the variable registry,
// command dispatcher, stream controller, and sample batcher behind a
// WebSocket transport and exposes simple lifecycle hooks for embedding
// the control core inside any Go service.
package wscontrol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jocoteles/ESP32WebSocketControl/internal/adapters/observability"
	"github.com/jocoteles/ESP32WebSocketControl/internal/adapters/source"
	"github.com/jocoteles/ESP32WebSocketControl/internal/adapters/uplink"
	"github.com/jocoteles/ESP32WebSocketControl/internal/adapters/wsserver"
	"github.com/jocoteles/ESP32WebSocketControl/internal/app/acquire"
	"github.com/jocoteles/ESP32WebSocketControl/internal/batch"
	"github.com/jocoteles/ESP32WebSocketControl/internal/dispatch"
	"github.com/jocoteles/ESP32WebSocketControl/internal/ports"
	"github.com/jocoteles/ESP32WebSocketControl/internal/registry"
	"github.com/jocoteles/ESP32WebSocketControl/internal/stream"
)

// TransportServer is a transport that also owns its own listener
// lifecycle. The default WebSocket server implements it; tests inject
// in-memory fakes.
type TransportServer interface {
	ports.Transport
	SetHandler(ports.EventHandler)
	Start() error
	Shutdown(ctx context.Context) error
}

// DeviceOption customizes the dependencies used by Device.
type DeviceOption func(*deviceOverrides)

type deviceOverrides struct {
	transport     TransportServer
	source        ports.SampleSource
	clock         ports.Clock
	hooks         ports.StreamHooks
	observability ports.Observability
	extraSinks    []ports.ChunkSink
}

// WithTransport injects a custom transport (in-memory fakes, alternative
// protocols).
func WithTransport(t TransportServer) DeviceOption {
	return func(o *deviceOverrides) { o.transport = t }
}

// WithSampleSource injects the reading source (real ADC bindings,
// simulators).
func WithSampleSource(s ports.SampleSource) DeviceOption {
	return func(o *deviceOverrides) { o.source = s }
}

// WithClock overrides the record timestamp clock.
func WithClock(c ports.Clock) DeviceOption {
	return func(o *deviceOverrides) { o.clock = c }
}

// WithStreamHooks replaces the built-in acquisition loop with custom
// start/stop behavior.
func WithStreamHooks(h ports.StreamHooks) DeviceOption {
	return func(o *deviceOverrides) { o.hooks = h }
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs ports.Observability) DeviceOption {
	return func(o *deviceOverrides) { o.observability = obs }
}

// WithChunkSink registers an additional consumer for completed chunks,
// alongside the WebSocket broadcast.
func WithChunkSink(s ports.ChunkSink) DeviceOption {
	return func(o *deviceOverrides) { o.extraSinks = append(o.extraSinks, s) }
}

// Device wires registry → dispatcher → stream controller → batcher behind
// a transport and exposes Start/Run/Shutdown.
type Device struct {
	cfg        *Config
	obs        ports.Observability
	transport  TransportServer
	registry   *registry.Registry
	controller *stream.Controller
	batcher    *batch.Batcher
	acquirer   *acquire.Acquirer
	uplink     *uplink.Client
	metricsSrv *http.Server

	acquireCancel context.CancelFunc
	acquireDone   chan struct{}
}

// NewDevice bootstraps the default adapters (WebSocket transport,
// simulated source, wall clock, Prometheus observability, optional MQTT
// uplink). DeviceOption values override any dependency.
func NewDevice(cfg *Config, opts ...DeviceOption) (*Device, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides deviceOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	obs := overrides.observability
	if obs == nil {
		obs = observability.New(slog.Default())
	}

	transport := overrides.transport
	if transport == nil {
		srv, err := wsserver.New(cfg.Server, obs)
		if err != nil {
			return nil, err
		}
		transport = srv
	}

	vars, err := cfg.BuildVariables()
	if err != nil {
		return nil, err
	}
	reg, err := registry.New(vars)
	if err != nil {
		return nil, err
	}

	sinks := make([]ports.ChunkSink, 0, 2+len(overrides.extraSinks))
	if chunkSink, ok := transport.(ports.ChunkSink); ok {
		sinks = append(sinks, chunkSink)
	}
	var mqttClient *uplink.Client
	if cfg.Uplink.Enabled {
		mqttClient, err = uplink.New(cfg.Uplink, obs)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, mqttClient)
	}
	sinks = append(sinks, overrides.extraSinks...)

	batcher, err := batch.New(cfg.Stream.ChunkSize, obs, sinks...)
	if err != nil {
		return nil, err
	}

	src := overrides.source
	if src == nil {
		src = source.NewSim()
	}
	clock := overrides.clock
	if clock == nil {
		clock = source.NewWallClock()
	}

	var acquirer *acquire.Acquirer
	hooks := overrides.hooks
	if hooks == nil {
		acquirer = acquire.New(src, clock, batcher, cfg.Stream.SampleInterval, obs)
		hooks = acquirer
	}

	controller := stream.New(hooks)
	dispatcher := dispatch.New(reg, controller, transport, obs,
		dispatch.WithSetBroadcast(cfg.Server.BroadcastSets))
	transport.SetHandler(dispatcher)

	return &Device{
		cfg:        cfg,
		obs:        obs,
		transport:  transport,
		registry:   reg,
		controller: controller,
		batcher:    batcher,
		acquirer:   acquirer,
		uplink:     mqttClient,
	}, nil
}

// Registry exposes the variable registry for programmatic reads and
// writes alongside the wire protocol.
func (d *Device) Registry() *registry.Registry { return d.registry }

// Streaming reports whether a stream is currently active.
func (d *Device) Streaming() bool { return d.controller.IsStreaming() }

// Transport exposes the running transport, e.g. to learn the bound
// address when the configured one was ":0".
func (d *Device) Transport() TransportServer { return d.transport }

// Start launches the transport, the acquisition loop, and the metrics
// server. It returns immediately; call Run to block on a context instead.
func (d *Device) Start() error {
	if d == nil {
		return fmt.Errorf("device is nil")
	}
	if err := d.transport.Start(); err != nil {
		return err
	}

	if d.acquirer != nil {
		ctx, cancel := context.WithCancel(context.Background())
		d.acquireCancel = cancel
		d.acquireDone = make(chan struct{})
		go func() {
			_ = d.acquirer.Run(ctx)
			close(d.acquireDone)
		}()
	}

	d.startMetrics()
	return nil
}

// Run starts the device and blocks until the provided context is
// cancelled, then attempts a graceful shutdown.
func (d *Device) Run(ctx context.Context) error {
	if err := d.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return d.Shutdown(shutdownCtx)
}

// Shutdown stops the acquisition loop, transport, uplink, and metrics
// server.
func (d *Device) Shutdown(ctx context.Context) error {
	var errs []error

	if d.acquireCancel != nil {
		d.acquireCancel()
		select {
		case <-d.acquireDone:
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
		}
	}

	if err := d.transport.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}

	if d.uplink != nil {
		d.uplink.Close()
	}

	if d.metricsSrv != nil {
		if err := d.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (d *Device) startMetrics() {
	if d.cfg.Metrics.Addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	d.metricsSrv = &http.Server{
		Addr:    d.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := d.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.obs.LogError("metrics_server_exited", err)
		}
	}()
}
