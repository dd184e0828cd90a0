// Package acquire runs the sample acquisition loop. It implements the
// stream hooks: starting a stream resets the chunk buffer and captures a
// time epoch, and every tick while active reads one record from the
// source into the batcher.
package acquire

import (
	"context"
	"sync"
	"time"

	"github.com/jocoteles/ESP32WebSocketControl/internal/batch"
	"github.com/jocoteles/ESP32WebSocketControl/internal/domain"
	"github.com/jocoteles/ESP32WebSocketControl/internal/ports"
)

type Acquirer struct {
	source   ports.SampleSource
	clock    ports.Clock
	batcher  *batch.Batcher
	obs      ports.Observability
	interval time.Duration

	mu     sync.Mutex
	active bool
	epoch  uint32
}

// New wires the acquisition loop. The interval sets the sampling period.
func New(source ports.SampleSource, clock ports.Clock, batcher *batch.Batcher, interval time.Duration, obs ports.Observability) *Acquirer {
	return &Acquirer{
		source:   source,
		clock:    clock,
		batcher:  batcher,
		obs:      obs,
		interval: interval,
	}
}

// OnStreamStart arms the loop. Any partial chunk from a previous stream
// is discarded so record timestamps within a chunk share one epoch.
func (a *Acquirer) OnStreamStart() {
	a.mu.Lock()
	a.batcher.Reset()
	a.epoch = a.clock.NowMillis()
	a.active = true
	a.mu.Unlock()

	a.obs.SetGauge("wsctl_stream_active", 1)
	a.obs.LogInfo("stream_started")
}

// OnStreamStop disarms the loop. The partial chunk is kept; the next
// start discards it.
func (a *Acquirer) OnStreamStop() {
	a.mu.Lock()
	a.active = false
	a.mu.Unlock()

	a.obs.SetGauge("wsctl_stream_active", 0)
	a.obs.LogInfo("stream_stopped")
}

// IsActive reports whether the loop is currently capturing.
func (a *Acquirer) IsActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// Run ticks at the configured interval until the context is canceled.
func (a *Acquirer) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			a.Tick()
		}
	}
}

// Tick captures one sample when the stream is active. Exposed so tests
// and alternative schedulers can drive the loop directly.
func (a *Acquirer) Tick() {
	a.mu.Lock()
	if !a.active {
		a.mu.Unlock()
		return
	}
	epoch := a.epoch
	a.mu.Unlock()

	record := domain.SampleRecord{
		Readings: a.source.Read(),
		TimeMs:   a.clock.NowMillis() - epoch,
	}
	a.batcher.Append(record)
}

var _ ports.StreamHooks = (*Acquirer)(nil)
