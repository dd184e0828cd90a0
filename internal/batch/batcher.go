// Package batch accumulates fixed-size sample records and flushes full
// batches as single binary chunks, decoupling the sampling cadence from
// the network send cadence.
package batch

import (
	"fmt"
	"sync"

	"github.com/jocoteles/ESP32WebSocketControl/internal/domain"
	"github.com/jocoteles/ESP32WebSocketControl/internal/ports"
)

// Batcher owns one fixed-capacity buffer with an explicit write cursor.
// Records are encoded in place; when the cursor reaches capacity the full
// chunk is copied and handed to every sink, then the cursor resets. There
// is no partial-batch or timeout flush. A flush with no reachable peers
// drops the interval's data, which is the accepted trade-off for a
// telemetry-only stream with no replay requirement.
type Batcher struct {
	mu       sync.Mutex
	buf      []byte
	n        int
	capacity int
	sinks    []ports.ChunkSink
	obs      ports.Observability
}

// New creates a batcher flushing chunks of capacity records to the given
// sinks.
func New(capacity int, obs ports.Observability, sinks ...ports.ChunkSink) (*Batcher, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("batch capacity must be positive, got %d", capacity)
	}
	return &Batcher{
		buf:      make([]byte, capacity*domain.RecordSize),
		capacity: capacity,
		sinks:    sinks,
		obs:      obs,
	}, nil
}

// Append encodes the record at the write cursor. Filling the last slot
// triggers exactly one flush and resets the cursor; the flushed bytes are
// a copy, so sink hand-off never races buffer reuse.
func (b *Batcher) Append(rec domain.SampleRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec.EncodeTo(b.buf[b.n*domain.RecordSize:])
	b.n++
	if b.obs != nil {
		b.obs.IncCounter("wsctl_samples_captured_total", 1)
	}
	if b.n < b.capacity {
		return
	}

	chunk := make([]byte, len(b.buf))
	copy(chunk, b.buf)
	b.n = 0

	for _, sink := range b.sinks {
		if err := sink.PublishChunk(chunk); err != nil {
			if b.obs != nil {
				b.obs.LogError("chunk_publish_failed", err,
					ports.Field{Key: "sink", Value: sink.Name()})
				b.obs.IncCounter("wsctl_chunk_publish_errors_total", 1)
			}
		}
	}
	if b.obs != nil {
		b.obs.IncCounter("wsctl_chunks_flushed_total", 1)
	}
}

// Reset discards any pending records and rewinds the cursor. Called on
// stream start so relative timestamps and chunk boundaries align.
func (b *Batcher) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.n = 0
}

// Pending reports the number of buffered records awaiting flush.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.n
}

// Capacity reports the configured batch size.
func (b *Batcher) Capacity() int { return b.capacity }
