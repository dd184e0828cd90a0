// Package source provides sample sources for the acquisition loop. The
// simulated source stands in for hardware ADC channels during development
// and testing.
package source

import (
	"math"
	"sync"
	"time"

	"github.com/jocoteles/ESP32WebSocketControl/internal/domain"
	"github.com/jocoteles/ESP32WebSocketControl/internal/ports"
)

// maxReading mirrors a 12-bit ADC full-scale value.
const maxReading = 4095

// Sim generates a deterministic multi-channel waveform: each channel is a
// sine at a different frequency, offset to mid-scale. Successive Read
// calls advance the phase, so captured chunks show smooth curves.
type Sim struct {
	mu   sync.Mutex
	step uint64
}

// NewSim returns a simulated source starting at phase zero.
func NewSim() *Sim { return &Sim{} }

// Read produces one reading per channel and advances the waveform.
func (s *Sim) Read() [domain.ReadingsPerRecord]uint16 {
	s.mu.Lock()
	step := s.step
	s.step++
	s.mu.Unlock()

	var readings [domain.ReadingsPerRecord]uint16
	for ch := range readings {
		// Channel ch cycles every 100/(ch+1) samples.
		phase := 2 * math.Pi * float64(step) * float64(ch+1) / 100
		v := (math.Sin(phase) + 1) / 2 * maxReading
		readings[ch] = uint16(math.Round(v))
	}
	return readings
}

// WallClock reports milliseconds since construction, wrapping at the
// uint32 boundary the wire format imposes.
type WallClock struct {
	start time.Time
}

// NewWallClock starts the epoch at the current instant.
func NewWallClock() *WallClock { return &WallClock{start: time.Now()} }

// NowMillis returns elapsed milliseconds, truncated to 32 bits.
func (c *WallClock) NowMillis() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

var (
	_ ports.SampleSource = (*Sim)(nil)
	_ ports.Clock        = (*WallClock)(nil)
)
