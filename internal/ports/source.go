package ports

import "github.com/jocoteles/ESP32WebSocketControl/internal/domain"

// SampleSource reads one raw sample from the sensor bank. Read must not
// block; it is called from the acquisition loop at the sampling cadence.
type SampleSource interface {
	Read() [domain.ReadingsPerRecord]uint16
}

// Clock supplies millisecond timestamps. Stream-relative times are computed
// by subtracting the value captured at stream start; uint32 wraparound is
// well-defined under that subtraction.
type Clock interface {
	NowMillis() uint32
}
