package domain

import (
	"encoding/binary"
	"fmt"
)

// ReadingsPerRecord is the number of raw sensor channels in one record.
const ReadingsPerRecord = 6

// RecordSize is the wire size of one encoded SampleRecord:
// six little-endian uint16 readings followed by a uint32 timestamp.
const RecordSize = ReadingsPerRecord*2 + 4

// SampleRecord is one fixed-size telemetry sample. TimeMs is milliseconds
// relative to stream start, not wall-clock time.
type SampleRecord struct {
	Readings [ReadingsPerRecord]uint16
	TimeMs   uint32
}

// EncodeTo packs the record little-endian into b, which must hold at
// least RecordSize bytes.
func (r SampleRecord) EncodeTo(b []byte) {
	_ = b[RecordSize-1]
	for i, v := range r.Readings {
		binary.LittleEndian.PutUint16(b[i*2:], v)
	}
	binary.LittleEndian.PutUint32(b[ReadingsPerRecord*2:], r.TimeMs)
}

// DecodeRecord unpacks one record from the start of b.
func DecodeRecord(b []byte) (SampleRecord, error) {
	if len(b) < RecordSize {
		return SampleRecord{}, fmt.Errorf("record truncated: %d bytes", len(b))
	}
	var r SampleRecord
	for i := range r.Readings {
		r.Readings[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	r.TimeMs = binary.LittleEndian.Uint32(b[ReadingsPerRecord*2:])
	return r, nil
}

// DecodeChunk splits a binary broadcast payload into records. The payload
// carries no framing header, so its length must be a whole number of records.
func DecodeChunk(b []byte) ([]SampleRecord, error) {
	if len(b)%RecordSize != 0 {
		return nil, fmt.Errorf("chunk length %d is not a multiple of %d", len(b), RecordSize)
	}
	out := make([]SampleRecord, 0, len(b)/RecordSize)
	for off := 0; off < len(b); off += RecordSize {
		r, err := DecodeRecord(b[off:])
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
