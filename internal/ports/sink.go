package ports

// ChunkSink consumes one fully encoded binary chunk (batch capacity ×
// record size bytes, no framing header). The batcher copies the chunk
// before hand-off, so sinks may retain the slice.
type ChunkSink interface {
	PublishChunk(data []byte) error
	Name() string
}
