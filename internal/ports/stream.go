package ports

// StreamHooks is notified on stream state transitions. Each hook fires
// exactly once per transition edge: OnStreamStart on Stopped→Streaming,
// OnStreamStop on Streaming→Stopped (explicit command or last peer
// disconnecting).
type StreamHooks interface {
	OnStreamStart()
	OnStreamStop()
}
