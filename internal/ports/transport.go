package ports

// PeerID identifies one connected client for the lifetime of its connection.
type PeerID uint32

// Transport is the outbound side of the control/streaming socket. Sends are
// best-effort fire-and-forget: a send to a peer whose outbound queue is full
// is silently dropped, and no delivery guarantee exists at this layer.
type Transport interface {
	Send(peer PeerID, data []byte)
	Broadcast(data []byte)
	PeerCount() int
}

// EventHandler consumes inbound transport events. The transport invokes the
// handler from a single goroutine, one event at a time, so implementations
// see connect/disconnect/message events in arrival order.
//
// HandleDisconnect receives the peer count AFTER the disconnecting peer has
// been removed; the removal-then-count order is load-bearing for the
// last-peer auto-stop behavior.
type EventHandler interface {
	HandleConnect(peer PeerID)
	HandleDisconnect(peer PeerID, remaining int)
	HandleText(peer PeerID, data []byte)
	HandleBinary(peer PeerID, data []byte)
}
