// Package stream tracks the single streaming on/off flag and fires the
// application's start/stop hooks on state transitions.
package stream

import (
	"errors"
	"sync"

	"github.com/jocoteles/ESP32WebSocketControl/internal/ports"
)

// ErrNoHooks is returned when stream control is requested but the
// application registered no hooks; the feature is unavailable.
var ErrNoHooks = errors.New("streaming feature not configured")

// Controller owns the streaming flag. Transitions happen only through
// Start, Stop, and the last-peer-disconnected notification; each hook
// fires exactly once per transition edge. Streaming may be started with
// zero peers connected — samples are then acquired and dropped at flush.
type Controller struct {
	mu        sync.Mutex
	streaming bool
	hooks     ports.StreamHooks
}

// New creates a controller. hooks may be nil, in which case Start and Stop
// report ErrNoHooks.
func New(hooks ports.StreamHooks) *Controller {
	return &Controller{hooks: hooks}
}

// Start transitions Stopped→Streaming. It returns (true, nil) when the
// transition happened, (false, nil) when streaming was already active
// (a no-op, not an error), and ErrNoHooks when no hooks are registered.
func (c *Controller) Start() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hooks == nil {
		return false, ErrNoHooks
	}
	if c.streaming {
		return false, nil
	}
	c.hooks.OnStreamStart()
	c.streaming = true
	return true, nil
}

// Stop mirrors Start for the Streaming→Stopped transition.
func (c *Controller) Stop() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hooks == nil {
		return false, ErrNoHooks
	}
	if !c.streaming {
		return false, nil
	}
	c.hooks.OnStreamStop()
	c.streaming = false
	return true, nil
}

// IsStreaming reports the current state.
func (c *Controller) IsStreaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming
}

// PeerCountChanged implements the implicit Streaming→Stopped transition:
// when the post-disconnect peer count reaches zero while streaming, the
// stop hook fires exactly once and the flag clears. The caller must pass
// the count taken AFTER removing the disconnecting peer.
func (c *Controller) PeerCountChanged(remaining int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if remaining != 0 || !c.streaming {
		return
	}
	if c.hooks != nil {
		c.hooks.OnStreamStop()
	}
	c.streaming = false
}
