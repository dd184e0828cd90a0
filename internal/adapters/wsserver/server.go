// Package wsserver provides the WebSocket transport: an HTTP server that
// upgrades connections on the configured path, serves the device web app
// statically, and fans events into the dispatcher from a single event loop.
package wsserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jocoteles/ESP32WebSocketControl/internal/ports"
)

const (
	// Time allowed to write a frame to a peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong from a peer.
	pongWait = 60 * time.Second
	// Ping cadence; must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Inbound control messages are small JSON documents.
	maxMessageSize = 4096
)

// Config holds the transport settings.
type Config struct {
	// Addr is the TCP listen address, e.g. ":8080".
	Addr string `yaml:"addr"`
	// Path is the WebSocket endpoint route.
	Path string `yaml:"path"`
	// StaticDir, when set, is served on "/" for the device web app.
	StaticDir string `yaml:"static_dir"`
	// BroadcastSets makes successful set results visible to all peers.
	BroadcastSets bool `yaml:"broadcast_sets"`
	// SendQueue is the per-peer outbound queue depth; frames beyond it
	// are dropped (fire-and-forget).
	SendQueue int `yaml:"send_queue"`
}

func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.Path == "" {
		c.Path = "/ws"
	}
	if c.SendQueue <= 0 {
		c.SendQueue = 64
	}
}

func (c *Config) Validate() error {
	if !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("websocket path %q must start with '/'", c.Path)
	}
	if c.StaticDir != "" && c.Path == "/" {
		return fmt.Errorf("websocket path '/' conflicts with static file serving")
	}
	return nil
}

type eventKind uint8

const (
	evConnect eventKind = iota
	evDisconnect
	evText
	evBinary
)

type event struct {
	kind      eventKind
	peer      ports.PeerID
	remaining int
	data      []byte
}

type outFrame struct {
	messageType int
	data        []byte
}

type peerConn struct {
	id        ports.PeerID
	conn      *websocket.Conn
	send      chan outFrame
	closeOnce sync.Once
}

func (p *peerConn) close() {
	p.closeOnce.Do(func() {
		close(p.send)
		_ = p.conn.Close()
	})
}

// Server implements ports.Transport and ports.ChunkSink. All inbound
// events are serialized through one run loop, so the handler never sees
// two events concurrently.
type Server struct {
	cfg      Config
	obs      ports.Observability
	handler  ports.EventHandler
	upgrader websocket.Upgrader

	mu     sync.RWMutex
	peers  map[ports.PeerID]*peerConn
	nextID atomic.Uint32

	listener net.Listener
	httpSrv  *http.Server
	events   chan event
	shutdown chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates the transport. SetHandler must be called before Start.
func New(cfg Config, obs ports.Observability) (*Server, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Server{
		cfg: cfg,
		obs: obs,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The device runs on an isolated network; any origin may connect.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		peers:    make(map[ports.PeerID]*peerConn),
		events:   make(chan event, 256),
		shutdown: make(chan struct{}),
	}, nil
}

// SetHandler installs the inbound event consumer.
func (s *Server) SetHandler(h ports.EventHandler) { s.handler = h }

// Start binds the listener and launches the HTTP server and event loop.
func (s *Server) Start() error {
	if s.handler == nil {
		return fmt.Errorf("wsserver: no event handler registered")
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("wsserver: listen %s: %w", s.cfg.Addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.handleWebSocket)
	if s.cfg.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.cfg.StaticDir)))
	}
	s.httpSrv = &http.Server{Handler: mux}

	s.wg.Add(1)
	go s.run()
	go func() {
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.obs.LogError("http_server_exited", err)
		}
	}()

	s.obs.LogInfo("websocket_server_started",
		ports.Field{Key: "addr", Value: ln.Addr().String()},
		ports.Field{Key: "path", Value: s.cfg.Path})
	return nil
}

// Addr returns the bound listen address; useful when Addr was ":0".
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.cfg.Addr
}

// Shutdown closes the listener, every peer connection, and the event loop.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		close(s.shutdown)
		if s.httpSrv != nil {
			if e := s.httpSrv.Shutdown(ctx); e != nil && !errors.Is(e, http.ErrServerClosed) {
				err = e
			}
		}

		s.mu.Lock()
		peers := make([]*peerConn, 0, len(s.peers))
		for _, p := range s.peers {
			peers = append(peers, p)
		}
		s.peers = make(map[ports.PeerID]*peerConn)
		s.mu.Unlock()
		for _, p := range peers {
			p.close()
		}

		s.wg.Wait()
	})
	return err
}

// run is the single event loop feeding the handler.
func (s *Server) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.shutdown:
			return
		case ev := <-s.events:
			switch ev.kind {
			case evConnect:
				s.handler.HandleConnect(ev.peer)
			case evDisconnect:
				s.handler.HandleDisconnect(ev.peer, ev.remaining)
			case evText:
				s.handler.HandleText(ev.peer, ev.data)
			case evBinary:
				s.handler.HandleBinary(ev.peer, ev.data)
			}
		}
	}
}

func (s *Server) dispatch(ev event) {
	select {
	case s.events <- ev:
	case <-s.shutdown:
	}
}

// Send delivers a text frame to one peer, dropping it if the peer's queue
// is full or the peer is gone.
func (s *Server) Send(peer ports.PeerID, data []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.peers[peer]; ok {
		s.enqueue(p, websocket.TextMessage, data)
	}
}

// Broadcast delivers a text frame to every connected peer.
func (s *Server) Broadcast(data []byte) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.peers {
		s.enqueue(p, websocket.TextMessage, data)
	}
}

// PublishChunk broadcasts one binary telemetry chunk; with no peers
// connected it silently drops, matching the batcher's contract.
func (s *Server) PublishChunk(data []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.peers {
		s.enqueue(p, websocket.BinaryMessage, data)
	}
	return nil
}

// Name identifies this sink in logs.
func (s *Server) Name() string { return "websocket" }

// PeerCount reports the number of connected peers.
func (s *Server) PeerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}

// enqueue must run under mu so the peer's send channel cannot close
// concurrently.
func (s *Server) enqueue(p *peerConn, messageType int, data []byte) {
	select {
	case p.send <- outFrame{messageType: messageType, data: data}:
		s.obs.IncCounter("wsctl_sent_bytes_total", float64(len(data)))
	default:
		s.obs.IncCounter("wsctl_frames_dropped_total", 1)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.obs.LogWarn("websocket_upgrade_failed",
			ports.Field{Key: "remote", Value: r.RemoteAddr},
			ports.Field{Key: "error", Value: err.Error()})
		return
	}

	p := &peerConn{
		id:   ports.PeerID(s.nextID.Add(1)),
		conn: conn,
		send: make(chan outFrame, s.cfg.SendQueue),
	}

	s.mu.Lock()
	s.peers[p.id] = p
	count := len(s.peers)
	s.mu.Unlock()
	s.obs.SetGauge("wsctl_clients_connected", float64(count))

	s.dispatch(event{kind: evConnect, peer: p.id})

	go s.writePump(p)
	s.readPump(p)
}

// readPump runs in the connection's HTTP handler goroutine until the peer
// disconnects or errors.
func (s *Server) readPump(p *peerConn) {
	defer s.dropPeer(p)

	p.conn.SetReadLimit(maxMessageSize)
	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := p.conn.ReadMessage()
		if err != nil {
			return
		}
		switch messageType {
		case websocket.TextMessage:
			s.dispatch(event{kind: evText, peer: p.id, data: data})
		case websocket.BinaryMessage:
			s.dispatch(event{kind: evBinary, peer: p.id, data: data})
		}
	}
}

func (s *Server) writePump(p *peerConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = p.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = p.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := p.conn.WriteMessage(frame.messageType, frame.data); err != nil {
				return
			}
		case <-ticker.C:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dropPeer removes the peer, then reports the POST-removal count so the
// last-peer auto-stop sees zero.
func (s *Server) dropPeer(p *peerConn) {
	s.mu.Lock()
	if _, ok := s.peers[p.id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.peers, p.id)
	remaining := len(s.peers)
	s.mu.Unlock()

	p.close()
	s.obs.SetGauge("wsctl_clients_connected", float64(remaining))
	s.dispatch(event{kind: evDisconnect, peer: p.id, remaining: remaining})
}

var (
	_ ports.Transport = (*Server)(nil)
	_ ports.ChunkSink = (*Server)(nil)
)
