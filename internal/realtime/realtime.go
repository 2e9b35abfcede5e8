// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package realtime is the per-tenant push fan-out layer: authenticated
// WebSocket sessions subscribed to exactly one channel (notes or folders),
// heartbeat-monitored, idle-evicted, and delivered to in committed order.
// Built on gorilla/websocket, following the hub-owns-registry,
// session-owns-pumps pattern: the Hub's registry is guarded by an RWMutex
// held only around insert/remove and snapshotting, broadcasts send outside
// the lock, and each Session runs its own read and write pump goroutines
// between the socket and its send queue.
package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/fastnoteapp/backend/internal/logging"
	"github.com/fastnoteapp/backend/internal/metrics"
)

// Channel is one of the two logical subscription targets.
type Channel string

const (
	ChannelNotes   Channel = "notes"
	ChannelFolders Channel = "folders"
)

// EventType is the realtime message vocabulary from spec.md §4.6.
type EventType string

const (
	EventNoteCreated   EventType = "note_created"
	EventNoteUpdated   EventType = "note_updated"
	EventNoteMoved     EventType = "note_moved"
	EventNoteDeleted   EventType = "note_deleted"
	EventFolderCreated EventType = "folder_created"
	EventFolderUpdated EventType = "folder_updated"
	EventFolderDeleted EventType = "folder_deleted"
)

// State is a Session's lifecycle phase.
type State int

const (
	Opening State = iota
	Active
	Draining
	Closed
)

// Config bounds the hub's resource usage, overridable from internal/config.
type Config struct {
	HeartbeatInterval time.Duration // default 30s
	IdleTimeout       time.Duration // default 10m
	MaxPerTenant       int          // default 10
	SendQueueSize      int          // default 256
	DrainDeadline      time.Duration // default 30s, used at shutdown
}

// DefaultConfig matches spec.md §4.6/§6's stated defaults.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 30 * time.Second,
		IdleTimeout:       10 * time.Minute,
		MaxPerTenant:      10,
		SendQueueSize:     256,
		DrainDeadline:     30 * time.Second,
	}
}

// message is the wire format: { "type": <event>, "data": <payload> }.
type message struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data"`
}

// Session is one upgraded connection.
type Session struct {
	id       uuid.UUID
	tenant   uuid.UUID
	channel  Channel
	conn     *websocket.Conn
	send     chan []byte
	hub      *Hub
	log      logging.Logger

	mu           sync.Mutex
	state        State
	lastActivity time.Time
	closeOnce    sync.Once
}

// drain moves the session to Draining and closes its send queue exactly
// once, so writePump flushes queued messages and exits. Safe to call
// concurrently from readPump's disconnect path, the idle sweep, enqueue's
// slow-consumer path, and Hub.Shutdown.
func (s *Session) drain() {
	s.closeOnce.Do(func() {
		s.setState(Draining)
		close(s.send)
	})
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// State reports the session's current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastActivity)
}

// readPump drains inbound frames (used only to detect client close and
// refresh lastActivity — the protocol is server-to-client push, so any
// received frame, including pongs, counts as activity). Binary frames are
// rejected per spec.md §4.6.
func (s *Session) readPump() {
	defer s.drain()
	defer s.hub.unregister(s)
	s.conn.SetReadLimit(4096)
	s.conn.SetPongHandler(func(string) error {
		s.touch()
		return nil
	})
	for {
		msgType, _, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType == websocket.BinaryMessage {
			s.log.Warn("rejecting binary frame from realtime session")
			return
		}
		s.touch()
	}
}

// writePump owns all writes to the socket: queued messages and periodic
// pings. It is the only goroutine allowed to call conn.Write*, per
// gorilla/websocket's single-writer requirement.
func (s *Session) writePump(heartbeat time.Duration) {
	ticker := time.NewTicker(heartbeat)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()
	for {
		select {
		case data, ok := <-s.send:
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			if s.idleSince() > 2*heartbeat {
				return
			}
		}
	}
}

// enqueue delivers data to the session's send queue. A full queue triggers
// the slow-consumer policy: draining and disconnect rather than a silently
// dropped message.
func (s *Session) enqueue(data []byte) {
	select {
	case s.send <- data:
	default:
		s.drain()
	}
}

// Hub owns the per-tenant, per-channel session registry, guarded by mu, and
// the idle-eviction sweep goroutine.
type Hub struct {
	cfg     Config
	log     logging.Logger
	metrics *metrics.Registry

	mu       sync.RWMutex
	sessions map[uuid.UUID]map[Channel]map[uuid.UUID]*Session // tenant -> channel -> sessionID -> Session

	idleCheck *time.Ticker
	stopIdle  chan struct{}
}

// NewHub constructs a Hub and starts its idle-eviction sweep.
func NewHub(cfg Config, log logging.Logger, reg *metrics.Registry) *Hub {
	h := &Hub{
		cfg:      cfg,
		log:      log,
		metrics:  reg,
		sessions: make(map[uuid.UUID]map[Channel]map[uuid.UUID]*Session),
		stopIdle: make(chan struct{}),
	}
	h.idleCheck = time.NewTicker(cfg.IdleTimeout / 4)
	go h.sweepIdle()
	return h
}

func (h *Hub) sweepIdle() {
	for {
		select {
		case <-h.idleCheck.C:
			h.mu.RLock()
			var stale []*Session
			for _, channels := range h.sessions {
				for _, byID := range channels {
					for _, s := range byID {
						if s.idleSince() > h.cfg.IdleTimeout {
							stale = append(stale, s)
						}
					}
				}
			}
			h.mu.RUnlock()
			for _, s := range stale {
				s.drain()
			}
		case <-h.stopIdle:
			h.idleCheck.Stop()
			return
		}
	}
}

// Register installs a newly upgraded connection, enforcing the per-tenant
// connection cap. Returns nil, false if the cap is already reached.
func (h *Hub) Register(tenant uuid.UUID, channel Channel, conn *websocket.Conn) (*Session, bool) {
	h.mu.Lock()
	if h.sessions[tenant] == nil {
		h.sessions[tenant] = make(map[Channel]map[uuid.UUID]*Session)
	}
	if h.sessions[tenant][channel] == nil {
		h.sessions[tenant][channel] = make(map[uuid.UUID]*Session)
	}
	tenantTotal := 0
	for _, byID := range h.sessions[tenant] {
		tenantTotal += len(byID)
	}
	if tenantTotal >= h.cfg.MaxPerTenant {
		h.mu.Unlock()
		return nil, false
	}
	s := &Session{
		id:           uuid.New(),
		tenant:       tenant,
		channel:      channel,
		conn:         conn,
		send:         make(chan []byte, h.cfg.SendQueueSize),
		hub:          h,
		log:          h.log,
		state:        Active,
		lastActivity: time.Now(),
	}
	h.sessions[tenant][channel][s.id] = s
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.RealtimeActive.WithLabelValues(string(channel)).Inc()
	}

	go s.readPump()
	go s.writePump(h.cfg.HeartbeatInterval)
	return s, true
}

func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	if byChannel, ok := h.sessions[s.tenant]; ok {
		if byID, ok := byChannel[s.channel]; ok {
			delete(byID, s.id)
		}
	}
	h.mu.Unlock()
	s.setState(Closed)
	if h.metrics != nil {
		h.metrics.RealtimeActive.WithLabelValues(string(s.channel)).Dec()
	}
}

// Publish fans a mutation event out to every active session of tenant on
// channel. The registry is snapshotted under the lock and sends happen
// outside it, so a slow session's enqueue never blocks the broadcast or
// holds the lock across I/O.
func (h *Hub) Publish(tenant uuid.UUID, channel Channel, eventType EventType, payload interface{}) error {
	data, err := json.Marshal(message{Type: eventType, Data: payload})
	if err != nil {
		return err
	}

	h.mu.RLock()
	var targets []*Session
	if byChannel, ok := h.sessions[tenant]; ok {
		if byID, ok := byChannel[channel]; ok {
			for _, s := range byID {
				targets = append(targets, s)
			}
		}
	}
	h.mu.RUnlock()

	for _, s := range targets {
		s.enqueue(data)
	}
	if h.metrics != nil {
		h.metrics.RealtimeEvents.WithLabelValues(string(eventType)).Inc()
	}
	return nil
}

// Shutdown drains every session: moves it to Draining and closes its send
// queue so the writePump flushes then exits. It then waits the full
// configured drain deadline and hard-closes every socket before returning.
func (h *Hub) Shutdown() {
	close(h.stopIdle)
	h.mu.RLock()
	var all []*Session
	for _, byChannel := range h.sessions {
		for _, byID := range byChannel {
			for _, s := range byID {
				all = append(all, s)
			}
		}
	}
	h.mu.RUnlock()

	for _, s := range all {
		s.drain()
	}
	time.Sleep(h.cfg.DrainDeadline)
	for _, s := range all {
		s.conn.Close()
	}
}
