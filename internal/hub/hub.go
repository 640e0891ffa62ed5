// Package hub is the websocket broadcast fabric: tracks connected clients,
// sends a consistent init frame on connect, and forwards
// trade/position/portfolio/analytics events to everyone.
package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/trendrunner/tokentrader/internal/logx"
)

var log = logx.New("hub")

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// EventKind names a broadcast frame's type.
type EventKind string

const (
	EventInit      EventKind = "init"
	EventTrade     EventKind = "trade"
	EventPositions EventKind = "positions"
	EventPortfolio EventKind = "portfolio"
	EventAnalytics EventKind = "analytics"
)

// Event is one outbound broadcast frame. Payload must already be built
// from the wire DTOs in this package (floats, not decimals).
type Event struct {
	Kind    EventKind   `json:"type"`
	Payload interface{} `json:"payload"`
}

// StateProvider computes the consistent init snapshot the hub sends to a
// newly connected client: {portfolio, positions, trades, analytics} in one
// pass. The init frame carries no status (mode/interval) field.
type StateProvider interface {
	InitFrame(ctx context.Context) (Event, error)
}

// Hub owns the client set and the single broadcast loop. broadcast must
// only be called from the loop goroutine (Run); every other caller uses
// BroadcastFromAnyThread.
type Hub struct {
	clients  map[*websocket.Conn]bool
	mu       sync.Mutex
	upgrader websocket.Upgrader
	state    StateProvider

	eventsCh chan Event
	running  bool
	runMu    sync.Mutex
}

func New(state StateProvider) *Hub {
	return &Hub{
		clients:  make(map[*websocket.Conn]bool),
		state:    state,
		eventsCh: make(chan Event, 256),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Run is the hub's loop: the only goroutine allowed to call broadcast
// directly. BroadcastFromAnyThread is the thread-safe entry point for
// everyone else.
func (h *Hub) Run(ctx context.Context) {
	h.runMu.Lock()
	h.running = true
	h.runMu.Unlock()
	defer func() {
		h.runMu.Lock()
		h.running = false
		h.runMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-h.eventsCh:
			h.broadcast(ev)
		}
	}
}

func (h *Hub) attached() bool {
	h.runMu.Lock()
	defer h.runMu.Unlock()
	return h.running
}

// BroadcastFromAnyThread schedules broadcast on the hub's loop. It is a
// silent no-op if the loop hasn't attached yet; the next scanner/price
// tick will catch clients up regardless.
func (h *Hub) BroadcastFromAnyThread(ev Event) {
	if !h.attached() {
		return
	}
	select {
	case h.eventsCh <- ev:
	default:
		log.Printf("broadcast channel full, dropping %s event", ev.Kind)
	}
}

func (h *Hub) broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("broadcast marshal error: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("write error, dropping client: %v", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// HandleWebSocket accepts one client connection, registers it, sends the
// init frame, and runs the read loop until disconnect.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("upgrade error: %v", err)
		return
	}
	h.register(conn)
	defer func() {
		h.unregister(conn)
		conn.Close()
	}()

	h.sendInit(conn)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	stopPing := make(chan struct{})
	go h.ping(conn, stopPing)
	defer close(stopPing)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		h.handleInbound(conn, msg)
	}
}

// handleInbound dispatches the inbound frame table: ping->pong,
// refresh->resend init, anything else is ignored.
func (h *Hub) handleInbound(conn *websocket.Conn, msg []byte) {
	var frame struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &frame); err != nil {
		return
	}
	switch frame.Type {
	case "ping":
		h.writeTo(conn, Event{Kind: "pong"})
	case "refresh":
		h.sendInit(conn)
	}
}

func (h *Hub) sendInit(conn *websocket.Conn) {
	if h.state == nil {
		return
	}
	ev, err := h.state.InitFrame(context.Background())
	if err != nil {
		log.Printf("init frame failed: %v", err)
		return
	}
	h.writeTo(conn, ev)
}

func (h *Hub) writeTo(conn *websocket.Conn, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_ = conn.WriteMessage(websocket.TextMessage, data)
}

func (h *Hub) ping(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.mu.Lock()
			err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeWait))
			h.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (h *Hub) register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
	log.Printf("client connected, total=%d", len(h.clients))
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		log.Printf("client disconnected, total=%d", len(h.clients))
	}
}
