package http

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/magnusohlin/numba/internal/app"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
	sendBuffer     = 64
)

// Hub is the publish/subscribe transport: it tracks which connections
// joined which room channel and fans events out to them. It implements
// app.Broadcaster.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*conn]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*conn]struct{})}
}

var _ app.Broadcaster = (*Hub)(nil)

// Broadcast queues ev for every connection in roomCode without blocking.
func (h *Hub) Broadcast(roomCode string, ev app.Event) {
	data, err := encodeEvent(ev)
	if err != nil {
		log.Error().Err(err).Str("type", string(ev.Type())).Msg("failed to encode event")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[roomCode] {
		c.enqueue(data)
	}
}

// CloseRoom drops every membership of roomCode.
func (h *Hub) CloseRoom(roomCode string) {
	h.mu.Lock()
	members := h.rooms[roomCode]
	delete(h.rooms, roomCode)
	h.mu.Unlock()

	for c := range members {
		c.forget(roomCode)
	}
}

func (h *Hub) subscribe(roomCode string, c *conn) {
	h.mu.Lock()
	if h.rooms[roomCode] == nil {
		h.rooms[roomCode] = make(map[*conn]struct{})
	}
	h.rooms[roomCode][c] = struct{}{}
	h.mu.Unlock()
	c.remember(roomCode)
}

// unsubscribe removes c from roomCode and reports whether the same client
// still holds another connection in that room.
func (h *Hub) unsubscribe(roomCode string, c *conn) (stillAttached bool) {
	h.mu.Lock()
	if members, ok := h.rooms[roomCode]; ok {
		delete(members, c)
		for other := range members {
			if other.clientID == c.clientID {
				stillAttached = true
				break
			}
		}
		if len(members) == 0 {
			delete(h.rooms, roomCode)
		}
	}
	h.mu.Unlock()
	c.forget(roomCode)
	return stillAttached
}

// Members returns how many connections are subscribed to roomCode.
func (h *Hub) Members(roomCode string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomCode])
}

func encodeEvent(ev app.Event) ([]byte, error) {
	return json.Marshal(outboundMessage{Type: string(ev.Type()), Payload: ev})
}

// conn is one websocket session of a client.
type conn struct {
	id       string
	clientID string
	ws       *websocket.Conn
	send     chan []byte

	mu     sync.Mutex
	rooms  map[string]struct{}
	closed bool
}

func newConn(ws *websocket.Conn, clientID string) *conn {
	return &conn{
		id:       uuid.NewString(),
		clientID: clientID,
		ws:       ws,
		send:     make(chan []byte, sendBuffer),
		rooms:    make(map[string]struct{}),
	}
}

// enqueue never blocks: when the buffer is full the oldest frame is
// dropped so one slow client cannot stall its room.
func (c *conn) enqueue(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		select {
		case <-c.send:
		default:
		}
		log.Warn().Str("connection_id", c.id).Str("client_id", c.clientID).Msg("send buffer full, dropped oldest frame")
		c.send <- data
	}
}

func (c *conn) reply(ev app.Event) {
	data, err := encodeEvent(ev)
	if err != nil {
		log.Error().Err(err).Str("type", string(ev.Type())).Msg("failed to encode event")
		return
	}
	c.enqueue(data)
}

func (c *conn) remember(roomCode string) {
	c.mu.Lock()
	c.rooms[roomCode] = struct{}{}
	c.mu.Unlock()
}

func (c *conn) forget(roomCode string) {
	c.mu.Lock()
	delete(c.rooms, roomCode)
	c.mu.Unlock()
}

func (c *conn) joined() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.rooms))
	for code := range c.rooms {
		out = append(out, code)
	}
	return out
}

func (c *conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *conn) writePump(done chan<- struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(done)
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debug().Err(err).Str("connection_id", c.id).Msg("ws write error")
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
