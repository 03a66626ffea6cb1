// Package broadcast generalizes the teacher's per-room websocket hub into
// the room/user addressing scheme of spec §6.3: every connected client
// subscribes to exactly one room channel and one user channel, and
// EmitRoom/EmitUser fan out to whichever clients are currently subscribed.
package broadcast

import (
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/duskfall/hollowvale/internal/game"
	"github.com/duskfall/hollowvale/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

// envelope is the wire shape delivered to every subscriber, mirroring the
// teacher's WSMessage envelope.
type envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
	At      time.Time   `json:"at"`
}

type outbound struct {
	channel string
	data    []byte
}

// Hub fans out room/user channel events to connected websocket clients. It
// implements game.Broadcaster.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*Client]bool
	metrics  *metrics.Metrics

	register   chan *Client
	unregister chan *Client
	send       chan *outbound
	done       chan struct{}
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		channels:   map[string]map[*Client]bool{},
		metrics:    m,
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		send:       make(chan *outbound, 256),
		done:       make(chan struct{}),
	}
}

var _ game.Broadcaster = (*Hub)(nil)

// Run drives the hub's single-threaded bookkeeping loop until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			return
		case c := <-h.register:
			h.addSubscriber(c)
		case c := <-h.unregister:
			h.removeSubscriber(c)
		case msg := <-h.send:
			h.deliver(msg)
		}
	}
}

func (h *Hub) Stop() { close(h.done) }

func (h *Hub) addSubscriber(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range c.channels() {
		if h.channels[ch] == nil {
			h.channels[ch] = map[*Client]bool{}
		}
		h.channels[ch][c] = true
	}
	if h.metrics != nil {
		h.metrics.ActiveConnections.Inc()
	}
}

func (h *Hub) removeSubscriber(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range c.channels() {
		delete(h.channels[ch], c)
		if len(h.channels[ch]) == 0 {
			delete(h.channels, ch)
		}
	}
	close(c.sendCh)
	if h.metrics != nil {
		h.metrics.ActiveConnections.Dec()
	}
}

func (h *Hub) deliver(msg *outbound) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.channels[msg.channel] {
		select {
		case c.sendCh <- msg.data:
		default:
			log.Printf("broadcast: dropping slow client on channel %s", msg.channel)
			if h.metrics != nil {
				h.metrics.BroadcastFailures.Inc()
			}
		}
	}
}

func roomChannel(roomID uuid.UUID) string { return "room-" + sanitize(roomID.String()) }
func userChannel(userID uuid.UUID) string { return "user-" + sanitize(userID.String()) }

// sanitize implements spec §6.3: replace any char outside [A-Za-z0-9_-]
// with '-'.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}

// EmitRoom implements game.Broadcaster: room:state, room:dissolved,
// game:state, chat:new, toast events.
func (h *Hub) EmitRoom(roomID uuid.UUID, event string, payload interface{}) {
	h.emit(roomChannel(roomID), event, payload)
}

// EmitUser implements game.Broadcaster: game:private, chat:new (wolf),
// webrtc:signal events.
func (h *Hub) EmitUser(userID uuid.UUID, event string, payload interface{}) {
	h.emit(userChannel(userID), event, payload)
}

func (h *Hub) emit(channel, event string, payload interface{}) {
	data, err := json.Marshal(envelope{Event: event, Payload: payload, At: time.Now()})
	if err != nil {
		log.Printf("broadcast: marshal failed for %s on %s: %v", event, channel, err)
		if h.metrics != nil {
			h.metrics.BroadcastFailures.Inc()
		}
		return
	}
	select {
	case h.send <- &outbound{channel: channel, data: data}:
	default:
		log.Printf("broadcast: hub queue full, dropping %s on %s", event, channel)
		if h.metrics != nil {
			h.metrics.BroadcastFailures.Inc()
		}
	}
}

// Client is one websocket connection subscribed to a room channel and a
// user channel simultaneously.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	sendCh chan []byte
	roomID uuid.UUID
	userID uuid.UUID
}

func NewClient(hub *Hub, conn *websocket.Conn, roomID, userID uuid.UUID) *Client {
	return &Client{hub: hub, conn: conn, sendCh: make(chan []byte, 64), roomID: roomID, userID: userID}
}

func (c *Client) channels() []string {
	return []string{roomChannel(c.roomID), userChannel(c.userID)}
}

func (c *Client) Register()   { c.hub.register <- c }
func (c *Client) Unregister() { c.hub.unregister <- c }

// ReadPump drains the connection for pong keepalives; clients never mutate
// game state over this socket, only over the HTTP Request Adapter.
func (c *Client) ReadPump() {
	defer c.Unregister()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
