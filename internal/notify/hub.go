package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"gitea.jw6.us/james/shalendar/internal/metrics"
	"gitea.jw6.us/james/shalendar/internal/store"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 32
)

// ErrSlowConsumer is reported for connections whose send buffer is full.
var ErrSlowConsumer = errors.New("connection send buffer full")

// Authorizer checks whether a user may subscribe to a calendar.
type Authorizer interface {
	HasPermission(ctx context.Context, userID, calendarID int64, required store.PermissionType) (bool, error)
}

// HubConfig wires a Hub.
type HubConfig struct {
	Tracker    GroupTracker
	Authorizer Authorizer
	// UserID extracts the authenticated user from the upgrade request.
	UserID         func(ctx context.Context) (int64, bool)
	AllowedOrigins []string
	Logger         zerolog.Logger
}

// Hub is the websocket Transport. Clients subscribe to calendar groups by
// sending join and leave messages.
type Hub struct {
	tracker  GroupTracker
	auth     Authorizer
	userID   func(ctx context.Context) (int64, bool)
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	mu      sync.RWMutex
	clients map[string]*client
}

type client struct {
	id     string
	userID int64
	conn   *websocket.Conn
	send   chan []byte
}

// clientMessage is what clients send; hubReply is what the hub answers.
type clientMessage struct {
	Type  string `json:"type"`
	Group string `json:"group"`
}

type hubReply struct {
	Type    string `json:"type"`
	Group   string `json:"group,omitempty"`
	Message string `json:"message,omitempty"`
}

func NewHub(cfg HubConfig) *Hub {
	h := &Hub{
		tracker: cfg.Tracker,
		auth:    cfg.Authorizer,
		userID:  cfg.UserID,
		logger:  cfg.Logger,
		clients: make(map[string]*client),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return h
}

// originChecker allows the listed origins, or any origin for "*". With no
// list the gorilla same-origin default applies.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := set[r.Header.Get("Origin")]
		return ok
	}
}

// ServeHTTP upgrades an authenticated request and serves the connection
// until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{
		id:     uuid.NewString(),
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
	h.register(c)
	defer h.unregister(c)

	go h.writePump(c)
	h.readPump(r.Context(), c)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	metrics.HubConnectionOpened()
	h.logger.Debug().Str("connection_id", c.id).Int64("user_id", c.userID).Msg("hub connection opened")
}

// unregister drops the connection from every group it joined.
func (h *Hub) unregister(c *client) {
	for _, group := range h.tracker.GroupsFor(c.id) {
		h.tracker.Remove(group, c.id)
	}

	h.mu.Lock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
	h.mu.Unlock()

	_ = c.conn.Close()
	metrics.HubConnectionClosed()
	h.logger.Debug().Str("connection_id", c.id).Msg("hub connection closed")
}

func (h *Hub) readPump(ctx context.Context, c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Str("connection_id", c.id).Msg("hub read failed")
			}
			return
		}
		h.reply(c, h.handle(ctx, c, msg))
	}
}

func (h *Hub) handle(ctx context.Context, c *client, msg clientMessage) hubReply {
	switch msg.Type {
	case "join":
		calendarID, err := strconv.ParseInt(msg.Group, 10, 64)
		if err != nil {
			return hubReply{Type: "error", Group: msg.Group, Message: "group must be a calendar id"}
		}
		ok, err := h.auth.HasPermission(ctx, c.userID, calendarID, store.PermissionRead)
		if err != nil {
			h.logger.Error().Err(err).Str("connection_id", c.id).Msg("hub join permission check failed")
			return hubReply{Type: "error", Group: msg.Group, Message: "join failed"}
		}
		if !ok {
			return hubReply{Type: "error", Group: msg.Group, Message: "Required permission: " + string(store.PermissionRead)}
		}
		h.tracker.Add(GroupKey(calendarID), c.id)
		return hubReply{Type: "joined", Group: msg.Group}
	case "leave":
		h.tracker.Remove(msg.Group, c.id)
		return hubReply{Type: "left", Group: msg.Group}
	default:
		return hubReply{Type: "error", Message: fmt.Sprintf("unknown message type %q", msg.Type)}
	}
}

func (h *Hub) reply(c *client, r hubReply) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Deliver queues ev on every listed connection without blocking. Unknown
// connections are skipped; full buffers are reported.
func (h *Hub) Deliver(ctx context.Context, connIDs []string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", ev.Name, err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	var errs []error
	for _, id := range connIDs {
		c, ok := h.clients[id]
		if !ok {
			continue
		}
		select {
		case c.send <- data:
		default:
			errs = append(errs, fmt.Errorf("%s: %w", id, ErrSlowConsumer))
		}
	}
	return errors.Join(errs...)
}
