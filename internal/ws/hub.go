package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"social-service/internal/observability"
)

// Session kinds, also used as metric labels.
const (
	KindChat  = "chat"
	KindGroup = "group"
	KindStory = "story"
	KindCall  = "call"
	KindLive  = "live"
)

// Close codes sent when the server ends a session.
const (
	CloseKicked    = 4001
	CloseDissolved = 4002
	CloseEnded     = 4003
)

const writeWait = 10 * time.Second

// Client is one websocket session. Writes are serialized per client.
type Client struct {
	conn       *websocket.Conn
	Kind       string
	ResourceID int
	Info       ConnInfo

	mu        sync.Mutex
	closeOnce sync.Once
	closed    bool
}

func newClient(conn *websocket.Conn, kind string, resourceID int, info ConnInfo) *Client {
	return &Client{conn: conn, Kind: kind, ResourceID: resourceID, Info: info}
}

// Send writes v as a JSON text frame.
func (c *Client) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// CloseWith sends a close frame and closes the socket. The read loop then
// ends and tears the session down.
func (c *Client) CloseWith(code int, reason string) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
		c.mu.Unlock()
		_ = c.conn.Close()
	})
}

func (c *Client) closedLocally() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Hub is the registry of open sessions.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[*Client]struct{})}
}

// Add registers a session.
func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.Kind]; !ok {
		h.clients[c.Kind] = make(map[*Client]struct{})
	}
	h.clients[c.Kind][c] = struct{}{}
	h.mu.Unlock()
	observability.IncWSActive(c.Kind)
}

// Remove unregisters a session. Removing twice is a no-op.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	conns, ok := h.clients[c.Kind]
	_, present := conns[c]
	if ok && present {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.clients, c.Kind)
		}
	}
	h.mu.Unlock()
	if present {
		observability.DecWSActive(c.Kind)
	}
}

// Counts returns open sessions per kind.
func (h *Hub) Counts() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]int, len(h.clients))
	for kind, conns := range h.clients {
		out[kind] = len(conns)
	}
	return out
}

// CloseAll ends every session, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	var all []*Client
	for _, conns := range h.clients {
		for c := range conns {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range all {
		c.CloseWith(websocket.CloseGoingAway, "server shutting down")
	}
	zap.L().Info("ws_sessions_closed", zap.Int("count", len(all)))
}

var routingKeys = map[string]string{
	KindChat:  "ws_events.chats",
	KindGroup: "ws_events.groups",
	KindStory: "ws_events.stories",
	KindCall:  "ws_events.calls",
	KindLive:  "ws_events.live",
}

func wsRoutingKey(kind string) string {
	if key, ok := routingKeys[kind]; ok {
		return key
	}
	return "ws_events." + kind
}

// publishEvent reports a lifecycle event of c on the events exchange.
func publishEvent(ctx context.Context, c *Client, event, reason string) {
	info := c.Info
	duration := int64(0)
	if event != "ws_connect" {
		duration = time.Since(info.ConnectedAt).Milliseconds()
	}
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        c.Kind,
			"resource_id": c.ResourceID,
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": duration,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	observability.IncWSEvent(c.Kind, event)
	_ = observability.PublishEvent(ctx, wsRoutingKey(c.Kind),
		observability.NewEvent("ws_events", event, payload),
		observability.BuildHeaders(info.RequestID, info.TraceID))
}
