package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"social-service/internal/middleware"
	"social-service/internal/observability"
	"social-service/internal/realtime"
)

const maxFrameBytes = 64 << 10

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Inbound is a frame sent by the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func newErrorFrame(msg string) errorFrame {
	return errorFrame{Type: "error", Error: msg}
}

// Gateway holds what every websocket endpoint shares: the session
// registry, token validation and the realtime broker.
type Gateway struct {
	hub    *Hub
	tokens middleware.TokenValidator
	broker realtime.Broker
}

func NewGateway(hub *Hub, tokens middleware.TokenValidator, broker realtime.Broker) *Gateway {
	return &Gateway{hub: hub, tokens: tokens, broker: broker}
}

// Hub returns the session registry.
func (g *Gateway) Hub() *Hub { return g.hub }

// authenticate accepts the token as a query parameter, since browsers
// cannot set headers on a websocket handshake, or as a bearer header.
func (g *Gateway) authenticate(c *gin.Context) (int, bool) {
	token := c.Query("token")
	if token == "" {
		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			token = parts[1]
		}
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return 0, false
	}
	claims, err := g.tokens.Validate(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return 0, false
	}
	userID, err := claims.UserID()
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return 0, false
	}
	return userID, true
}

// open upgrades the request and registers the session.
func (g *Gateway) open(c *gin.Context, kind string, resourceID, userID int) (*Client, bool) {
	ctx, span := otel.Tracer("social-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.L().Warn("ws_upgrade_failed", zap.String("kind", kind), zap.Error(err))
		return nil, false
	}
	conn.SetReadLimit(maxFrameBytes)

	client := newClient(conn, kind, resourceID, newConnInfo(c.Request, userID, observability.TraceIDFromContext(ctx)))
	g.hub.Add(client)
	publishEvent(ctx, client, "ws_connect", "")
	return client, true
}

// readLoop hands every client frame to handle until the socket closes,
// then unregisters the session.
func (g *Gateway) readLoop(client *Client, handle func(Inbound)) {
	var reason string
	defer func() {
		g.hub.Remove(client)
		publishEvent(context.Background(), client, "ws_disconnect", reason)
		zap.L().Debug("ws_session_closed", append(client.Info.fields(), zap.String("kind", client.Kind))...)
		client.CloseWith(websocket.CloseNormalClosure, "")
	}()

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			reason = err.Error()
			if !client.closedLocally() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				publishEvent(context.Background(), client, "ws_error", reason)
			}
			return
		}
		var in Inbound
		if err := json.Unmarshal(data, &in); err != nil || in.Type == "" {
			_ = client.Send(newErrorFrame("invalid frame"))
			continue
		}
		if handle != nil {
			handle(in)
		}
	}
}

// pump feeds messages to fn until ctx ends or the channel closes.
func pump(ctx context.Context, msgs <-chan realtime.Message, fn func(realtime.Message)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			fn(msg)
		}
	}
}

func decode(in Inbound, v any) bool {
	return len(in.Data) > 0 && json.Unmarshal(in.Data, v) == nil
}
