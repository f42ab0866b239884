package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"social-service/internal/calls"
	"social-service/internal/realtime"
)

type callFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// CallWebSocketHandler joins a user to a call and relays its signals.
type CallWebSocketHandler struct {
	gw      *Gateway
	manager *calls.Manager
	access  calls.Access
}

func NewCallWebSocketHandler(gw *Gateway, manager *calls.Manager, access calls.Access) *CallWebSocketHandler {
	return &CallWebSocketHandler{gw: gw, manager: manager, access: access}
}

// Handle upgrades GET /ws/calls/:call_id. Closing the socket leaves the call.
func (h *CallWebSocketHandler) Handle(c *gin.Context) {
	callID := c.Param("call_id")

	userID, ok := h.gw.authenticate(c)
	if !ok {
		return
	}

	call, err := h.manager.Get(callID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "call not found"})
		return
	}
	allowed, err := h.access.Allowed(c.Request.Context(), call, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for call"})
		return
	}

	client, ok := h.gw.open(c, KindCall, call.ResourceID, userID)
	if !ok {
		return
	}
	go h.run(client, callID, userID)
}

func (h *CallWebSocketHandler) run(client *Client, callID string, userID int) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Subscribe before joining so the session sees its own join.
	sub, err := h.gw.broker.Subscribe(ctx, realtime.CallTopic(callID))
	if err != nil {
		zap.L().Error("ws_call_subscribe_failed", zap.String("call_id", callID), zap.Error(err))
		h.gw.abort(client, "subscription unavailable")
		return
	}
	defer sub.Close()

	if _, err := h.manager.Join(ctx, callID, userID); err != nil {
		h.gw.abort(client, err.Error())
		return
	}
	defer func() {
		err := h.manager.Leave(context.Background(), callID, userID)
		if err != nil && !errors.Is(err, calls.ErrNotParticipant) && !errors.Is(err, calls.ErrCallNotFound) {
			zap.L().Warn("call_leave_failed", zap.String("call_id", callID), zap.Int("user_id", userID), zap.Error(err))
		}
	}()

	if participants, err := h.manager.Participants(callID); err == nil {
		raw, _ := json.Marshal(participants)
		_ = client.Send(callFrame{Type: "participants", Data: raw})
	}

	go pump(ctx, sub.C, func(msg realtime.Message) {
		if msg.Kind != realtime.KindBroadcast {
			return
		}
		if msg.Event == calls.EventSignal {
			var sig calls.Signal
			if err := json.Unmarshal(msg.Payload, &sig); err != nil || !sig.For(userID) {
				return
			}
		}
		_ = client.Send(callFrame{Type: msg.Event, Data: msg.Payload})
		if msg.Event == calls.EventEnded {
			client.CloseWith(CloseEnded, realtime.ControlEnded)
		}
	})

	h.gw.readLoop(client, func(in Inbound) {
		switch in.Type {
		case "signal":
			var sig calls.Signal
			if !decode(in, &sig) {
				_ = client.Send(newErrorFrame("invalid signal"))
				return
			}
			sig.From = userID
			if err := h.manager.Relay(ctx, callID, sig); err != nil {
				_ = client.Send(newErrorFrame(err.Error()))
			}
		case "state":
			var upd calls.StateUpdate
			if !decode(in, &upd) {
				_ = client.Send(newErrorFrame("invalid state"))
				return
			}
			if _, err := h.manager.Update(ctx, callID, userID, upd); err != nil {
				_ = client.Send(newErrorFrame(err.Error()))
			}
		case "leave":
			client.CloseWith(websocket.CloseNormalClosure, "left")
		default:
			_ = client.Send(newErrorFrame("unknown frame type"))
		}
	})
}
