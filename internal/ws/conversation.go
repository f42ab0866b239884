package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"social-service/internal/convsync"
	"social-service/internal/models"
	"social-service/internal/realtime"
	"social-service/internal/typing"
)

// ProfileSource resolves the display name shown next to a typing user.
type ProfileSource interface {
	GetProfile(ctx context.Context, userID int) (models.Profile, error)
}

// allOps refetch on inserts, edits and deletes alike.
var allOps = []realtime.Op{realtime.OpInsert, realtime.OpUpdate, realtime.OpDelete}

// conversation describes one chat or group session: which topic carries
// its changes, how to load it and how to frame what is pushed.
type conversation[T any] struct {
	topic         string
	presenceTopic string
	scope         convsync.Scope
	fetch         convsync.Fetcher[T]
	snapshot      func([]T) any
	typing        func([]models.Typist) any
	// closed frames a kick or dissolve; nil for conversations without
	// membership changes.
	closed func(reason string) any
}

func typist(ctx context.Context, profiles ProfileSource, userID int) models.Typist {
	self := models.Typist{UserID: userID}
	if profiles == nil {
		return self
	}
	profile, err := profiles.GetProfile(ctx, userID)
	if err != nil {
		zap.L().Warn("ws_profile_lookup_failed", zap.Int("user_id", userID), zap.Error(err))
		return self
	}
	self.Username = profile.Username
	return self
}

func closeCode(event string) int {
	switch event {
	case realtime.ControlKicked:
		return CloseKicked
	case realtime.ControlDissolved:
		return CloseDissolved
	case realtime.ControlEnded:
		return CloseEnded
	}
	return websocket.CloseNormalClosure
}

// runConversation keeps the client's message list in sync, relays typing
// presence and serves client frames until the socket closes.
func runConversation[T any](g *Gateway, client *Client, self models.Typist, idle time.Duration, conv conversation[T]) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	view, err := convsync.Start(ctx, g.broker, conv.topic, conv.scope, conv.fetch, func(items []T) {
		_ = client.Send(conv.snapshot(items))
	})
	if err != nil {
		zap.L().Error("ws_sync_start_failed", zap.String("topic", conv.topic), zap.Error(err))
		g.abort(client, "sync unavailable")
		return
	}
	defer view.Close()

	if conv.closed != nil {
		sub, err := g.broker.Subscribe(ctx, conv.topic)
		if err != nil {
			zap.L().Error("ws_control_subscribe_failed", zap.String("topic", conv.topic), zap.Error(err))
			g.abort(client, "subscription unavailable")
			return
		}
		defer sub.Close()
		go pump(ctx, sub.C, func(msg realtime.Message) {
			if msg.Kind != realtime.KindControl {
				return
			}
			if target := realtime.ControlTarget(msg); target != 0 && target != self.UserID {
				return
			}
			_ = client.Send(conv.closed(msg.Event))
			client.CloseWith(closeCode(msg.Event), msg.Event)
		})
	}

	var indicator *typing.Indicator
	ch, err := realtime.Join(ctx, g.broker, conv.presenceTopic)
	if err != nil {
		// The conversation still works without typing presence.
		zap.L().Warn("ws_presence_join_failed", zap.String("topic", conv.presenceTopic), zap.Error(err))
	} else {
		indicator = typing.New(ch, self, typing.WithTimeout(idle), typing.WithKey(client.Info.ConnID))
		defer func() { _ = indicator.Close(context.Background()) }()
		sendTypists := func() {
			typists, err := indicator.HandlePresenceSync(ctx)
			if err != nil {
				zap.L().Warn("ws_presence_read_failed", zap.String("topic", conv.presenceTopic), zap.Error(err))
				return
			}
			_ = client.Send(conv.typing(typists))
		}
		sendTypists()
		go pump(ctx, ch.Messages(), func(msg realtime.Message) {
			if msg.Kind == realtime.KindPresence {
				sendTypists()
			}
		})
	}

	g.readLoop(client, func(in Inbound) {
		switch in.Type {
		case "typing", "stop_typing":
			if indicator == nil {
				return
			}
			var err error
			if in.Type == "typing" {
				err = indicator.Keystroke(ctx)
			} else {
				err = indicator.Sent(ctx)
			}
			if err != nil {
				zap.L().Warn("ws_typing_failed", zap.String("topic", conv.presenceTopic), zap.Error(err))
			}
		default:
			_ = client.Send(newErrorFrame("unknown frame type"))
		}
	})
}

// abort ends a session that could not be set up.
func (g *Gateway) abort(client *Client, reason string) {
	_ = client.Send(newErrorFrame(reason))
	client.CloseWith(websocket.CloseInternalServerErr, reason)
	g.hub.Remove(client)
	publishEvent(context.Background(), client, "ws_disconnect", reason)
}
