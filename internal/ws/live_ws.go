package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"social-service/internal/handlers"
	"social-service/internal/models"
	"social-service/internal/observability"
	"social-service/internal/realtime"
	"social-service/internal/repositories"
)

const (
	maxCommentRunes = 500
	maxEmojiRunes   = 8

	viewerCountInterval = 250 * time.Millisecond
)

// StreamSource loads a live stream.
type StreamSource interface {
	GetStream(ctx context.Context, streamID int) (models.LiveStream, error)
}

// LiveWebSocketHandler tracks viewers of a stream and fans out comments
// and emoji reactions.
type LiveWebSocketHandler struct {
	gw        *Gateway
	streams   StreamSource
	heartbeat time.Duration
}

// NewLiveWebSocketHandler builds the handler. heartbeat is how often a
// viewer refreshes its presence; it must stay below the reaper's max age.
func NewLiveWebSocketHandler(gw *Gateway, streams StreamSource, heartbeat time.Duration) *LiveWebSocketHandler {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &LiveWebSocketHandler{gw: gw, streams: streams, heartbeat: heartbeat}
}

// Handle upgrades GET /ws/live/:stream_id.
func (h *LiveWebSocketHandler) Handle(c *gin.Context) {
	streamID, err := strconv.Atoi(c.Param("stream_id"))
	if err != nil || streamID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stream id"})
		return
	}

	userID, ok := h.gw.authenticate(c)
	if !ok {
		return
	}

	stream, err := h.streams.GetStream(c.Request.Context(), streamID)
	if err != nil {
		if errors.Is(err, repositories.ErrStreamNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "stream not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stream"})
		return
	}
	if stream.Status != models.LiveOn {
		c.JSON(http.StatusConflict, gin.H{"error": "stream has ended"})
		return
	}

	client, ok := h.gw.open(c, KindLive, streamID, userID)
	if !ok {
		return
	}
	go h.run(client, stream, userID)
}

func (h *LiveWebSocketHandler) run(client *Client, stream models.LiveStream, userID int) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := realtime.Join(ctx, h.gw.broker, realtime.LiveTopic(stream.ID))
	if err != nil {
		zap.L().Error("ws_live_join_failed", zap.Int("stream_id", stream.ID), zap.Error(err))
		h.gw.abort(client, "subscription unavailable")
		return
	}
	defer func() { _ = ch.Close(context.Background()) }()

	// One entry per connection; the viewer count dedups by user.
	if err := ch.Track(ctx, client.Info.ConnID, realtime.PresenceState{realtime.UserIDKey: userID}); err != nil {
		zap.L().Warn("live_presence_track_failed", append(client.Info.fields(), zap.Int("stream_id", stream.ID), zap.Error(err))...)
	}
	go func() {
		t := time.NewTicker(h.heartbeat)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := ch.Heartbeat(ctx); err != nil && ctx.Err() == nil {
					zap.L().Warn("live_presence_heartbeat_failed", append(client.Info.fields(), zap.Int("stream_id", stream.ID), zap.Error(err))...)
				}
			}
		}
	}()

	// Presence notifications only mark the count dirty; a single reader
	// collapses a burst of joins into one presence read.
	dirty := make(chan struct{}, 1)
	go h.countViewers(ctx, ch, client, stream, dirty)

	go pump(ctx, ch.Messages(), func(msg realtime.Message) {
		switch msg.Kind {
		case realtime.KindPresence:
			select {
			case dirty <- struct{}{}:
			default:
			}
		case realtime.KindBroadcast:
			var ev models.LiveEvent
			if err := json.Unmarshal(msg.Payload, &ev); err != nil {
				return
			}
			_ = client.Send(ev)
		case realtime.KindControl:
			if msg.Event == realtime.ControlEnded {
				_ = client.Send(models.LiveEvent{Type: "ended"})
				client.CloseWith(CloseEnded, msg.Event)
			}
		}
	})

	h.gw.readLoop(client, func(in Inbound) {
		var body struct {
			Text  string `json:"text"`
			Emoji string `json:"emoji"`
		}
		switch in.Type {
		case "comment":
			if !decode(in, &body) {
				_ = client.Send(newErrorFrame("invalid comment"))
				return
			}
			text := strings.TrimSpace(body.Text)
			if text == "" || utf8.RuneCountInString(text) > maxCommentRunes {
				_ = client.Send(newErrorFrame("invalid comment"))
				return
			}
			h.broadcast(ctx, ch, stream.ID, models.LiveEvent{Type: "comment", UserID: userID, Text: text})
		case "emoji":
			if !decode(in, &body) || body.Emoji == "" || utf8.RuneCountInString(body.Emoji) > maxEmojiRunes {
				_ = client.Send(newErrorFrame("invalid emoji"))
				return
			}
			h.broadcast(ctx, ch, stream.ID, models.LiveEvent{Type: "emoji", UserID: userID, Emoji: body.Emoji})
		default:
			_ = client.Send(newErrorFrame("unknown frame type"))
		}
	})
}

func (h *LiveWebSocketHandler) countViewers(ctx context.Context, ch *realtime.Channel, client *Client, stream models.LiveStream, dirty <-chan struct{}) {
	last := -1
	for {
		select {
		case <-ctx.Done():
			return
		case <-dirty:
		}
		state, err := ch.PresenceState(ctx)
		if err != nil {
			continue
		}
		if n := handlers.ViewerCount(state, stream.HostID); n != last {
			last = n
			_ = client.Send(models.LiveEvent{Type: "viewers", Viewers: n})
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(viewerCountInterval):
		}
	}
}

func (h *LiveWebSocketHandler) broadcast(ctx context.Context, ch *realtime.Channel, streamID int, ev models.LiveEvent) {
	if err := ch.Broadcast(ctx, ev.Type, ev); err != nil {
		zap.L().Warn("live_broadcast_failed", zap.Int("stream_id", streamID), zap.String("event", ev.Type), zap.Error(err))
		return
	}
	observability.IncRealtimePublished(string(realtime.KindBroadcast))
}
