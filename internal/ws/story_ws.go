package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"social-service/internal/stories"
)

// StoryStore is what the story player needs from storage.
type StoryStore interface {
	stories.Source
	stories.ViewRecorder
}

type storyFrame struct {
	Type  string        `json:"type"`
	Frame stories.Frame `json:"frame"`
}

type storyControl struct {
	Command string `json:"command"`
}

// StoryWebSocketHandler plays the story feed over a websocket.
type StoryWebSocketHandler struct {
	gw    *Gateway
	store StoryStore
	names stories.Names
	now   func() time.Time
}

func NewStoryWebSocketHandler(gw *Gateway, store StoryStore, names stories.Names) *StoryWebSocketHandler {
	return &StoryWebSocketHandler{gw: gw, store: store, names: names, now: time.Now}
}

// Handle upgrades GET /ws/stories. The server drives playback and pushes
// a frame on every tick; the client sends controls.
func (h *StoryWebSocketHandler) Handle(c *gin.Context) {
	userID, ok := h.gw.authenticate(c)
	if !ok {
		return
	}

	groups, err := stories.Feed(c.Request.Context(), h.store, h.names, userID, h.now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stories"})
		return
	}

	client, ok := h.gw.open(c, KindStory, 0, userID)
	if !ok {
		return
	}

	go func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		session := stories.NewSession(groups, userID, h.store, func(f stories.Frame) {
			_ = client.Send(storyFrame{Type: "frame", Frame: f})
		})
		go session.Run(ctx, stories.Ticker(ctx))

		h.gw.readLoop(client, func(in Inbound) {
			if in.Type != "control" {
				_ = client.Send(newErrorFrame("unknown frame type"))
				return
			}
			var ctl storyControl
			if !decode(in, &ctl) {
				_ = client.Send(newErrorFrame("invalid control"))
				return
			}
			cmd, err := stories.ParseCommand(ctl.Command)
			if err != nil {
				_ = client.Send(newErrorFrame(err.Error()))
				return
			}
			// Run stops reading controls once playback finished.
			ctlCtx, done := context.WithTimeout(ctx, time.Second)
			defer done()
			if err := session.Control(ctlCtx, cmd); err != nil {
				zap.L().Warn("story_control_failed", zap.Int("user_id", userID), zap.Error(err))
			}
		})
	}()
}
