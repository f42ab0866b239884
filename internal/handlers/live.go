package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"social-service/internal/models"
	"social-service/internal/realtime"
	"social-service/internal/repositories"
)

// PresenceReader reads the presence state of a topic.
type PresenceReader interface {
	Presence(ctx context.Context, topic string) (map[string]realtime.PresenceState, error)
}

// LiveHandler serves live streams. Viewer counts come from presence on the
// stream topic.
type LiveHandler struct {
	repo     repositories.LiveRepository
	presence PresenceReader
	pub      realtime.Publisher
}

func NewLiveHandler(repo repositories.LiveRepository, presence PresenceReader, pub realtime.Publisher) *LiveHandler {
	return &LiveHandler{repo: repo, presence: presence, pub: pub}
}

// StartStream handles POST /live. The stream key is returned once.
func (h *LiveHandler) StartStream(c *gin.Context) {
	var req struct {
		Title string `json:"title" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	stream, err := h.repo.StartStream(c.Request.Context(), c.GetInt("userID"), req.Title, uuid.NewString())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start stream"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"stream": stream, "stream_key": stream.StreamKey})
}

// EndStream handles POST /live/:stream_id/end (host only).
func (h *LiveHandler) EndStream(c *gin.Context) {
	streamID, ok := intParam(c, "stream_id", "stream")
	if !ok {
		return
	}
	stream, err := h.repo.EndStream(c.Request.Context(), streamID, c.GetInt("userID"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrStreamNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not end stream"})
		return
	}
	publishControl(c.Request.Context(), h.pub, realtime.LiveTopic(streamID), realtime.ControlEnded, 0)
	c.JSON(http.StatusOK, stream)
}

// ListLive handles GET /live.
func (h *LiveHandler) ListLive(c *gin.Context) {
	streams, err := h.repo.ListLive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load streams"})
		return
	}
	if streams == nil {
		streams = []models.LiveStream{}
	}
	for i := range streams {
		streams[i].Viewers = h.viewers(c.Request.Context(), streams[i])
	}
	c.JSON(http.StatusOK, gin.H{"streams": streams})
}

// GetStream handles GET /live/:stream_id.
func (h *LiveHandler) GetStream(c *gin.Context) {
	streamID, ok := intParam(c, "stream_id", "stream")
	if !ok {
		return
	}
	stream, err := h.repo.GetStream(c.Request.Context(), streamID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrStreamNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "stream not found"})
		return
	}
	stream.Viewers = h.viewers(c.Request.Context(), stream)
	c.JSON(http.StatusOK, stream)
}

func (h *LiveHandler) viewers(ctx context.Context, stream models.LiveStream) int {
	if stream.Status != models.LiveOn || h.presence == nil {
		return 0
	}
	state, err := h.presence.Presence(ctx, realtime.LiveTopic(stream.ID))
	if err != nil {
		zap.L().Warn("live_presence_failed", zap.Int("stream_id", stream.ID), zap.Error(err))
		return 0
	}
	return ViewerCount(state, stream.HostID)
}

// ViewerCount counts distinct users present other than the host. Entries
// are keyed per connection, so a user with two tabs counts once.
func ViewerCount(state map[string]realtime.PresenceState, hostID int) int {
	seen := make(map[int]struct{}, len(state))
	for _, entry := range state {
		id := realtime.PresenceUserID(entry)
		if id == 0 || id == hostID {
			continue
		}
		seen[id] = struct{}{}
	}
	return len(seen)
}
