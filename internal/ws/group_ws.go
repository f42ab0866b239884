package ws

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"social-service/internal/convsync"
	"social-service/internal/handlers"
	"social-service/internal/models"
	"social-service/internal/realtime"
	"social-service/internal/repositories"
)

// GroupWebSocketHandler handles group websocket connections.
type GroupWebSocketHandler struct {
	gw          *Gateway
	groupRepo   repositories.GroupRepository
	messageRepo repositories.GroupMessageRepository
	profiles    ProfileSource
	typingIdle  time.Duration
}

// NewGroupWebSocketHandler constructs a GroupWebSocketHandler.
func NewGroupWebSocketHandler(gw *Gateway, groupRepo repositories.GroupRepository, messageRepo repositories.GroupMessageRepository, profiles ProfileSource, typingIdle time.Duration) *GroupWebSocketHandler {
	return &GroupWebSocketHandler{gw: gw, groupRepo: groupRepo, messageRepo: messageRepo, profiles: profiles, typingIdle: typingIdle}
}

// Handle upgrades GET /ws/groups/:group_id. A kick or a dissolve closes
// the socket.
func (h *GroupWebSocketHandler) Handle(c *gin.Context) {
	groupID, err := strconv.Atoi(c.Param("group_id"))
	if err != nil || groupID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid group id"})
		return
	}

	userID, ok := h.gw.authenticate(c)
	if !ok {
		return
	}

	member, err := h.groupRepo.IsMember(c.Request.Context(), groupID, userID)
	if err != nil || !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for group"})
		return
	}

	self := typist(c.Request.Context(), h.profiles, userID)
	client, ok := h.gw.open(c, KindGroup, groupID, userID)
	if !ok {
		return
	}

	go runConversation(h.gw, client, self, h.typingIdle, conversation[models.GroupMessage]{
		topic:         realtime.GroupTopic(groupID),
		presenceTopic: realtime.GroupPresenceTopic(groupID),
		scope: convsync.Scope{
			Table:      handlers.GroupMessagesTable,
			ResourceID: groupID,
			Ops:        allOps,
		},
		fetch: func(ctx context.Context) ([]models.GroupMessage, error) {
			return h.messageRepo.ListGroupMessages(ctx, groupID)
		},
		snapshot: func(msgs []models.GroupMessage) any {
			return models.GroupEvent{Type: "messages", Messages: msgs}
		},
		typing: func(typists []models.Typist) any {
			return models.GroupEvent{Type: "typing", Typing: typists}
		},
		closed: func(reason string) any {
			return models.GroupEvent{Type: "closed", Reason: reason}
		},
	})
}
