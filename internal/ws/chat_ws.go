package ws

import (
	"context"
	"errors"
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

// ChatWebSocketHandler handles chat websocket connections.
type ChatWebSocketHandler struct {
	gw          *Gateway
	chatRepo    repositories.ChatRepository
	messageRepo repositories.MessageRepository
	profiles    ProfileSource
	typingIdle  time.Duration
}

// NewChatWebSocketHandler constructs a ChatWebSocketHandler.
func NewChatWebSocketHandler(gw *Gateway, chatRepo repositories.ChatRepository, messageRepo repositories.MessageRepository, profiles ProfileSource, typingIdle time.Duration) *ChatWebSocketHandler {
	return &ChatWebSocketHandler{gw: gw, chatRepo: chatRepo, messageRepo: messageRepo, profiles: profiles, typingIdle: typingIdle}
}

// Handle upgrades GET /ws/chats/:chat_id and streams the chat.
func (h *ChatWebSocketHandler) Handle(c *gin.Context) {
	chatID, err := strconv.Atoi(c.Param("chat_id"))
	if err != nil || chatID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return
	}

	userID, ok := h.gw.authenticate(c)
	if !ok {
		return
	}

	chat, err := h.chatRepo.GetChat(c.Request.Context(), chatID)
	if err != nil {
		if errors.Is(err, repositories.ErrChatNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chat"})
		return
	}
	if !chat.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for chat"})
		return
	}

	self := typist(c.Request.Context(), h.profiles, userID)
	client, ok := h.gw.open(c, KindChat, chatID, userID)
	if !ok {
		return
	}

	participants := chat.Participants()
	go runConversation(h.gw, client, self, h.typingIdle, conversation[models.Message]{
		topic:         realtime.ChatTopic(chatID),
		presenceTopic: realtime.ChatPresenceTopic(chatID),
		scope: convsync.Scope{
			Table:        handlers.MessagesTable,
			ResourceID:   chatID,
			Participants: participants[:],
			Ops:          allOps,
		},
		fetch: func(ctx context.Context) ([]models.Message, error) {
			return h.messageRepo.GetChatMessagesForUser(ctx, chatID, userID)
		},
		snapshot: func(msgs []models.Message) any {
			return models.ChatEvent{Type: "messages", Messages: msgs}
		},
		typing: func(typists []models.Typist) any {
			return models.ChatEvent{Type: "typing", Typing: typists}
		},
	})
}
