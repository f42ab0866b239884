package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"social-service/internal/models"
	"social-service/internal/realtime"
	"social-service/internal/repositories"
	"social-service/internal/telemetry"
)

// MessagesTable is the change-event table of direct messages.
const MessagesTable = "messages"

// ChatHandler manages private chat endpoints.
type ChatHandler struct {
	chatRepo    repositories.ChatRepository
	messageRepo repositories.MessageRepository
	pub         realtime.Publisher
	audit       *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(chatRepo repositories.ChatRepository, messageRepo repositories.MessageRepository, pub realtime.Publisher, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		pub:         pub,
		audit:       audit,
	}
}

// ListChats returns the chats visible to the authenticated user.
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID := c.GetInt("userID")

	chats, err := h.chatRepo.ListChats(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load chats"})
		return
	}
	if chats == nil {
		chats = []models.ChatSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// StartChat creates or returns an existing private chat between users.
func (h *ChatHandler) StartChat(c *gin.Context) {
	var req struct {
		FriendID int `json:"friend_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetInt("userID")
	if userID == req.FriendID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot chat with yourself"})
		return
	}

	chat, err := h.chatRepo.CreateOrGetChat(c.Request.Context(), userID, req.FriendID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create chat"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"chat_id": chat.ID})
}

// GetChatMessages returns messages for a chat filtered for the user.
func (h *ChatHandler) GetChatMessages(c *gin.Context) {
	chatID, ok := intParam(c, "chat_id", "chat")
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	member, err := h.chatRepo.IsParticipant(c.Request.Context(), chatID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat member"})
		return
	}

	msgs, err := h.messageRepo.GetChatMessagesForUser(c.Request.Context(), chatID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostChatMessage stores a chat message and announces it.
func (h *ChatHandler) PostChatMessage(c *gin.Context) {
	chatID, ok := intParam(c, "chat_id", "chat")
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	chat, ok := h.loadChat(c, chatID, userID)
	if !ok {
		return
	}

	var body models.MessageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	body = body.Normalize()
	if err := body.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messageRepo.CreateChatMessage(c.Request.Context(), chatID, userID, body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	// A new message makes the chat visible again for both sides.
	_ = h.chatRepo.UnhideChatForUser(c.Request.Context(), chatID, chat.User1ID)
	_ = h.chatRepo.UnhideChatForUser(c.Request.Context(), chatID, chat.User2ID)

	h.announce(c, chat, realtime.OpInsert, msg.ID)
	c.JSON(http.StatusCreated, msg)
}

// EditChatMessage replaces the text of the caller's own message.
func (h *ChatHandler) EditChatMessage(c *gin.Context) {
	chatID, messageID, ok := parseIDs(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	chat, ok := h.loadChat(c, chatID, userID)
	if !ok {
		return
	}

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	content, err := models.EditedContent(req.Content)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, ok := h.loadMessage(c, chatID, messageID)
	if !ok {
		return
	}
	if msg.SenderID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only sender can edit"})
		return
	}

	updated, err := h.messageRepo.EditMessage(c.Request.Context(), messageID, userID, content)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not edit message"})
		return
	}

	h.announce(c, chat, realtime.OpUpdate, messageID)
	c.JSON(http.StatusOK, updated)
}

// DeleteMessageForMe performs a soft delete of a message for the caller.
func (h *ChatHandler) DeleteMessageForMe(c *gin.Context) {
	chatID, messageID, ok := parseIDs(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	chat, ok := h.loadChat(c, chatID, userID)
	if !ok {
		return
	}

	msg, ok := h.loadMessage(c, chatID, messageID)
	if !ok {
		return
	}

	if err := h.messageRepo.SoftDeleteMessageForUser(c.Request.Context(), messageID, msg.SenderID == userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete message"})
		return
	}

	h.announce(c, chat, realtime.OpDelete, messageID)
	c.Status(http.StatusNoContent)
}

// DeleteMessageForAll marks a message as deleted for everyone (sender only).
// Subscribers hear about it only once the store accepted the delete.
func (h *ChatHandler) DeleteMessageForAll(c *gin.Context) {
	chatID, messageID, ok := parseIDs(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	chat, ok := h.loadChat(c, chatID, userID)
	if !ok {
		return
	}

	msg, ok := h.loadMessage(c, chatID, messageID)
	if !ok {
		return
	}
	if msg.SenderID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only sender can delete for all"})
		return
	}

	if err := h.messageRepo.DeleteMessageForAll(c.Request.Context(), messageID, userID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		emitAudit(c, h.audit, "ERROR", "delete for all failed")
		c.JSON(status, gin.H{"error": "could not delete message"})
		return
	}

	h.announce(c, chat, realtime.OpDelete, messageID)
	c.Status(http.StatusNoContent)
}

// DeleteChatForMe hides the chat for the requester.
func (h *ChatHandler) DeleteChatForMe(c *gin.Context) {
	chatID, ok := intParam(c, "chat_id", "chat")
	if !ok {
		return
	}
	userID := c.GetInt("userID")

	if _, ok := h.loadChat(c, chatID, userID); !ok {
		return
	}

	if err := h.chatRepo.HideChatForUser(c.Request.Context(), chatID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not hide chat"})
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ChatHandler) loadChat(c *gin.Context, chatID, userID int) (models.Chat, bool) {
	chat, err := h.chatRepo.GetChat(c.Request.Context(), chatID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrChatNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "chat not found"})
		return models.Chat{}, false
	}
	if !chat.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat member"})
		return models.Chat{}, false
	}
	return chat, true
}

func (h *ChatHandler) loadMessage(c *gin.Context, chatID, messageID int) (models.Message, bool) {
	msg, err := h.messageRepo.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "message not found"})
		return models.Message{}, false
	}
	if msg.ChatID != chatID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message does not belong to chat"})
		return models.Message{}, false
	}
	return msg, true
}

func (h *ChatHandler) announce(c *gin.Context, chat models.Chat, op realtime.Op, messageID int) {
	p := chat.Participants()
	publishChange(c.Request.Context(), h.pub, realtime.ChatTopic(chat.ID), realtime.Change{
		Table:          MessagesTable,
		Op:             op,
		ResourceID:     chat.ID,
		RecordID:       messageID,
		ActorID:        c.GetInt("userID"),
		ParticipantIDs: p[:],
	})
}

func parseIDs(c *gin.Context) (int, int, bool) {
	chatID, ok := intParam(c, "chat_id", "chat")
	if !ok {
		return 0, 0, false
	}
	msgID, ok := intParam(c, "message_id", "message")
	if !ok {
		return 0, 0, false
	}
	return chatID, msgID, true
}
