package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"social-service/internal/models"
	"social-service/internal/permissions"
	"social-service/internal/realtime"
	"social-service/internal/repositories"
	"social-service/internal/telemetry"
)

// Change-event tables of group conversations.
const (
	GroupMessagesTable = "group_messages"
	GroupMembersTable  = "group_members"
	GroupsTable        = "groups"
)

// GroupHandler manages group-related endpoints.
type GroupHandler struct {
	groupRepo   repositories.GroupRepository
	messageRepo repositories.GroupMessageRepository
	policy      *permissions.Policy
	pub         realtime.Publisher
	audit       *telemetry.AuditEmitter
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(groupRepo repositories.GroupRepository, messageRepo repositories.GroupMessageRepository, policy *permissions.Policy, pub realtime.Publisher, audit *telemetry.AuditEmitter) *GroupHandler {
	return &GroupHandler{
		groupRepo:   groupRepo,
		messageRepo: messageRepo,
		policy:      policy,
		pub:         pub,
		audit:       audit,
	}
}

// CreateGroup handles POST /groups.
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	userID := c.GetInt("userID")

	var req struct {
		Name        string `json:"name" binding:"required"`
		Description string `json:"description"`
		MemberIDs   []int  `json:"member_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		emitAudit(c, h.audit, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, err := h.groupRepo.CreateGroup(c.Request.Context(), userID, req.Name, req.Description, req.MemberIDs)
	if err != nil {
		emitAudit(c, h.audit, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create group"})
		return
	}

	emitAudit(c, h.audit, "INFO", "Group created")
	c.JSON(http.StatusCreated, gin.H{"group_id": group.ID})
}

// ListGroups returns groups the caller belongs to.
func (h *GroupHandler) ListGroups(c *gin.Context) {
	userID := c.GetInt("userID")
	groups, err := h.groupRepo.ListGroupsForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load groups"})
		return
	}
	if groups == nil {
		groups = []models.Group{}
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// GetGroup returns the group, its members and the caller's permitted actions.
func (h *GroupHandler) GetGroup(c *gin.Context) {
	groupID, ok := intParam(c, "group_id", "group")
	if !ok {
		return
	}
	role, ok := h.memberRole(c, groupID, c.GetInt("userID"))
	if !ok {
		return
	}

	group, err := h.groupRepo.GetGroup(c.Request.Context(), groupID)
	if err != nil {
		h.repoError(c, err, "failed to load group")
		return
	}
	members, err := h.groupRepo.ListMembers(c.Request.Context(), groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load members"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"group":   group,
		"members": members,
		"role":    role,
		"actions": h.policy.Actions(role),
	})
}

// GetGroupMessages returns messages in the group.
func (h *GroupHandler) GetGroupMessages(c *gin.Context) {
	groupID, ok := intParam(c, "group_id", "group")
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	member, err := h.groupRepo.IsMember(c.Request.Context(), groupID, userID)
	if err != nil {
		emitAudit(c, h.audit, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !member {
		emitAudit(c, h.audit, "ERROR", "not allowed")
		c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		return
	}

	msgs, err := h.messageRepo.ListGroupMessages(c.Request.Context(), groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	if msgs == nil {
		msgs = []models.GroupMessage{}
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostGroupMessage persists and announces a group message.
func (h *GroupHandler) PostGroupMessage(c *gin.Context) {
	groupID, ok := intParam(c, "group_id", "group")
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if _, ok := h.require(c, groupID, userID, permissions.SendMessage); !ok {
		return
	}

	var body models.MessageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		emitAudit(c, h.audit, "ERROR", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	body = body.Normalize()
	if err := body.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messageRepo.CreateGroupMessage(c.Request.Context(), groupID, userID, body)
	if err != nil {
		emitAudit(c, h.audit, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	h.announce(c, groupID, GroupMessagesTable, realtime.OpInsert, msg.ID)
	emitAudit(c, h.audit, "INFO", "Group message sent")
	c.JSON(http.StatusCreated, msg)
}

// EditGroupMessage replaces the text of the caller's own message.
func (h *GroupHandler) EditGroupMessage(c *gin.Context) {
	groupID, messageID, ok := parseGroupIDs(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if _, ok := h.memberRole(c, groupID, userID); !ok {
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

	msg, ok := h.loadMessage(c, groupID, messageID)
	if !ok {
		return
	}
	if msg.SenderID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only sender can edit"})
		return
	}

	updated, err := h.messageRepo.EditGroupMessage(c.Request.Context(), messageID, userID, content)
	if err != nil {
		h.repoError(c, err, "could not edit message")
		return
	}

	h.announce(c, groupID, GroupMessagesTable, realtime.OpUpdate, messageID)
	c.JSON(http.StatusOK, updated)
}

// DeleteGroupMessageForAll deletes a message for everyone when invoked by the sender.
func (h *GroupHandler) DeleteGroupMessageForAll(c *gin.Context) {
	groupID, messageID, ok := parseGroupIDs(c)
	if !ok {
		return
	}

	userID := c.GetInt("userID")
	if _, ok := h.memberRole(c, groupID, userID); !ok {
		return
	}

	msg, ok := h.loadMessage(c, groupID, messageID)
	if !ok {
		return
	}
	if msg.SenderID != userID {
		emitAudit(c, h.audit, "ERROR", "not allowed to delete for all")
		c.JSON(http.StatusForbidden, gin.H{"error": "only sender may delete"})
		return
	}

	if err := h.messageRepo.DeleteForAll(c.Request.Context(), messageID, userID); err != nil {
		emitAudit(c, h.audit, "ERROR", "delete for all failed")
		h.repoError(c, err, "could not delete")
		return
	}

	h.announce(c, groupID, GroupMessagesTable, realtime.OpDelete, messageID)
	emitAudit(c, h.audit, "INFO", "Group message deleted for all")
	c.Status(http.StatusNoContent)
}

// AddMember handles POST /groups/:group_id/members.
func (h *GroupHandler) AddMember(c *gin.Context) {
	groupID, ok := intParam(c, "group_id", "group")
	if !ok {
		return
	}
	if _, ok := h.require(c, groupID, c.GetInt("userID"), permissions.AddMember); !ok {
		return
	}

	var req struct {
		UserID int `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.groupRepo.AddMember(c.Request.Context(), groupID, req.UserID, models.GroupMember); err != nil {
		if errors.Is(err, repositories.ErrAlreadyMember) {
			c.JSON(http.StatusConflict, gin.H{"error": "already a member"})
			return
		}
		h.repoError(c, err, "could not add member")
		return
	}

	h.announce(c, groupID, GroupMembersTable, realtime.OpInsert, req.UserID)
	auditAction(c, h.audit, "group_member_added", map[string]any{"group_id": groupID, "member_id": req.UserID})
	c.Status(http.StatusNoContent)
}

// RemoveMember handles DELETE /groups/:group_id/members/:user_id. The
// removed member's open sessions receive a kick.
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	groupID, ok := intParam(c, "group_id", "group")
	if !ok {
		return
	}
	targetID, ok := intParam(c, "user_id", "user")
	if !ok {
		return
	}
	actorID := c.GetInt("userID")
	if targetID == actorID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "use leave to exit a group"})
		return
	}

	actorRole, ok := h.require(c, groupID, actorID, permissions.RemoveMember)
	if !ok {
		return
	}
	targetRole, err := h.groupRepo.MemberRole(c.Request.Context(), groupID, targetID)
	if err != nil {
		h.repoError(c, err, "could not load member")
		return
	}
	if !h.policy.CanRemove(actorRole, targetRole) {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot remove this member"})
		return
	}

	if err := h.groupRepo.RemoveMember(c.Request.Context(), groupID, targetID); err != nil {
		h.repoError(c, err, "could not remove member")
		return
	}

	h.announce(c, groupID, GroupMembersTable, realtime.OpDelete, targetID)
	publishControl(c.Request.Context(), h.pub, realtime.GroupTopic(groupID), realtime.ControlKicked, targetID)
	auditAction(c, h.audit, "group_member_removed", map[string]any{"group_id": groupID, "member_id": targetID})
	c.Status(http.StatusNoContent)
}

// ChangeRole handles PUT /groups/:group_id/members/:user_id/role.
func (h *GroupHandler) ChangeRole(c *gin.Context) {
	groupID, ok := intParam(c, "group_id", "group")
	if !ok {
		return
	}
	targetID, ok := intParam(c, "user_id", "user")
	if !ok {
		return
	}

	var req struct {
		Role models.GroupRole `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrInvalidRole.Error()})
		return
	}

	actorID := c.GetInt("userID")
	if _, ok := h.require(c, groupID, actorID, permissions.ChangeRole); !ok {
		return
	}
	if targetID == actorID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot change own role"})
		return
	}

	if err := h.groupRepo.ChangeRole(c.Request.Context(), groupID, targetID, req.Role); err != nil {
		h.repoError(c, err, "could not change role")
		return
	}

	h.announce(c, groupID, GroupMembersTable, realtime.OpUpdate, targetID)
	auditAction(c, h.audit, "group_role_changed", map[string]any{"group_id": groupID, "member_id": targetID, "role": string(req.Role)})
	c.JSON(http.StatusOK, gin.H{"user_id": targetID, "role": req.Role})
}

// UpdateSettings handles PATCH /groups/:group_id.
func (h *GroupHandler) UpdateSettings(c *gin.Context) {
	groupID, ok := intParam(c, "group_id", "group")
	if !ok {
		return
	}
	if _, ok := h.require(c, groupID, c.GetInt("userID"), permissions.EditSettings); !ok {
		return
	}

	var settings models.GroupSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if settings.Name != nil && *settings.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name cannot be empty"})
		return
	}

	group, err := h.groupRepo.UpdateSettings(c.Request.Context(), groupID, settings)
	if err != nil {
		h.repoError(c, err, "could not update group")
		return
	}

	h.announce(c, groupID, GroupsTable, realtime.OpUpdate, groupID)
	c.JSON(http.StatusOK, group)
}

// Dissolve handles DELETE /groups/:group_id.
func (h *GroupHandler) Dissolve(c *gin.Context) {
	groupID, ok := intParam(c, "group_id", "group")
	if !ok {
		return
	}
	if _, ok := h.require(c, groupID, c.GetInt("userID"), permissions.Dissolve); !ok {
		return
	}

	if err := h.groupRepo.Dissolve(c.Request.Context(), groupID); err != nil {
		h.repoError(c, err, "could not dissolve group")
		return
	}

	publishControl(c.Request.Context(), h.pub, realtime.GroupTopic(groupID), realtime.ControlDissolved, 0)
	auditAction(c, h.audit, "group_dissolved", map[string]any{"group_id": groupID})
	c.Status(http.StatusNoContent)
}

// Leave handles POST /groups/:group_id/leave. The last member leaving
// dissolves the group.
func (h *GroupHandler) Leave(c *gin.Context) {
	groupID, ok := intParam(c, "group_id", "group")
	if !ok {
		return
	}
	userID := c.GetInt("userID")
	if _, ok := h.require(c, groupID, userID, permissions.Leave); !ok {
		return
	}

	dissolved, err := h.groupRepo.Leave(c.Request.Context(), groupID, userID)
	if err != nil {
		h.repoError(c, err, "could not leave group")
		return
	}

	if dissolved {
		publishControl(c.Request.Context(), h.pub, realtime.GroupTopic(groupID), realtime.ControlDissolved, 0)
	} else {
		h.announce(c, groupID, GroupMembersTable, realtime.OpDelete, userID)
	}
	c.JSON(http.StatusOK, gin.H{"dissolved": dissolved})
}

func (h *GroupHandler) memberRole(c *gin.Context, groupID, userID int) (models.GroupRole, bool) {
	role, err := h.groupRepo.MemberRole(c.Request.Context(), groupID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotMember) {
			emitAudit(c, h.audit, "ERROR", "not allowed")
			c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
			return "", false
		}
		emitAudit(c, h.audit, "ERROR", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return "", false
	}
	return role, true
}

func (h *GroupHandler) require(c *gin.Context, groupID, userID int, act permissions.Action) (models.GroupRole, bool) {
	role, ok := h.memberRole(c, groupID, userID)
	if !ok {
		return "", false
	}
	if err := h.policy.Check(role, act); err != nil {
		emitAudit(c, h.audit, "ERROR", "not allowed to "+string(act))
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
		return "", false
	}
	return role, true
}

func (h *GroupHandler) loadMessage(c *gin.Context, groupID, messageID int) (models.GroupMessage, bool) {
	msg, err := h.messageRepo.GetGroupMessage(c.Request.Context(), messageID)
	if err != nil {
		h.repoError(c, err, "message not found")
		return models.GroupMessage{}, false
	}
	if msg.GroupID != groupID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message does not belong to group"})
		return models.GroupMessage{}, false
	}
	return msg, true
}

func (h *GroupHandler) repoError(c *gin.Context, err error, msg string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repositories.ErrMessageNotFound),
		errors.Is(err, repositories.ErrGroupNotFound),
		errors.Is(err, repositories.ErrNotMember):
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": msg})
}

func (h *GroupHandler) announce(c *gin.Context, groupID int, table string, op realtime.Op, recordID int) {
	publishChange(c.Request.Context(), h.pub, realtime.GroupTopic(groupID), realtime.Change{
		Table:      table,
		Op:         op,
		ResourceID: groupID,
		RecordID:   recordID,
		ActorID:    c.GetInt("userID"),
	})
}

func parseGroupIDs(c *gin.Context) (int, int, bool) {
	groupID, ok := intParam(c, "group_id", "group")
	if !ok {
		return 0, 0, false
	}
	msgID, ok := intParam(c, "message_id", "message")
	if !ok {
		return 0, 0, false
	}
	return groupID, msgID, true
}
