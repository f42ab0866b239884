package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"social-service/internal/calls"
	"social-service/internal/models"
	"social-service/internal/permissions"
	"social-service/internal/repositories"
	"social-service/internal/telemetry"
)

// CircleHandler serves circles, their members and posts.
type CircleHandler struct {
	repo  repositories.CircleRepository
	calls *calls.Manager
	audit *telemetry.AuditEmitter
}

func NewCircleHandler(repo repositories.CircleRepository, manager *calls.Manager, audit *telemetry.AuditEmitter) *CircleHandler {
	return &CircleHandler{repo: repo, calls: manager, audit: audit}
}

// CreateCircle handles POST /circles. The creator becomes owner.
func (h *CircleHandler) CreateCircle(c *gin.Context) {
	var req struct {
		Name        string  `json:"name" binding:"required"`
		Description string  `json:"description"`
		ImageURL    *string `json:"image_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	circle, err := h.repo.CreateCircle(c.Request.Context(), c.GetInt("userID"), req.Name, req.Description, req.ImageURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create circle"})
		return
	}
	c.JSON(http.StatusCreated, circle)
}

// ListCircles handles GET /circles.
func (h *CircleHandler) ListCircles(c *gin.Context) {
	circles, err := h.repo.ListCirclesForUser(c.Request.Context(), c.GetInt("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load circles"})
		return
	}
	if circles == nil {
		circles = []models.Circle{}
	}
	c.JSON(http.StatusOK, gin.H{"circles": circles})
}

// GetCircle handles GET /circles/:circle_id.
func (h *CircleHandler) GetCircle(c *gin.Context) {
	circleID, me, ok := h.member(c)
	if !ok {
		return
	}
	circle, err := h.repo.GetCircle(c.Request.Context(), circleID)
	if err != nil {
		h.repoError(c, err, "circle not found")
		return
	}
	members, err := h.repo.ListMembers(c.Request.Context(), circleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load members"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"circle": circle, "members": members, "me": me})
}

// Invite handles POST /circles/:circle_id/members.
func (h *CircleHandler) Invite(c *gin.Context) {
	circleID, me, ok := h.member(c)
	if !ok {
		return
	}
	if !permissions.CircleCan(me, permissions.CircleInvite) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to invite"})
		return
	}
	var req struct {
		UserID int `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	member, err := h.repo.AddMember(c.Request.Context(), circleID, req.UserID, models.CircleRoleMember)
	if err != nil {
		if errors.Is(err, repositories.ErrAlreadyMember) {
			c.JSON(http.StatusConflict, gin.H{"error": "already a member"})
			return
		}
		h.repoError(c, err, "could not invite member")
		return
	}
	c.JSON(http.StatusCreated, member)
}

// UpdateMember handles PUT /circles/:circle_id/members/:user_id.
func (h *CircleHandler) UpdateMember(c *gin.Context) {
	circleID, me, ok := h.member(c)
	if !ok {
		return
	}
	target, ok := h.target(c, circleID)
	if !ok {
		return
	}
	if !permissions.CanManageCircleMember(me, target) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to manage this member"})
		return
	}

	var req struct {
		Role models.CircleRole `json:"role"`
		models.CirclePermissions
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Role == "" {
		req.Role = target.Role
	}
	if !req.Role.Valid() || req.Role == models.CircleOwner {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}
	if req.Role == models.CircleAdmin && me.Role != models.CircleOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the owner can promote admins"})
		return
	}

	updated, err := h.repo.UpdatePermissions(c.Request.Context(), circleID, target.UserID, req.Role, req.CirclePermissions)
	if err != nil {
		h.repoError(c, err, "could not update member")
		return
	}
	auditAction(c, h.audit, "circle_member_updated", map[string]any{"circle_id": circleID, "member_id": target.UserID, "role": string(req.Role)})
	c.JSON(http.StatusOK, updated)
}

// RemoveMember handles DELETE /circles/:circle_id/members/:user_id. Members
// may remove themselves; the owner cannot leave.
func (h *CircleHandler) RemoveMember(c *gin.Context) {
	circleID, me, ok := h.member(c)
	if !ok {
		return
	}
	target, ok := h.target(c, circleID)
	if !ok {
		return
	}
	self := target.UserID == me.UserID
	switch {
	case self && me.Role == models.CircleOwner:
		c.JSON(http.StatusBadRequest, gin.H{"error": "owner cannot leave the circle"})
		return
	case !self && !permissions.CanManageCircleMember(me, target):
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to remove this member"})
		return
	}

	if err := h.repo.RemoveMember(c.Request.Context(), circleID, target.UserID); err != nil {
		h.repoError(c, err, "could not remove member")
		return
	}
	c.Status(http.StatusNoContent)
}

// CreatePost handles POST /circles/:circle_id/posts.
func (h *CircleHandler) CreatePost(c *gin.Context) {
	circleID, me, ok := h.member(c)
	if !ok {
		return
	}
	if !permissions.CircleCan(me, permissions.CirclePost) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to post"})
		return
	}
	var req struct {
		Content  string  `json:"content"`
		MediaURL *string `json:"media_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Content == "" && (req.MediaURL == nil || *req.MediaURL == "") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "post is empty"})
		return
	}

	post, err := h.repo.CreatePost(c.Request.Context(), circleID, me.UserID, req.Content, req.MediaURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create post"})
		return
	}
	c.JSON(http.StatusCreated, post)
}

// ListPosts handles GET /circles/:circle_id/posts.
func (h *CircleHandler) ListPosts(c *gin.Context) {
	circleID, _, ok := h.member(c)
	if !ok {
		return
	}
	posts, err := h.repo.ListPosts(c.Request.Context(), circleID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load posts"})
		return
	}
	if posts == nil {
		posts = []models.CirclePost{}
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// DeletePost handles DELETE /circles/:circle_id/posts/:post_id (author or
// can_manage_posts).
func (h *CircleHandler) DeletePost(c *gin.Context) {
	circleID, me, ok := h.member(c)
	if !ok {
		return
	}
	postID, ok := intParam(c, "post_id", "post")
	if !ok {
		return
	}
	post, err := h.repo.GetPost(c.Request.Context(), postID)
	if err != nil || post.CircleID != circleID {
		if err == nil {
			err = repositories.ErrPostNotFound
		}
		h.repoError(c, err, "post not found")
		return
	}
	if post.AuthorID != me.UserID && !permissions.CircleCan(me, permissions.CircleManagePosts) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to delete this post"})
		return
	}

	if err := h.repo.DeletePost(c.Request.Context(), postID); err != nil {
		h.repoError(c, err, "could not delete post")
		return
	}
	c.Status(http.StatusNoContent)
}

// StartCall handles POST /circles/:circle_id/call (can_start_calls).
func (h *CircleHandler) StartCall(c *gin.Context) {
	circleID, me, ok := h.member(c)
	if !ok {
		return
	}
	if !permissions.CircleCan(me, permissions.CircleStartCalls) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to start calls"})
		return
	}
	call := h.calls.Start(calls.KindCircle, circleID, me.UserID)
	c.JSON(http.StatusCreated, gin.H{"call": call, "presets": callPresets()})
}

func (h *CircleHandler) member(c *gin.Context) (int, models.CircleMember, bool) {
	circleID, ok := intParam(c, "circle_id", "circle")
	if !ok {
		return 0, models.CircleMember{}, false
	}
	me, err := h.repo.GetMember(c.Request.Context(), circleID, c.GetInt("userID"))
	if err != nil {
		if errors.Is(err, repositories.ErrNotMember) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a member"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		}
		return 0, models.CircleMember{}, false
	}
	return circleID, me, true
}

func (h *CircleHandler) target(c *gin.Context, circleID int) (models.CircleMember, bool) {
	userID, ok := intParam(c, "user_id", "user")
	if !ok {
		return models.CircleMember{}, false
	}
	target, err := h.repo.GetMember(c.Request.Context(), circleID, userID)
	if err != nil {
		h.repoError(c, err, "member not found")
		return models.CircleMember{}, false
	}
	return target, true
}

func (h *CircleHandler) repoError(c *gin.Context, err error, msg string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repositories.ErrCircleNotFound),
		errors.Is(err, repositories.ErrPostNotFound),
		errors.Is(err, repositories.ErrNotMember):
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": msg})
}
