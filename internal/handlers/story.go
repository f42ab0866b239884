package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"social-service/internal/models"
	"social-service/internal/repositories"
	"social-service/internal/stories"
)

// StoryHandler serves ephemeral stories.
type StoryHandler struct {
	repo     repositories.StoryRepository
	profiles repositories.ProfileRepository
	now      func() time.Time
}

func NewStoryHandler(repo repositories.StoryRepository, profiles repositories.ProfileRepository) *StoryHandler {
	return &StoryHandler{repo: repo, profiles: profiles, now: time.Now}
}

// CreateStory handles POST /stories. Stories expire 24h after creation.
func (h *StoryHandler) CreateStory(c *gin.Context) {
	var req struct {
		MediaURL   string            `json:"media_url" binding:"required"`
		MediaType  models.StoryMedia `json:"media_type" binding:"required"`
		DurationMS *int              `json:"duration_ms"`
		Caption    string            `json:"caption"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.MediaType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid media type"})
		return
	}
	if req.DurationMS != nil && *req.DurationMS <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "duration must be positive"})
		return
	}

	story, err := h.repo.CreateStory(c.Request.Context(), models.Story{
		UserID:     c.GetInt("userID"),
		MediaURL:   req.MediaURL,
		MediaType:  req.MediaType,
		DurationMS: req.DurationMS,
		Caption:    req.Caption,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create story"})
		return
	}
	c.JSON(http.StatusCreated, story)
}

// Feed handles GET /stories.
func (h *StoryHandler) Feed(c *gin.Context) {
	groups, err := stories.Feed(c.Request.Context(), h.repo, h.profiles, c.GetInt("userID"), h.now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stories"})
		return
	}
	if groups == nil {
		groups = []models.UserStories{}
	}
	c.JSON(http.StatusOK, gin.H{"stories": groups})
}

// MarkViewed handles POST /stories/:story_id/view.
func (h *StoryHandler) MarkViewed(c *gin.Context) {
	story, ok := h.load(c)
	if !ok {
		return
	}
	userID := c.GetInt("userID")
	if story.UserID != userID {
		if err := h.repo.MarkViewed(c.Request.Context(), story.ID, userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not record view"})
			return
		}
	}
	c.Status(http.StatusNoContent)
}

// Viewers handles GET /stories/:story_id/viewers (owner only).
func (h *StoryHandler) Viewers(c *gin.Context) {
	story, ok := h.load(c)
	if !ok {
		return
	}
	if story.UserID != c.GetInt("userID") {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the owner can see viewers"})
		return
	}
	views, err := h.repo.Viewers(c.Request.Context(), story.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load viewers"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"viewers": views})
}

// React handles POST /stories/:story_id/reactions.
func (h *StoryHandler) React(c *gin.Context) {
	story, ok := h.load(c)
	if !ok {
		return
	}
	var req struct {
		Emoji string `json:"emoji" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Emoji) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "emoji is required"})
		return
	}

	reaction, err := h.repo.React(c.Request.Context(), story.ID, c.GetInt("userID"), req.Emoji)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not react"})
		return
	}
	c.JSON(http.StatusCreated, reaction)
}

// DeleteStory handles DELETE /stories/:story_id.
func (h *StoryHandler) DeleteStory(c *gin.Context) {
	storyID, ok := intParam(c, "story_id", "story")
	if !ok {
		return
	}
	if err := h.repo.DeleteStory(c.Request.Context(), storyID, c.GetInt("userID")); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrStoryNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not delete story"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *StoryHandler) load(c *gin.Context) (models.Story, bool) {
	storyID, ok := intParam(c, "story_id", "story")
	if !ok {
		return models.Story{}, false
	}
	story, err := h.repo.GetStory(c.Request.Context(), storyID)
	if err == nil && story.Expired(h.now()) {
		err = repositories.ErrStoryNotFound
	}
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrStoryNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "story not found"})
		return models.Story{}, false
	}
	return story, true
}
