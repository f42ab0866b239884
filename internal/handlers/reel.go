package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"social-service/internal/models"
	"social-service/internal/repositories"
)

const (
	defaultReelPage = 20
	maxReelPage     = 50
)

// ReelHandler serves short videos.
type ReelHandler struct {
	repo repositories.ReelRepository
}

func NewReelHandler(repo repositories.ReelRepository) *ReelHandler {
	return &ReelHandler{repo: repo}
}

// CreateReel handles POST /reels.
func (h *ReelHandler) CreateReel(c *gin.Context) {
	var req struct {
		VideoURL string `json:"video_url" binding:"required"`
		Caption  string `json:"caption"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reel, err := h.repo.CreateReel(c.Request.Context(), c.GetInt("userID"), req.VideoURL, req.Caption)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create reel"})
		return
	}
	c.JSON(http.StatusCreated, reel)
}

// Feed handles GET /reels?limit=&offset=, newest first.
func (h *ReelHandler) Feed(c *gin.Context) {
	limit := queryInt(c, "limit", defaultReelPage)
	if limit == 0 || limit > maxReelPage {
		limit = maxReelPage
	}
	offset := queryInt(c, "offset", 0)

	reels, err := h.repo.Feed(c.Request.Context(), c.GetInt("userID"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load reels"})
		return
	}
	if reels == nil {
		reels = []models.Reel{}
	}
	c.JSON(http.StatusOK, gin.H{"reels": reels, "limit": limit, "offset": offset})
}

// ToggleLike handles POST /reels/:reel_id/like.
func (h *ReelHandler) ToggleLike(c *gin.Context) {
	reelID, ok := intParam(c, "reel_id", "reel")
	if !ok {
		return
	}
	liked, likes, err := h.repo.ToggleLike(c.Request.Context(), reelID, c.GetInt("userID"))
	if err != nil {
		h.repoError(c, err, "could not like reel")
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked, "like_count": likes})
}

// AddView handles POST /reels/:reel_id/view.
func (h *ReelHandler) AddView(c *gin.Context) {
	reelID, ok := intParam(c, "reel_id", "reel")
	if !ok {
		return
	}
	views, err := h.repo.AddView(c.Request.Context(), reelID)
	if err != nil {
		h.repoError(c, err, "could not count view")
		return
	}
	c.JSON(http.StatusOK, gin.H{"view_count": views})
}

// DeleteReel handles DELETE /reels/:reel_id.
func (h *ReelHandler) DeleteReel(c *gin.Context) {
	reelID, ok := intParam(c, "reel_id", "reel")
	if !ok {
		return
	}
	if err := h.repo.DeleteReel(c.Request.Context(), reelID, c.GetInt("userID")); err != nil {
		h.repoError(c, err, "could not delete reel")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ReelHandler) repoError(c *gin.Context, err error, msg string) {
	status := http.StatusInternalServerError
	if errors.Is(err, repositories.ErrReelNotFound) {
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": msg})
}
