package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"social-service/internal/models"
	"social-service/internal/repositories"
)

// ProfileHandler serves user profiles.
type ProfileHandler struct {
	repo repositories.ProfileRepository
}

func NewProfileHandler(repo repositories.ProfileRepository) *ProfileHandler {
	return &ProfileHandler{repo: repo}
}

// Me handles GET /profile.
func (h *ProfileHandler) Me(c *gin.Context) {
	profile, err := h.repo.GetProfile(c.Request.Context(), c.GetInt("userID"))
	if err != nil {
		profileError(c, err, "profile not found")
		return
	}
	c.JSON(http.StatusOK, profile)
}

// ByUsername handles GET /profiles/:username.
func (h *ProfileHandler) ByUsername(c *gin.Context) {
	profile, err := h.repo.GetByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		profileError(c, err, "profile not found")
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Update handles PATCH /profile.
func (h *ProfileHandler) Update(c *gin.Context) {
	var upd models.ProfileUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	profile, err := h.repo.UpdateProfile(c.Request.Context(), c.GetInt("userID"), upd)
	if err != nil {
		profileError(c, err, "could not update profile")
		return
	}
	c.JSON(http.StatusOK, profile)
}

func profileError(c *gin.Context, err error, msg string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repositories.ErrProfileNotFound):
		status = http.StatusNotFound
	case errors.Is(err, repositories.ErrUsernameTaken):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": msg})
}
