package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"social-service/internal/mocks"
	"social-service/internal/models"
	"social-service/internal/repositories"
)

func setupProfileRouter(repo *mocks.ProfileRepositoryMock) *gin.Engine {
	handler := NewProfileHandler(repo)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.GET("/profile", handler.Me)
	r.PATCH("/profile", handler.Update)
	r.GET("/profiles/:username", handler.ByUsername)
	return r
}

func TestProfileMe(t *testing.T) {
	repo := new(mocks.ProfileRepositoryMock)
	router := setupProfileRouter(repo)
	repo.On("GetProfile", mock.Anything, 1).Return(models.Profile{ID: 1, Username: "ann", Role: "user"}, nil).Once()

	rec := serve(router, http.MethodGet, "/profile", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var p models.Profile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "ann", p.Username)
}

func TestProfileByUsernameNotFound(t *testing.T) {
	repo := new(mocks.ProfileRepositoryMock)
	router := setupProfileRouter(repo)
	repo.On("GetByUsername", mock.Anything, "ghost").Return(models.Profile{}, repositories.ErrProfileNotFound).Once()

	rec := serve(router, http.MethodGet, "/profiles/ghost", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProfileUpdatePassesOnlyGivenFields(t *testing.T) {
	repo := new(mocks.ProfileRepositoryMock)
	router := setupProfileRouter(repo)
	repo.On("UpdateProfile", mock.Anything, 1, mock.MatchedBy(func(u models.ProfileUpdate) bool {
		return u.DisplayName != nil && *u.DisplayName == "Ann B" && u.AvatarURL == nil && u.BannerURL == nil
	})).Return(models.Profile{ID: 1, Username: "ann", DisplayName: "Ann B"}, nil).Once()

	rec := serve(router, http.MethodPatch, "/profile", `{"display_name":"Ann B"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	repo.AssertExpectations(t)
}

func TestProfileUpdateErrors(t *testing.T) {
	repo := new(mocks.ProfileRepositoryMock)
	router := setupProfileRouter(repo)

	rec := serve(router, http.MethodPatch, "/profile", `{"display_name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	repo.On("UpdateProfile", mock.Anything, 1, mock.Anything).Return(models.Profile{}, repositories.ErrUsernameTaken).Once()
	rec = serve(router, http.MethodPatch, "/profile", `{"display_name":"taken"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
