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

func setupReelRouter(repo *mocks.ReelRepositoryMock) *gin.Engine {
	handler := NewReelHandler(repo)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.POST("/reels", handler.CreateReel)
	r.GET("/reels", handler.Feed)
	r.POST("/reels/:reel_id/like", handler.ToggleLike)
	r.POST("/reels/:reel_id/view", handler.AddView)
	r.DELETE("/reels/:reel_id", handler.DeleteReel)
	return r
}

func TestCreateReelRequiresVideo(t *testing.T) {
	repo := new(mocks.ReelRepositoryMock)
	router := setupReelRouter(repo)

	rec := serve(router, http.MethodPost, "/reels", `{"caption":"no video"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	repo.On("CreateReel", mock.Anything, 1, "https://cdn.example.com/r.mp4", "sunset").Return(models.Reel{ID: 4, UserID: 1}, nil).Once()
	rec = serve(router, http.MethodPost, "/reels", `{"video_url":"https://cdn.example.com/r.mp4","caption":"sunset"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	repo.AssertExpectations(t)
}

func TestReelFeedPagination(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		limit  int
		offset int
	}{
		{"defaults", "", 20, 0},
		{"explicit page", "?limit=10&offset=30", 10, 30},
		{"capped", "?limit=500", 50, 0},
		{"zero means max", "?limit=0", 50, 0},
		{"garbage falls back", "?limit=x&offset=-4", 20, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := new(mocks.ReelRepositoryMock)
			router := setupReelRouter(repo)
			repo.On("Feed", mock.Anything, 1, tc.limit, tc.offset).Return([]models.Reel{{ID: 1}}, nil).Once()

			rec := serve(router, http.MethodGet, "/reels"+tc.query, "")
			require.Equal(t, http.StatusOK, rec.Code)

			var body struct {
				Reels  []models.Reel `json:"reels"`
				Limit  int           `json:"limit"`
				Offset int           `json:"offset"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.limit, body.Limit)
			assert.Equal(t, tc.offset, body.Offset)
			assert.Len(t, body.Reels, 1)
			repo.AssertExpectations(t)
		})
	}
}

func TestReelFeedEmptyIsArray(t *testing.T) {
	repo := new(mocks.ReelRepositoryMock)
	router := setupReelRouter(repo)
	repo.On("Feed", mock.Anything, 1, 20, 0).Return(nil, nil).Once()

	rec := serve(router, http.MethodGet, "/reels", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reels":[]`)
}

func TestToggleLikeFlipsState(t *testing.T) {
	repo := new(mocks.ReelRepositoryMock)
	router := setupReelRouter(repo)
	repo.On("ToggleLike", mock.Anything, 3, 1).Return(true, 5, nil).Once()
	repo.On("ToggleLike", mock.Anything, 3, 1).Return(false, 4, nil).Once()

	var body struct {
		Liked     bool `json:"liked"`
		LikeCount int  `json:"like_count"`
	}
	rec := serve(router, http.MethodPost, "/reels/3/like", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Liked)
	assert.Equal(t, 5, body.LikeCount)

	rec = serve(router, http.MethodPost, "/reels/3/like", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Liked)
	assert.Equal(t, 4, body.LikeCount)
	repo.AssertExpectations(t)
}

func TestToggleLikeUnknownReel(t *testing.T) {
	repo := new(mocks.ReelRepositoryMock)
	router := setupReelRouter(repo)
	repo.On("ToggleLike", mock.Anything, 99, 1).Return(false, 0, repositories.ErrReelNotFound).Once()

	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodPost, "/reels/99/like", "").Code)
}

func TestAddViewReturnsCount(t *testing.T) {
	repo := new(mocks.ReelRepositoryMock)
	router := setupReelRouter(repo)
	repo.On("AddView", mock.Anything, 3).Return(12, nil).Once()

	rec := serve(router, http.MethodPost, "/reels/3/view", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"view_count":12}`, rec.Body.String())
}

func TestDeleteReelIsOwnerScoped(t *testing.T) {
	repo := new(mocks.ReelRepositoryMock)
	router := setupReelRouter(repo)
	repo.On("DeleteReel", mock.Anything, 3, 1).Return(nil).Once()
	repo.On("DeleteReel", mock.Anything, 4, 1).Return(repositories.ErrReelNotFound).Once()

	assert.Equal(t, http.StatusNoContent, serve(router, http.MethodDelete, "/reels/3", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodDelete, "/reels/4", "").Code)
	repo.AssertExpectations(t)
}
