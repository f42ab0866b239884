package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"social-service/internal/mocks"
	"social-service/internal/models"
	"social-service/internal/repositories"
)

var storyCreated = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func setupStoryRouter(handler *StoryHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.POST("/stories", handler.CreateStory)
	r.GET("/stories", handler.Feed)
	r.POST("/stories/:story_id/view", handler.MarkViewed)
	r.GET("/stories/:story_id/viewers", handler.Viewers)
	r.POST("/stories/:story_id/reactions", handler.React)
	r.DELETE("/stories/:story_id", handler.DeleteStory)
	return r
}

func storyBy(id, owner int) models.Story {
	return models.Story{
		ID:        id,
		UserID:    owner,
		MediaURL:  "https://cdn.example.com/s.jpg",
		MediaType: models.StoryImage,
		CreatedAt: storyCreated,
		ExpiresAt: storyCreated.Add(models.StoryLifetime),
	}
}

func TestCreateStoryValidatesMedia(t *testing.T) {
	repo := new(mocks.StoryRepositoryMock)
	router := setupStoryRouter(NewStoryHandler(repo, nil))

	rec := serve(router, http.MethodPost, "/stories", `{"media_url":"x.gif","media_type":"gif"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, http.MethodPost, "/stories", `{"media_url":"x.mp4","media_type":"video","duration_ms":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	repo.On("CreateStory", mock.Anything, mock.MatchedBy(func(s models.Story) bool {
		return s.UserID == 1 && s.MediaType == models.StoryVideo && s.DurationMS != nil && *s.DurationMS == 8000
	})).Return(storyBy(3, 1), nil).Once()

	rec = serve(router, http.MethodPost, "/stories", `{"media_url":"x.mp4","media_type":"video","duration_ms":8000}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	repo.AssertExpectations(t)
}

func TestStoryVisibleUntilLifetimeEnds(t *testing.T) {
	repo := new(mocks.StoryRepositoryMock)
	handler := NewStoryHandler(repo, nil)
	router := setupStoryRouter(handler)

	repo.On("GetStory", mock.Anything, 4).Return(storyBy(4, 2), nil)
	repo.On("MarkViewed", mock.Anything, 4, 1).Return(nil).Once()

	handler.now = func() time.Time { return storyCreated.Add(23*time.Hour + 59*time.Minute) }
	rec := serve(router, http.MethodPost, "/stories/4/view", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	handler.now = func() time.Time { return storyCreated.Add(24 * time.Hour) }
	rec = serve(router, http.MethodPost, "/stories/4/view", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = serve(router, http.MethodPost, "/stories/4/reactions", `{"emoji":"🔥"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	repo.AssertNumberOfCalls(t, "MarkViewed", 1)
	repo.AssertNotCalled(t, "React", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOwnViewIsNotRecorded(t *testing.T) {
	repo := new(mocks.StoryRepositoryMock)
	handler := NewStoryHandler(repo, nil)
	handler.now = func() time.Time { return storyCreated.Add(time.Hour) }
	router := setupStoryRouter(handler)

	repo.On("GetStory", mock.Anything, 5).Return(storyBy(5, 1), nil).Once()

	rec := serve(router, http.MethodPost, "/stories/5/view", "")

	require.Equal(t, http.StatusNoContent, rec.Code)
	repo.AssertNotCalled(t, "MarkViewed", mock.Anything, mock.Anything, mock.Anything)
}

func TestViewersAreOwnerOnly(t *testing.T) {
	repo := new(mocks.StoryRepositoryMock)
	handler := NewStoryHandler(repo, nil)
	handler.now = func() time.Time { return storyCreated.Add(time.Hour) }
	router := setupStoryRouter(handler)

	repo.On("GetStory", mock.Anything, 6).Return(storyBy(6, 2), nil).Once()
	rec := serve(router, http.MethodGet, "/stories/6/viewers", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	repo.AssertNotCalled(t, "Viewers", mock.Anything, mock.Anything)

	repo.On("GetStory", mock.Anything, 7).Return(storyBy(7, 1), nil).Once()
	repo.On("Viewers", mock.Anything, 7).Return([]models.StoryView{{StoryID: 7, ViewerID: 2}, {StoryID: 7, ViewerID: 3}}, nil).Once()
	rec = serve(router, http.MethodGet, "/stories/7/viewers", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Viewers []models.StoryView `json:"viewers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Viewers, 2)
}

func TestReactToStory(t *testing.T) {
	repo := new(mocks.StoryRepositoryMock)
	handler := NewStoryHandler(repo, nil)
	handler.now = func() time.Time { return storyCreated.Add(time.Hour) }
	router := setupStoryRouter(handler)

	repo.On("GetStory", mock.Anything, 8).Return(storyBy(8, 2), nil)
	repo.On("React", mock.Anything, 8, 1, "❤️").Return(models.StoryReaction{ID: 1, StoryID: 8, UserID: 1, Emoji: "❤️"}, nil).Once()

	rec := serve(router, http.MethodPost, "/stories/8/reactions", `{"emoji":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, http.MethodPost, "/stories/8/reactions", `{"emoji":"❤️"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	repo.AssertExpectations(t)
}

func TestDeleteStory(t *testing.T) {
	repo := new(mocks.StoryRepositoryMock)
	router := setupStoryRouter(NewStoryHandler(repo, nil))

	repo.On("DeleteStory", mock.Anything, 9, 1).Return(nil).Once()
	repo.On("DeleteStory", mock.Anything, 10, 1).Return(repositories.ErrStoryNotFound).Once()

	assert.Equal(t, http.StatusNoContent, serve(router, http.MethodDelete, "/stories/9", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodDelete, "/stories/10", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodDelete, "/stories/abc", "").Code)
	repo.AssertExpectations(t)
}

func TestStoryFeedPutsOwnStoriesFirst(t *testing.T) {
	repo := new(mocks.StoryRepositoryMock)
	handler := NewStoryHandler(repo, nil)
	handler.now = func() time.Time { return storyCreated.Add(time.Hour) }
	router := setupStoryRouter(handler)

	repo.On("ActiveStories", mock.Anything, mock.Anything).Return([]models.Story{storyBy(1, 2), storyBy(2, 1), storyBy(3, 2)}, nil).Once()

	rec := serve(router, http.MethodGet, "/stories", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Stories []models.UserStories `json:"stories"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Stories, 2)
	assert.Equal(t, 1, body.Stories[0].UserID)
	assert.Equal(t, 2, body.Stories[1].UserID)
	assert.Len(t, body.Stories[1].Stories, 2)
}
