package handlers

import (
	"context"
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
	"social-service/internal/realtime"
	"social-service/internal/repositories"
)

func setupLiveRouter(repo *mocks.LiveRepositoryMock, broker *realtime.Memory) *gin.Engine {
	handler := NewLiveHandler(repo, broker, broker)
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.POST("/live", handler.StartStream)
	r.GET("/live", handler.ListLive)
	r.GET("/live/:stream_id", handler.GetStream)
	r.POST("/live/:stream_id/end", handler.EndStream)
	return r
}

func TestStartStreamReturnsKeyOnce(t *testing.T) {
	repo := new(mocks.LiveRepositoryMock)
	router := setupLiveRouter(repo, realtime.NewMemory())

	rec := serve(router, http.MethodPost, "/live", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var key string
	repo.On("StartStream", mock.Anything, 1, "cooking", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { key = args.String(3) }).
		Return(models.LiveStream{ID: 2, HostID: 1, StreamKey: "secret", Status: models.LiveOn}, nil).Once()

	rec = serve(router, http.MethodPost, "/live", `{"title":"cooking"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, key)

	var body struct {
		Stream    map[string]any `json:"stream"`
		StreamKey string         `json:"stream_key"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotContains(t, body.Stream, "stream_key")
	assert.Equal(t, "secret", body.StreamKey)
	repo.AssertExpectations(t)
}

func TestGetStreamCountsDistinctViewers(t *testing.T) {
	ctx := context.Background()
	broker := realtime.NewMemory()
	repo := new(mocks.LiveRepositoryMock)
	router := setupLiveRouter(repo, broker)
	topic := realtime.LiveTopic(2)

	repo.On("GetStream", mock.Anything, 2).Return(models.LiveStream{ID: 2, HostID: 1, Status: models.LiveOn}, nil)
	require.NoError(t, broker.SetPresence(ctx, topic, "conn-host", realtime.PresenceState{"user_id": 1}))
	require.NoError(t, broker.SetPresence(ctx, topic, "conn-a", realtime.PresenceState{"user_id": 5}))
	require.NoError(t, broker.SetPresence(ctx, topic, "conn-b", realtime.PresenceState{"user_id": 5}))
	require.NoError(t, broker.SetPresence(ctx, topic, "conn-c", realtime.PresenceState{"user_id": 6}))

	rec := serve(router, http.MethodGet, "/live/2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stream models.LiveStream
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stream))
	assert.Equal(t, 2, stream.Viewers)

	require.NoError(t, broker.RemovePresence(ctx, topic, "conn-b"))
	rec = serve(router, http.MethodGet, "/live/2", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stream))
	assert.Equal(t, 2, stream.Viewers)
}

func TestEndedStreamReportsNoViewers(t *testing.T) {
	ctx := context.Background()
	broker := realtime.NewMemory()
	repo := new(mocks.LiveRepositoryMock)
	router := setupLiveRouter(repo, broker)

	repo.On("ListLive", mock.Anything).Return([]models.LiveStream{
		{ID: 3, HostID: 2, Status: models.LiveOn},
		{ID: 4, HostID: 2, Status: models.LiveEnded},
	}, nil).Once()
	require.NoError(t, broker.SetPresence(ctx, realtime.LiveTopic(3), "c1", realtime.PresenceState{"user_id": 9}))
	require.NoError(t, broker.SetPresence(ctx, realtime.LiveTopic(4), "c2", realtime.PresenceState{"user_id": 9}))

	rec := serve(router, http.MethodGet, "/live", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Streams []models.LiveStream `json:"streams"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Streams, 2)
	assert.Equal(t, 1, body.Streams[0].Viewers)
	assert.Equal(t, 0, body.Streams[1].Viewers)
}

func TestEndStreamNotifiesViewers(t *testing.T) {
	ctx := context.Background()
	broker := realtime.NewMemory()
	repo := new(mocks.LiveRepositoryMock)
	router := setupLiveRouter(repo, broker)

	sub, err := broker.Subscribe(ctx, realtime.LiveTopic(2))
	require.NoError(t, err)
	defer sub.Close()

	repo.On("EndStream", mock.Anything, 2, 1).Return(models.LiveStream{ID: 2, HostID: 1, Status: models.LiveEnded}, nil).Once()
	repo.On("EndStream", mock.Anything, 3, 1).Return(models.LiveStream{}, repositories.ErrStreamNotFound).Once()

	rec := serve(router, http.MethodPost, "/live/2/end", "")
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case msg := <-sub.C:
		assert.Equal(t, realtime.KindControl, msg.Kind)
		assert.Equal(t, realtime.ControlEnded, msg.Event)
	case <-time.After(time.Second):
		t.Fatal("no ended control message")
	}

	rec = serve(router, http.MethodPost, "/live/3/end", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	select {
	case msg := <-sub.C:
		t.Fatalf("unexpected message %+v", msg)
	default:
	}
	repo.AssertExpectations(t)
}

func TestViewerCount(t *testing.T) {
	state := map[string]realtime.PresenceState{
		"a": {"user_id": float64(3)},
		"b": {"user_id": float64(3)},
		"c": {"user_id": 4},
		"d": {"user_id": 7},
		"e": {},
	}
	assert.Equal(t, 2, ViewerCount(state, 7))
	assert.Equal(t, 0, ViewerCount(nil, 7))
}
