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
)

type staticConns map[string]int

func (s staticConns) Counts() map[string]int { return s }

type staticUsage map[string]int64

func (s staticUsage) Usage() (map[string]int64, error) { return s, nil }

type staticCalls int

func (s staticCalls) Active() int { return int(s) }

func TestDashboardCombinesSources(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stats := new(mocks.StatsRepositoryMock)
	stats.On("Dashboard", mock.Anything, mock.Anything).Return(models.DashboardStats{Profiles: 10, OpenTickets: 2}, nil).Once()

	handler := NewAdminHandler(stats,
		staticConns{"chat": 3, "live": 1},
		staticUsage{"avatars": 2048, "reels": 3_000_000},
		staticCalls(2),
	)
	r := gin.New()
	r.GET("/admin/dashboard", handler.Dashboard)

	rec := serve(r, http.MethodGet, "/admin/dashboard", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Stats       models.DashboardStats `json:"stats"`
		Connections map[string]int        `json:"connections"`
		ActiveCalls int                   `json:"active_calls"`
		Storage     struct {
			Buckets    []bucketUsage `json:"buckets"`
			TotalBytes int64         `json:"total_bytes"`
			TotalHuman string        `json:"total_human"`
		} `json:"storage"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 10, resp.Stats.Profiles)
	assert.Equal(t, 3, resp.Connections["chat"])
	assert.Equal(t, 2, resp.ActiveCalls)
	require.Len(t, resp.Storage.Buckets, 2)
	assert.Equal(t, "avatars", resp.Storage.Buckets[0].Bucket)
	assert.Equal(t, "2.0 kB", resp.Storage.Buckets[0].Human)
	assert.Equal(t, int64(3_002_048), resp.Storage.TotalBytes)
	assert.Equal(t, "3.0 MB", resp.Storage.TotalHuman)
	stats.AssertExpectations(t)
}

func TestDashboardStatsFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	stats := new(mocks.StatsRepositoryMock)
	stats.On("Dashboard", mock.Anything, mock.Anything).Return(nil, assert.AnError).Once()

	r := gin.New()
	r.GET("/admin/dashboard", NewAdminHandler(stats, nil, nil, nil).Dashboard)

	rec := serve(r, http.MethodGet, "/admin/dashboard", "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
