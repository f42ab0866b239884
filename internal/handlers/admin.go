package handlers

import (
	"net/http"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"social-service/internal/repositories"
	"social-service/internal/storage"
)

// ConnectionCounter reports open websocket sessions per kind.
type ConnectionCounter interface {
	Counts() map[string]int
}

// UsageSource reports stored bytes per bucket.
type UsageSource interface {
	Usage() (map[string]int64, error)
}

// ActiveCalls reports how many calls are open.
type ActiveCalls interface {
	Active() int
}

// AdminHandler serves the admin dashboard.
type AdminHandler struct {
	stats   repositories.StatsRepository
	conns   ConnectionCounter
	storage UsageSource
	calls   ActiveCalls
	now     func() time.Time
}

func NewAdminHandler(stats repositories.StatsRepository, conns ConnectionCounter, usage UsageSource, calls ActiveCalls) *AdminHandler {
	return &AdminHandler{stats: stats, conns: conns, storage: usage, calls: calls, now: time.Now}
}

type bucketUsage struct {
	Bucket string `json:"bucket"`
	Bytes  int64  `json:"bytes"`
	Human  string `json:"human"`
}

// Dashboard handles GET /admin/dashboard.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	stats, err := h.stats.Dashboard(c.Request.Context(), h.now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load dashboard"})
		return
	}

	resp := gin.H{"stats": stats}
	if h.conns != nil {
		resp["connections"] = h.conns.Counts()
	}
	if h.calls != nil {
		resp["active_calls"] = h.calls.Active()
	}
	if h.storage != nil {
		usage, err := h.storage.Usage()
		if err != nil {
			zap.L().Warn("storage_usage_failed", zap.Error(err))
		} else {
			buckets, total := summarizeUsage(usage)
			resp["storage"] = gin.H{
				"buckets":     buckets,
				"total_bytes": total,
				"total_human": humanize.Bytes(uint64(total)),
			}
		}
	}
	c.JSON(http.StatusOK, resp)
}

func summarizeUsage(usage map[string]int64) ([]bucketUsage, int64) {
	out := make([]bucketUsage, 0, len(usage))
	for bucket, n := range usage {
		out = append(out, bucketUsage{Bucket: bucket, Bytes: n, Human: humanize.Bytes(uint64(n))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Bucket < out[j].Bucket })
	return out, storage.TotalBytes(usage)
}
