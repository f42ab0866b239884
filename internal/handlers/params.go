package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"social-service/internal/observability"
	"social-service/internal/realtime"
)

func intParam(c *gin.Context, name, label string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + label + " id"})
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	if raw := c.Query(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 {
			return v
		}
	}
	return fallback
}

// publishChange announces a stored mutation. The row is already committed,
// so a failed publish is logged and the request still succeeds.
func publishChange(ctx context.Context, pub realtime.Publisher, topic string, change realtime.Change) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, topic, realtime.NewChange(topic, change)); err != nil {
		zap.L().Warn("realtime_publish_failed",
			zap.String("topic", topic),
			zap.String("table", change.Table),
			zap.String("op", string(change.Op)),
			zap.Error(err),
		)
		return
	}
	observability.IncRealtimePublished(string(realtime.KindChange))
}

func publishControl(ctx context.Context, pub realtime.Publisher, topic, event string, targetUserID int) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, topic, realtime.NewControl(topic, event, targetUserID)); err != nil {
		zap.L().Warn("realtime_publish_failed", zap.String("topic", topic), zap.String("event", event), zap.Error(err))
		return
	}
	observability.IncRealtimePublished(string(realtime.KindControl))
}
