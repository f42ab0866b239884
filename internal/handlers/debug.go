package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"social-service/internal/realtime"
	"social-service/internal/telemetry"
)

// RegisterDebugRoutes mounts endpoints for exercising the audit and realtime
// pipelines by hand. They are off unless enabled.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, pub realtime.Publisher, enabled bool) {
	if !enabled {
		return
	}
	zap.L().Warn("debug_routes_enabled")

	debug := router.Group("/debug")
	debug.POST("/audit", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		level := c.DefaultQuery("level", "INFO")
		emitAudit(c, emitter, level, c.DefaultQuery("text", "audit test"))
		c.JSON(http.StatusOK, gin.H{"status": "ok", "level": level})
	})

	// Sends an arbitrary broadcast so websocket clients can be checked
	// without a second user.
	debug.POST("/broadcast/:topic/:event", func(c *gin.Context) {
		var payload json.RawMessage
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
		msg, err := realtime.NewBroadcast(c.Param("topic"), c.Param("event"), payload)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
			return
		}
		if err := pub.Publish(c.Request.Context(), msg.Topic, msg); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "could not publish"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"topic": msg.Topic, "event": c.Param("event")})
	})
}
