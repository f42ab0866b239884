package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-service/internal/realtime"
)

func TestDebugRoutesDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterDebugRoutes(r, nil, realtime.NewMemory(), false)

	w := serve(r, http.MethodPost, "/debug/audit", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDebugAuditWithoutEmitter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterDebugRoutes(r, nil, realtime.NewMemory(), true)

	w := serve(r, http.MethodPost, "/debug/audit", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDebugBroadcastReachesSubscribers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	broker := realtime.NewMemory()
	defer broker.Close()
	r := gin.New()
	RegisterDebugRoutes(r, nil, broker, true)

	sub, err := broker.Subscribe(context.Background(), "live:3")
	require.NoError(t, err)
	defer sub.Close()

	w := serve(r, http.MethodPost, "/debug/broadcast/live:3/comment", `{"text":"hi"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	select {
	case msg := <-sub.C:
		assert.Equal(t, realtime.KindBroadcast, msg.Kind)
		assert.Equal(t, "comment", msg.Event)
		assert.JSONEq(t, `{"text":"hi"}`, string(msg.Payload))
	case <-time.After(time.Second):
		t.Fatal("broadcast not delivered")
	}

	w = serve(r, http.MethodPost, "/debug/broadcast/live:3/comment", `{`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
