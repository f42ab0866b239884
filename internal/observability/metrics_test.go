package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type capturePublisher struct {
	keys    []string
	headers []map[string]string
}

func (p *capturePublisher) PublishJSON(ctx context.Context, routingKey string, message interface{}, headers map[string]string) error {
	p.keys = append(p.keys, routingKey)
	p.headers = append(p.headers, headers)
	return nil
}

func TestHTTPMetricsMiddlewareCountsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(HTTPMetricsMiddleware())
	router.GET("/ping/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/ping/:id", "204"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping/3", nil))

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/ping/:id", "204")))
}

func TestCountersByResult(t *testing.T) {
	before := testutil.ToFloat64(jobRunsTotal.WithLabelValues("story_purge", "error"))
	IncJobRun("story_purge", false)
	assert.Equal(t, before+1, testutil.ToFloat64(jobRunsTotal.WithLabelValues("story_purge", "error")))

	SetActiveCalls(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(activeCalls))
}

func TestPublishEvent(t *testing.T) {
	SetPublisher(nil)
	assert.NoError(t, PublishEvent(context.Background(), "ws.connected", NewEvent("ws", "connected", nil), nil))

	pub := &capturePublisher{}
	SetPublisher(pub)
	defer SetPublisher(nil)

	require.NoError(t, PublishEvent(context.Background(), "ws.connected", NewEvent("ws", "connected", nil), BuildHeaders("req-1", "")))
	assert.Equal(t, []string{"ws.connected"}, pub.keys)
	assert.Equal(t, map[string]string{"x-request-id": "req-1"}, pub.headers[0])
}

func TestSplitFullMethod(t *testing.T) {
	svc, method := splitFullMethod("/grpc.health.v1.Health/Check")
	assert.Equal(t, "grpc.health.v1.Health", svc)
	assert.Equal(t, "Check", method)

	svc, _ = splitFullMethod("bad")
	assert.Equal(t, "unknown", svc)
}

func TestTraceIDFromContext(t *testing.T) {
	assert.Equal(t, "", TraceIDFromContext(context.Background()))

	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()
	assert.Equal(t, span.SpanContext().TraceID().String(), TraceIDFromContext(ctx))
	assert.Len(t, TraceIDFromContext(ctx), 32)
}
