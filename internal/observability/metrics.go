package observability

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_http_requests_total",
			Help: "Total number of HTTP requests processed by the social service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "social_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	grpcServerHandledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grpc_server_handled_total",
			Help: "Total number of gRPC requests handled by the server.",
		},
		[]string{"grpc_service", "grpc_method", "grpc_code"},
	)
	wsActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "social_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
		[]string{"kind"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_ws_events_total",
			Help: "Total number of websocket events.",
		},
		[]string{"kind", "event"},
	)
	amqpPublishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "social_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
	realtimePublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_realtime_published_total",
			Help: "Total number of realtime messages published, by kind.",
		},
		[]string{"kind"},
	)
	syncRefetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_sync_refetch_total",
			Help: "Conversation refetches triggered by change events.",
		},
		[]string{"kind", "result"},
	)
	activeCalls = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "social_active_calls",
			Help: "Number of calls with at least one participant.",
		},
	)
	functionInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_function_invocations_total",
			Help: "Serverless function invocations, by function and result.",
		},
		[]string{"function", "result"},
	)
	jobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "social_job_runs_total",
			Help: "Background job runs, by job and result.",
		},
		[]string{"job", "result"},
	)
	storageBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "social_storage_bytes",
			Help: "Bytes stored per bucket.",
		},
		[]string{"bucket"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		grpcServerHandledTotal,
		wsActiveConnections,
		wsEventsTotal,
		amqpPublishErrorsTotal,
		realtimePublishedTotal,
		syncRefetchTotal,
		activeCalls,
		functionInvocationsTotal,
		jobRunsTotal,
		storageBytes,
	)
}

func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func GRPCServerMetricsUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		statusInfo := status.Convert(err)
		service, method := splitFullMethod(info.FullMethod)
		grpcServerHandledTotal.WithLabelValues(service, method, statusInfo.Code().String()).Inc()
		return resp, err
	}
}

func splitFullMethod(fullMethod string) (string, string) {
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 3 {
		return "unknown", "unknown"
	}
	return parts[1], parts[2]
}

func IncWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Inc()
}

func DecWSActive(kind string) {
	wsActiveConnections.WithLabelValues(kind).Dec()
}

func IncWSEvent(kind, event string) {
	wsEventsTotal.WithLabelValues(kind, event).Inc()
}

func IncAMQPPublishError() {
	amqpPublishErrorsTotal.Inc()
}

func IncRealtimePublished(kind string) {
	realtimePublishedTotal.WithLabelValues(kind).Inc()
}

func IncSyncRefetch(kind string, ok bool) {
	syncRefetchTotal.WithLabelValues(kind, result(ok)).Inc()
}

func SetActiveCalls(n int) {
	activeCalls.Set(float64(n))
}

func IncFunctionInvocation(function string, ok bool) {
	functionInvocationsTotal.WithLabelValues(function, result(ok)).Inc()
}

func IncJobRun(job string, ok bool) {
	jobRunsTotal.WithLabelValues(job, result(ok)).Inc()
}

func SetStorageBytes(bucket string, n int64) {
	storageBytes.WithLabelValues(bucket).Set(float64(n))
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
