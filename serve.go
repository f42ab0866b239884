package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"social-service/internal/config"
	"social-service/internal/db"
	"social-service/internal/grpcserver"
	"social-service/internal/jobs"
	"social-service/internal/observability"
	"social-service/internal/rabbitmq"
	"social-service/internal/realtime"
	"social-service/internal/repositories"
	"social-service/internal/storage"
)

const healthRefreshInterval = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP, websocket and gRPC health servers",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// reapingBroker is a broker that can also drop stale presence entries.
type reapingBroker interface {
	realtime.Broker
	realtime.Reaper
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Service, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			zap.L().Warn("tracing_shutdown_failed", zap.Error(err))
		}
	}()

	database, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	broker, err := openBroker(ctx, cfg)
	if err != nil {
		return err
	}
	defer broker.Close()

	store, err := storage.Open(cfg.StoragePath, cfg.MaxUploadBytes)
	if err != nil {
		return err
	}
	defer store.Close()

	auditPublisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer auditPublisher.Close()
	functionsPublisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.EventsExchange)
	defer functionsPublisher.Close()
	logPublisher("audit", auditPublisher)
	logPublisher("functions", functionsPublisher)

	if cfg.AMQPURL != "" {
		events, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.EventsExchange)
		if err != nil {
			zap.L().Warn("events_publisher_unavailable", zap.Error(err))
		} else {
			observability.SetPublisher(events)
			defer events.Close()
		}
	}

	a, err := newApp(cfg, database, broker, store, auditPublisher, functionsPublisher)
	if err != nil {
		return err
	}

	health := grpcserver.New(cfg.Service,
		grpcserver.Check{Name: "postgres", Probe: database.PingContext},
		grpcserver.Check{Name: "broker", Probe: func(ctx context.Context) error {
			_, err := broker.Presence(ctx, "health")
			return err
		}},
	)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen grpc: %w", err)
	}
	go func() {
		if err := health.Serve(lis); err != nil {
			zap.L().Error("grpc_serve_failed", zap.Error(err))
		}
	}()
	go refreshHealth(ctx, health)

	scheduler, err := jobs.NewScheduler(cfg.SweepCron,
		jobs.PurgeStories(repositories.NewStoryRepo(database)),
		jobs.ReapPresence(broker, cfg.PresenceTTL),
		jobs.RecordStorageUsage(store),
		jobs.ReapCalls(a.manager, cfg.CallJoinTTL),
	)
	if err != nil {
		return err
	}
	go scheduler.Run(ctx)

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: cors.New(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-OTP-Code"},
			AllowCredentials: true,
		}).Handler(a.router()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("http_listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			zap.L().Error("http_serve_failed", zap.Error(err))
		}
		stop()
	}

	zap.L().Info("shutting_down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.hub.CloseAll()
	if err := srv.Shutdown(sctx); err != nil {
		zap.L().Warn("http_shutdown_failed", zap.Error(err))
	}
	health.Stop()
	return nil
}

func openDatabase(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	database, err := db.Connect(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if err := db.Migrate(ctx, database); err != nil {
		database.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return database, nil
}

// openBroker uses Redis when an address is configured so several instances
// share topics and presence; otherwise everything stays in process.
func openBroker(ctx context.Context, cfg config.Config) (reapingBroker, error) {
	if cfg.RedisAddr == "" {
		zap.L().Info("broker_memory")
		return realtime.NewMemory(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	zap.L().Info("broker_redis", zap.String("addr", cfg.RedisAddr))
	return realtime.NewRedis(client, cfg.PresenceTTL), nil
}

func logPublisher(name string, p rabbitmq.Publisher) {
	fields := []zap.Field{zap.String("publisher", name), zap.String("mode", rabbitmq.PublisherMode(p))}
	if reason := rabbitmq.PublisherNoopReason(p); reason != "" {
		zap.L().Warn("publisher_disabled", append(fields, zap.String("reason", reason))...)
		return
	}
	zap.L().Info("publisher_ready", fields...)
}

func refreshHealth(ctx context.Context, health *grpcserver.Server) {
	ticker := time.NewTicker(healthRefreshInterval)
	defer ticker.Stop()
	health.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			health.Refresh(ctx)
		}
	}
}
