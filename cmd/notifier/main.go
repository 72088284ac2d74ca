// cmd/notifier/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"recipehub-notifier/internal/common/auth"
	"recipehub-notifier/internal/common/aws"
	"recipehub-notifier/internal/common/config"
	"recipehub-notifier/internal/common/database"
	"recipehub-notifier/internal/common/logger"
	"recipehub-notifier/internal/email"
	"recipehub-notifier/internal/notification"
	"recipehub-notifier/internal/queue"
	"recipehub-notifier/internal/realtime"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting notifier...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Init MongoDB with retry ---
	var mongo *database.MongoClient
	err = retryWithBackoff(func() error {
		var err error
		mongo, err = database.NewMongo(ctx, cfg.Database.Mongo)
		return err
	}, 15, 2*time.Second, zapLog, "MongoDB connection")

	if err != nil {
		zapLog.Fatal("mongo failed after retries", zap.Error(err))
	}
	defer mongo.Close(context.Background())
	zapLog.Info("MongoDB connected successfully")

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Notification store ---
	if err := notification.EnsureIndexes(ctx, mongo.Database); err != nil {
		zapLog.Fatal("mongo index creation failed", zap.Error(err))
	}
	store := notification.NewMongoStore(mongo.Database)

	// --- Realtime delivery ---
	registry := realtime.NewRegistry()
	publisher := realtime.NewPublisher(registry,
		time.Duration(cfg.Realtime.SendTimeoutMillis)*time.Millisecond, log)
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret)
	wsHandler := realtime.NewWSHandler(registry, verifier, log,
		time.Duration(cfg.Realtime.PingIntervalSecs)*time.Second,
		time.Duration(cfg.Realtime.SendTimeoutMillis)*time.Millisecond,
		cfg.Realtime.MaxMessageBytes,
	)

	// --- Optional price-alert email channel ---
	var sideChannels []notification.SideChannel
	if cfg.Email.Enabled {
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		zapLog.Info("PostgreSQL connected successfully")

		sesClient, err := aws.NewSESClient(ctx, cfg.Email.AWSRegion)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		sideChannels = append(sideChannels,
			email.NewNotifier(sesClient, pg, cfg.Email.FromEmail, log))
		zapLog.Info("Price-alert email channel enabled")
	}

	// --- Dispatcher & queue consumer ---
	failures := notification.NewFailureLogger(store, log)
	dispatcher := notification.NewDispatcher(store, publisher, failures, log, sideChannels...)
	consumer := queue.NewConsumer(rdb.Client, cfg.Queue, dispatcher.Dispatch, dispatcher.DeadLetter, log)

	consumerDone := make(chan error, 1)
	go func() {
		consumerDone <- consumer.Run(ctx)
	}()

	// --- HTTP server: websocket endpoint, health, metrics ---
	mux := http.NewServeMux()
	mux.Handle("/ws", wsHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := rdb.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "redis unavailable"})
			return
		}
		if err := mongo.Ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "mongo unavailable"})
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "ready",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	server := &http.Server{Addr: cfg.HTTP.Address, Handler: mux}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("Shutdown signal received, stopping consumer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}

	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		zapLog.Warn("consumer did not stop within shutdown timeout")
	}

	zapLog.Info("Notifier stopped gracefully")
}
