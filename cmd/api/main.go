package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/brandtrack/internal/api"
	"github.com/your-org/brandtrack/internal/api/ws"
	"github.com/your-org/brandtrack/internal/config"
	"github.com/your-org/brandtrack/internal/models"
	"github.com/your-org/brandtrack/internal/notify"
	"github.com/your-org/brandtrack/internal/observability"
	"github.com/your-org/brandtrack/internal/queue"
	"github.com/your-org/brandtrack/internal/storage"
	"github.com/your-org/brandtrack/internal/timeline"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting BrandTrack API service", "port", cfg.Server.Port)

	// Durable stores
	analyses, err := storage.NewAnalysisStore(cfg.Storage.DataDir, cfg.Storage.HistoryFile, cfg.Storage.RetentionCap)
	if err != nil {
		slog.Error("open analysis store", "error", err)
		os.Exit(1)
	}
	inbox, err := storage.NewNotificationStore(cfg.Storage.DataDir, cfg.Storage.InboxFile)
	if err != nil {
		slog.Error("open notification store", "error", err)
		os.Exit(1)
	}

	// Connect to MinIO
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := minioStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	// Connection registry + notification service
	registry := ws.NewRegistry()
	notifier := notify.NewService(inbox, registry)

	// Result consumer: persist completed analyses and notify owners.
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create result consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeResults(ctx, "api-results", func(ctx context.Context, msg jetstream.Msg) error {
		var result models.AnalysisResult
		if err := json.Unmarshal(msg.Data(), &result); err != nil {
			slog.Error("unmarshal analysis result", "error", err)
			return nil // malformed results never succeed on retry
		}

		if result.Error != "" {
			slog.Warn("analysis failed", "job_id", result.JobID, "error", result.Error)
			if result.Owner != "" {
				notifier.Notify(result.Owner, "", models.SenderKindSystem,
					models.NotificationAnalysisComplete, "Your video analysis failed",
					map[string]any{"job_id": result.JobID.String(), "error": result.Error})
			}
			return nil
		}

		rec := models.AnalysisRecord{
			Owner:               result.Owner,
			Type:                result.Type,
			VideoInfo:           result.VideoInfo,
			BrandTimeline:       result.BrandTimeline,
			AnalysisTimeSeconds: result.AnalysisTimeSeconds,
			Settings:            result.Settings,
			Statistics:          timeline.Statistics(result.BrandTimeline),
		}

		id, persisted := analyses.Save(rec)
		if !persisted {
			slog.Warn("analysis record not durably persisted", "id", id)
		}
		rec.ID = id

		if result.Owner != "" {
			notifier.AnalysisComplete(rec)
		}
		return nil
	})
	if err != nil {
		slog.Warn("start result consumer", "error", err)
	}

	// Setup router
	router := api.NewRouter(api.RouterConfig{
		Analyses: analyses,
		MinIO:    minioStore,
		Producer: producer,
		Registry: registry,
		Notifier: notifier,
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}
