package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"oee-ingestor/internal/config"
	"oee-ingestor/internal/database"
	httpapi "oee-ingestor/internal/http"
	"oee-ingestor/internal/logger"
	"oee-ingestor/internal/materialize"
	"oee-ingestor/internal/notify"
	"oee-ingestor/internal/repository"
	"oee-ingestor/internal/service"
	"oee-ingestor/internal/store"
	"oee-ingestor/internal/watcher"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "oee-ingestor")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	recordsRepo := repository.NewPostgresProductionRecords(db, log)
	if err := recordsRepo.EnsureSchema(context.Background()); err != nil {
		log.Fatal("Failed to ensure database schema", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to redis", zap.Error(err))
	}
	ledger := repository.NewProcessedFilesLedger(store.NewRedisKV(redisClient), log)

	var notifier service.ResultNotifier
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL, log)
		log.Info("Result webhook enabled", zap.String("url", cfg.Notify.WebhookURL))
	}

	ingestor := service.NewIngestService(
		materialize.NewMaterializer(log),
		recordsRepo,
		notifier,
		log,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	router := httpapi.NewRouter(log)
	router.RegisterHealthRoutes()
	router.RegisterIngestRoutes(httpapi.NewIngestHandler(cfg.Ingest.UploadDir, ingestor, ledger, log))
	router.RegisterReportRoutes(httpapi.NewReportHandler(recordsRepo, log))

	monitor := httpapi.NewMonitorHandler(ledger)
	router.RegisterMonitorRoutes(monitor)

	if cfg.Ingest.WatchEnabled {
		w := watcher.NewWatcher(
			cfg.Ingest.UploadDir,
			cfg.Ingest.PollInterval,
			cfg.Ingest.SettleDelay,
			ingestor,
			ledger,
			log,
		)
		go monitor.Consume(ctx, w.Events())
		go func() {
			if err := w.Start(ctx); err != nil {
				log.Error("Folder watch exited", zap.Error(err))
			}
		}()
	}

	srv := service.NewServer(cfg.HTTP.ListenAddr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		cancel()
	case err := <-errCh:
		log.Error("HTTP server exited", zap.Error(err))
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}
