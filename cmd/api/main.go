package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"staybook/internal/api"
	"staybook/internal/bot"
	"staybook/internal/config"
	"staybook/internal/database"
	"staybook/internal/domain"
	"staybook/internal/events"
	"staybook/internal/google"
	"staybook/internal/logging"
	"staybook/internal/metrics"
	"staybook/internal/models"
	"staybook/internal/repository"
	"staybook/internal/seed"
	"staybook/internal/service"
	"staybook/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const shutdownBudget = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	if err := applySeed(ctx, cfg, db, logger); err != nil {
		return err
	}

	redisClient, state := initState(ctx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var syncer domain.SyncWorker
	if sheetsWorker := initSheets(ctx, cfg, db, redisClient, logger); sheetsWorker != nil {
		syncer = sheetsWorker
	}

	bus := events.NewEventBus()
	bus.OnError(func(ev *events.Event, err error) {
		logger.Warn().Err(err).Str("event_type", ev.Type).Msg("event handler failed")
	})
	if sink := initKafka(cfg, logger); sink != nil {
		sink.Attach(bus, events.BookingEvents...)
		defer sink.Close()
	}
	initHostNotifier(cfg, db, bus, logger)

	svc := api.Services{
		Users:    service.NewUserService(db, logging.Component(logger, "users")),
		Spots:    service.NewSpotService(db, logging.Component(logger, "spots")),
		Reviews:  service.NewReviewService(db, logging.Component(logger, "reviews")),
		Bookings: service.NewBookingService(db, state, bus, syncer, cfg.Booking, cfg.App.Location(), logging.Component(logger, "bookings")),
	}
	quota := api.NewUserQuota(state, cfg.API.UserQuota, logger)
	httpServer := api.NewHTTPServer(cfg.API, svc, quota, db.PingContext, logging.Component(logger, "http"))

	var grpcServer *api.GRPCServer
	if cfg.API.GRPC.Enabled {
		grpcServer, err = api.NewGRPCServer(cfg.API, logger)
		if err != nil {
			logger.Error().Err(err).Msg("create grpc server")
			return err
		}
	}

	startMetrics(ctx, cfg, logger)

	if cfg.Backup.Enabled {
		backups := database.NewBackupService(db, cfg.Backup, logging.Component(logger, "backup"))
		go backups.Start(ctx)
	}

	return serve(ctx, cfg, httpServer, grpcServer, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logging.Component(baseLogger, "api-main"), closer, nil
}

func applySeed(ctx context.Context, cfg *config.Config, db *database.DB, logger *zerolog.Logger) error {
	path := os.Getenv("SEED_PATH")
	if path == "" {
		path = cfg.App.SeedPath
	}
	if path == "" {
		return nil
	}

	f, err := seed.Load(path)
	if err != nil {
		logger.Error().Err(err).Str("seed_path", path).Msg("load seed")
		return err
	}
	if _, err := seed.Apply(ctx, db, f, logger); err != nil {
		logger.Error().Err(err).Str("seed_path", path).Msg("apply seed")
		return err
	}
	return nil
}

// initState prefers Redis for locks and quotas and falls back to process memory.
func initState(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, *repository.FailoverStateRepository) {
	ttl := time.Duration(models.DefaultStateTTL) * time.Second
	fallback := repository.NewMemoryStateRepository(ttl)

	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if err := repository.Ping(ctx, redisClient); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, using in-memory state until it recovers")
		} else {
			logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
		}
	}

	primary := repository.NewRedisStateRepository(redisClient, ttl)
	return redisClient, repository.NewFailoverStateRepository(primary, fallback, logging.Component(logger, "state"))
}

func initSheets(ctx context.Context, cfg *config.Config, db *database.DB, redisClient *redis.Client, logger *zerolog.Logger) *worker.SheetsWorker {
	if !cfg.Google.Enabled() {
		return nil
	}

	sheetsService, err := google.NewSheetsService(ctx, cfg.Google.CredentialsFile, cfg.Google.BookingSpreadsheetID, cfg.Google.BookingSheetName)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets")
		return nil
	}
	if err := sheetsService.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets connection test failed, continuing without sheets")
		return nil
	}
	if err := sheetsService.EnsureHeader(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets header setup failed")
	}
	if err := sheetsService.WarmUpCache(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets cache warm-up failed")
	}
	go sheetsService.RefreshCache(ctx, 10*time.Minute)

	w := worker.NewSheetsWorker(db, sheetsService, redisClient, worker.RetryPolicy{}, logging.Component(logger, "sheets-worker"))
	go w.Start(ctx)

	logger.Info().Str("sheet", cfg.Google.BookingSheetName).Msg("google sheets sync started")
	return w
}

func initKafka(cfg *config.Config, logger *zerolog.Logger) *events.KafkaSink {
	if !cfg.Kafka.Enabled() {
		return nil
	}
	writer := events.NewKafkaWriter(cfg.Kafka)
	logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka event sink enabled")
	return events.NewKafkaSink(writer, cfg.Kafka.WriteTimeout, cfg.Kafka.Buffer, logging.Component(logger, "kafka"))
}

// initHostNotifier pushes booking events to spot owners when a bot token is set.
func initHostNotifier(cfg *config.Config, db *database.DB, bus *events.EventBus, logger *zerolog.Logger) {
	if cfg.Telegram.BotToken == "" {
		return
	}
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, host notifications disabled")
		return
	}

	notifier := service.NewHostNotifier(db, service.NewTelegramService(bot.NewBotWrapper(botAPI)), logging.Component(logger, "host-notifier"))
	bus.Subscribe(func(ev *events.Event) error {
		go func() { _ = notifier.Handle(ev) }()
		return nil
	}, events.BookingEvents...)
	logger.Info().Msg("telegram host notifications enabled")
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

func serve(
	ctx context.Context,
	cfg *config.Config,
	httpServer *api.HTTPServer,
	grpcServer *api.GRPCServer,
	logger *zerolog.Logger,
) error {
	errCh := make(chan error, 2)

	if grpcServer != nil {
		go func() {
			if err := grpcServer.Serve(); err != nil {
				errCh <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}
	if cfg.API.HTTP.Enabled {
		go func() {
			if err := httpServer.Start(); err != nil {
				errCh <- fmt.Errorf("http server: %w", err)
			}
		}()
	}

	logger.Info().Int("http_port", cfg.API.HTTP.Port).Bool("grpc", grpcServer != nil).Msg("API server started")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("server stopped unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownBudget)
	defer cancel()

	if grpcServer != nil {
		grpcServer.Shutdown(shutdownCtx)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("API server stopped")
	return runErr
}
