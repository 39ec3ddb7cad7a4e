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

	"staybook/internal/bot"
	"staybook/internal/client"
	"staybook/internal/config"
	"staybook/internal/database"
	"staybook/internal/logging"
	"staybook/internal/models"
	"staybook/internal/repository"
	"staybook/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

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
		defer (func(c io.Closer) { _ = c.Close() })(closer)
	}

	if cfg.Telegram.BotToken == "" {
		logger.Error().Msg("telegram.bot_token is not set")
		return os.ErrInvalid
	}
	if err := os.MkdirAll(cfg.Exports.Path, 0o755); err != nil {
		logger.Error().Err(err).Str("path", cfg.Exports.Path).Msg("create export directory")
		return err
	}

	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Msg("init database")
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, stateRepo := initStateRepository(ctx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	stateService := service.NewStateService(stateRepo, logging.Component(logger, "state"))
	userService := service.NewUserService(db, logging.Component(logger, "users"))
	spotService := service.NewSpotService(db, logging.Component(logger, "spots"))
	bookingService := service.NewBookingService(db, stateRepo, nil, nil, cfg.Booking, cfg.App.Location(), logging.Component(logger, "bookings"))

	metrics := bot.NewMetrics(prometheus.DefaultRegisterer)
	if cfg.Monitoring.PrometheusEnabled {
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("create telegram client")
		return err
	}
	botAPI.Debug = cfg.Telegram.Debug

	tg := service.NewTelegramService(bot.NewBotWrapper(botAPI))
	hostBot, err := bot.NewBot(tg, cfg, stateService, userService, bookingService, spotService, metrics, logging.Component(logger, "bot"))
	if err != nil {
		logger.Error().Err(err).Msg("create bot")
		return err
	}

	if cfg.APIClient.Enabled() {
		hostBot.UseAPI(newAPIClient(cfg.APIClient, redisClient, logger))
	}

	logger.Info().Str("username", botAPI.Self.UserName).Msg("bot started")
	hostBot.StartReminders(ctx)
	hostBot.Start(ctx)

	logger.Info().Msg("shutdown complete")
	return nil
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
	return cfg, logging.Component(baseLogger, "bot-main"), closer, nil
}

func initStateRepository(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*redis.Client, *repository.FailoverStateRepository) {
	ttl := time.Duration(models.DefaultStateTTL) * time.Second

	var redisClient *redis.Client
	if cfg.Redis.Address != "" {
		redisClient = repository.NewRedisClient(cfg.Redis)
		if err := repository.Ping(ctx, redisClient); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable")
		}
	}

	primary := repository.NewRedisStateRepository(redisClient, ttl)
	fallback := repository.NewMemoryStateRepository(ttl)
	return redisClient, repository.NewFailoverStateRepository(primary, fallback, logging.Component(logger, "state"))
}

// newAPIClient talks to the REST API for /check; spot reads share the bot's Redis.
func newAPIClient(cfg config.APIClientConfig, redisClient *redis.Client, logger *zerolog.Logger) *client.Client {
	c := client.New(cfg.BaseURL, cfg.APIKey, cfg.APIExtra)
	if redisClient != nil && cfg.CacheTTL > 0 {
		c.UseRedisCache(redisClient, cfg.CacheTTL)
	}
	logger.Info().Str("base_url", cfg.BaseURL).Dur("cache_ttl", cfg.CacheTTL).Msg("availability checks via REST API enabled")
	return c
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
