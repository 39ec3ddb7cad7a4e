package bot

import (
	"context"
	"errors"
	"time"

	"staybook/internal/client"
	"staybook/internal/config"
	"staybook/internal/domain"
	"staybook/internal/models"
	"staybook/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Messenger is the Telegram connection the bot talks through.
type Messenger interface {
	domain.TelegramSender
	SendMessage(chatID int64, text string) (tgbotapi.Message, error)
}

type StateManager interface {
	GetChatState(ctx context.Context, chatID int64) (*models.ChatState, error)
	SetStep(ctx context.Context, chatID int64, step string) error
	ClearChatState(ctx context.Context, chatID int64) error
	CheckRateLimit(ctx context.Context, chatID int64, limit int, window time.Duration) (bool, error)
}

type UserDirectory interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByTelegramChatID(ctx context.Context, chatID int64) (*models.User, error)
	LinkTelegram(ctx context.Context, username string, chatID int64) (*models.User, error)
}

type BookingLister interface {
	Today() models.Date
	ListHostBookings(ctx context.Context, ownerID int64) ([]*models.Booking, error)
	ListCheckIns(ctx context.Context, day models.Date) ([]*models.Booking, error)
	ListSpotBookings(ctx context.Context, callerID, spotID int64) (*service.SpotBookings, error)
}

type SpotLister interface {
	GetSpot(ctx context.Context, id int64) (*models.Spot, error)
	ListOwnerSpots(ctx context.Context, ownerID int64) ([]*models.Spot, error)
}

// Bot is the host-facing Telegram bot: chat linking, listings and exports.
type Bot struct {
	tg        Messenger
	cfg       config.TelegramConfig
	exportDir string
	loc       *time.Location
	state     StateManager
	users     UserDirectory
	bookings  BookingLister
	spots     SpotLister
	metrics   *Metrics
	logger    *zerolog.Logger

	// api answers /check through the REST API; nil disables the command.
	api *client.Client
}

func NewBot(
	tg Messenger,
	cfg *config.Config,
	state StateManager,
	users UserDirectory,
	bookings BookingLister,
	spots SpotLister,
	metrics *Metrics,
	logger *zerolog.Logger,
) (*Bot, error) {
	if tg == nil {
		return nil, errors.New("telegram connection is required")
	}
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		logger.Warn().Err(err).Str("timezone", cfg.App.Timezone).Msg("unknown timezone, using UTC")
		loc = time.UTC
	}

	return &Bot{
		tg:        tg,
		cfg:       cfg.Telegram,
		exportDir: cfg.Exports.Path,
		loc:       loc,
		state:     state,
		users:     users,
		bookings:  bookings,
		spots:     spots,
		metrics:   metrics,
		logger:    logger,
	}, nil
}

// UseAPI enables availability checks against the REST API.
func (b *Bot) UseAPI(c *client.Client) {
	b.api = c
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.tg.GetUpdatesChan(u)

	b.logger.Info().Str("username", b.tg.GetSelf().UserName).Msg("Authorized on account")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Bot stopping...")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.processUpdate(ctx, update)
		}
	}
}

func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	start := time.Now()
	defer func() {
		if b.metrics != nil {
			b.metrics.UpdateProcessingTime.Observe(time.Since(start).Seconds())
		}
	}()

	updateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	requestID := uuid.New().String()
	l := b.logger.With().Str("request_id", requestID).Logger()
	updateCtx = l.WithContext(updateCtx)

	b.withRecovery(func() {
		msg := update.Message
		if msg == nil || msg.Chat == nil {
			return
		}
		if !b.allow(updateCtx, msg.Chat.ID) {
			b.sendMessage(msg.Chat.ID, "You are sending messages too fast. Please wait a moment.")
			return
		}
		b.handleMessage(updateCtx, msg)
	})
}
