package domain

import (
	"context"
	"time"

	"staybook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByTelegramChatID(ctx context.Context, chatID int64) (*models.User, error)
	UpdateUserTelegramChat(ctx context.Context, userID, chatID int64) error
}

type SpotRepository interface {
	CreateSpot(ctx context.Context, spot *models.Spot) error
	GetSpot(ctx context.Context, id int64) (*models.Spot, error)
	SpotExists(ctx context.Context, id int64) (bool, error)
	ListSpots(ctx context.Context, filter models.SpotFilter) ([]*models.Spot, error)
	ListSpotsByOwner(ctx context.Context, ownerID int64) ([]*models.Spot, error)
	UpdateSpot(ctx context.Context, spot *models.Spot) error
	DeleteSpot(ctx context.Context, id int64) error
	AddSpotImage(ctx context.Context, img *models.SpotImage) error
	GetSpotImage(ctx context.Context, id int64) (*models.SpotImage, error)
	DeleteSpotImage(ctx context.Context, id int64) error
}

type ReviewRepository interface {
	CreateReview(ctx context.Context, review *models.Review) error
	GetReview(ctx context.Context, id int64) (*models.Review, error)
	ListReviewsBySpot(ctx context.Context, spotID int64) ([]*models.Review, error)
	ListReviewsByUser(ctx context.Context, userID int64) ([]*models.Review, error)
	UpdateReview(ctx context.Context, review *models.Review) error
	DeleteReview(ctx context.Context, id int64) error
	AddReviewImage(ctx context.Context, img *models.ReviewImage) error
	GetReviewImage(ctx context.Context, id int64) (*models.ReviewImage, error)
	DeleteReviewImage(ctx context.Context, id int64) error
}

type BookingRepository interface {
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ListSpotBookings(ctx context.Context, spotID int64) ([]*models.Booking, error)
	ListUserBookings(ctx context.Context, userID int64) ([]*models.Booking, error)
	ListHostBookings(ctx context.Context, ownerID int64, from models.Date) ([]*models.Booking, error)
	ListBookingsStartingOn(ctx context.Context, day models.Date) ([]*models.Booking, error)
	CreateBookingWithLock(ctx context.Context, booking *models.Booking, check models.BookingCheck) error
	UpdateBookingDatesWithVersion(
		ctx context.Context,
		id, fromVersion int64,
		start, end models.Date,
		check models.BookingCheck,
	) (*models.Booking, error)
	DeleteBooking(ctx context.Context, id int64) error
}

// Repository is everything the services need from the store.
type Repository interface {
	UserRepository
	SpotRepository
	ReviewRepository
	BookingRepository
}

// StateRepository holds short-lived shared state: bot conversation steps,
// request quotas and per-spot write locks.
type StateRepository interface {
	GetState(ctx context.Context, chatID int64) (*models.ChatState, error)
	SetState(ctx context.Context, state *models.ChatState) error
	ClearState(ctx context.Context, chatID int64) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	LockRepository
}

// LockRepository hands out short-lived named locks shared between processes.
type LockRepository interface {
	// AcquireLock returns a token when the lock was taken, ok=false when held.
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseLock(ctx context.Context, key, token string) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type SyncWorker interface {
	EnqueueBookingUpsert(ctx context.Context, booking *models.Booking) error
	EnqueueBookingDelete(ctx context.Context, bookingID int64) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	GetSelf() tgbotapi.User
	StopReceivingUpdates()
}

// Notifier delivers a text message to a Telegram chat.
type Notifier interface {
	SendMessage(chatID int64, text string) (tgbotapi.Message, error)
	SendMarkdown(chatID int64, text string) (tgbotapi.Message, error)
}
