package service

import (
	"context"
	"time"

	"staybook/internal/domain"
	"staybook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/mock"
)

// mockRepo mocks the repository methods a test sets expectations for;
// anything else hits the nil embedded interface and panics.
type mockRepo struct {
	mock.Mock
	domain.Repository
}

func (m *mockRepo) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockRepo) CreateUser(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockRepo) UpdateUserTelegramChat(ctx context.Context, userID, chatID int64) error {
	return m.Called(ctx, userID, chatID).Error(0)
}

func (m *mockRepo) CreateSpot(ctx context.Context, s *models.Spot) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockRepo) GetSpot(ctx context.Context, id int64) (*models.Spot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Spot), args.Error(1)
}

func (m *mockRepo) SpotExists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) ListSpots(ctx context.Context, f models.SpotFilter) ([]*models.Spot, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Spot), args.Error(1)
}

func (m *mockRepo) UpdateSpot(ctx context.Context, s *models.Spot) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockRepo) DeleteSpot(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepo) AddSpotImage(ctx context.Context, img *models.SpotImage) error {
	return m.Called(ctx, img).Error(0)
}

func (m *mockRepo) GetSpotImage(ctx context.Context, id int64) (*models.SpotImage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SpotImage), args.Error(1)
}

func (m *mockRepo) DeleteSpotImage(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepo) CreateReview(ctx context.Context, r *models.Review) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockRepo) GetReview(ctx context.Context, id int64) (*models.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Review), args.Error(1)
}

func (m *mockRepo) UpdateReview(ctx context.Context, r *models.Review) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockRepo) DeleteReview(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepo) AddReviewImage(ctx context.Context, img *models.ReviewImage) error {
	return m.Called(ctx, img).Error(0)
}

func (m *mockRepo) GetReviewImage(ctx context.Context, id int64) (*models.ReviewImage, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReviewImage), args.Error(1)
}

func (m *mockRepo) DeleteReviewImage(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(eventType string, payload interface{}) error {
	return m.Called(eventType, payload).Error(0)
}

type mockSyncWorker struct {
	mock.Mock
}

func (m *mockSyncWorker) EnqueueBookingUpsert(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockSyncWorker) EnqueueBookingDelete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type mockTelegramSender struct {
	mock.Mock
}

func (m *mockTelegramSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func (m *mockTelegramSender) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	args := m.Called(config)
	return args.Get(0).(tgbotapi.UpdatesChannel)
}

func (m *mockTelegramSender) GetSelf() tgbotapi.User {
	args := m.Called()
	return args.Get(0).(tgbotapi.User)
}

func (m *mockTelegramSender) StopReceivingUpdates() {
	m.Called()
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) SendMessage(chatID int64, text string) (tgbotapi.Message, error) {
	args := m.Called(chatID, text)
	return tgbotapi.Message{}, args.Error(0)
}

func (m *mockNotifier) SendMarkdown(chatID int64, text string) (tgbotapi.Message, error) {
	args := m.Called(chatID, text)
	return tgbotapi.Message{}, args.Error(0)
}

type mockStateRepo struct {
	mock.Mock
}

func (m *mockStateRepo) GetState(ctx context.Context, chatID int64) (*models.ChatState, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ChatState), args.Error(1)
}

func (m *mockStateRepo) SetState(ctx context.Context, state *models.ChatState) error {
	return m.Called(ctx, state).Error(0)
}

func (m *mockStateRepo) ClearState(ctx context.Context, chatID int64) error {
	return m.Called(ctx, chatID).Error(0)
}

func (m *mockStateRepo) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func (m *mockStateRepo) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockStateRepo) ReleaseLock(ctx context.Context, key, token string) error {
	return m.Called(ctx, key, token).Error(0)
}
