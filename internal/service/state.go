package service

import (
	"context"
	"fmt"
	"time"

	"staybook/internal/domain"
	"staybook/internal/models"

	"github.com/rs/zerolog"
)

// StateService keeps per-chat conversation steps for the bot.
type StateService struct {
	stateRepo domain.StateRepository
	logger    *zerolog.Logger
}

func NewStateService(stateRepo domain.StateRepository, logger *zerolog.Logger) *StateService {
	return &StateService{
		stateRepo: stateRepo,
		logger:    logger,
	}
}

func (s *StateService) GetChatState(ctx context.Context, chatID int64) (*models.ChatState, error) {
	state, err := s.stateRepo.GetState(ctx, chatID)
	if err != nil {
		s.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to get chat state")
		return nil, err
	}
	return state, nil
}

func (s *StateService) SetStep(ctx context.Context, chatID int64, step string) error {
	return s.stateRepo.SetState(ctx, &models.ChatState{ChatID: chatID, Step: step})
}

func (s *StateService) ClearChatState(ctx context.Context, chatID int64) error {
	return s.stateRepo.ClearState(ctx, chatID)
}

func (s *StateService) UpdateChatStateData(ctx context.Context, chatID int64, key, value string) error {
	state, err := s.stateRepo.GetState(ctx, chatID)
	if err != nil {
		return err
	}
	if state == nil {
		state = &models.ChatState{ChatID: chatID}
	}
	state.Set(key, value)
	return s.stateRepo.SetState(ctx, state)
}

// CheckRateLimit allows at most limit messages per chat per window.
func (s *StateService) CheckRateLimit(ctx context.Context, chatID int64, limit int, window time.Duration) (bool, error) {
	return s.stateRepo.CheckRateLimit(ctx, fmt.Sprintf("chat:%d", chatID), limit, window)
}
