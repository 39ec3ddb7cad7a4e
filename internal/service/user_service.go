package service

import (
	"context"
	"net/mail"
	"strings"

	"staybook/internal/domain"
	"staybook/internal/models"

	"github.com/rs/zerolog"
)

type UserService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewUserService(repo domain.Repository, logger *zerolog.Logger) *UserService {
	return &UserService{repo: repo, logger: logger}
}

func (s *UserService) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = strings.TrimSpace(user.Email)
	user.Username = strings.TrimSpace(user.Username)

	var v domain.Validator
	_, mailErr := mail.ParseAddress(user.Email)
	v.Check(user.Email != "" && mailErr == nil, "email", "Invalid email")
	v.Check(user.Username != "", "username", "Username is required")
	v.Check(!strings.Contains(user.Username, "@"), "username", "Username cannot be an email")
	v.Check(strings.TrimSpace(user.FirstName) != "", "firstName", "First Name is required")
	v.Check(strings.TrimSpace(user.LastName) != "", "lastName", "Last Name is required")
	if err := v.Err(); err != nil {
		return err
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return err
	}
	s.logger.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("user created")
	return nil
}

func (s *UserService) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

func (s *UserService) GetUserByTelegramChatID(ctx context.Context, chatID int64) (*models.User, error) {
	return s.repo.GetUserByTelegramChatID(ctx, chatID)
}

// LinkTelegram binds a chat to the profile with the given username.
func (s *UserService) LinkTelegram(ctx context.Context, username string, chatID int64) (*models.User, error) {
	user, err := s.repo.GetUserByUsername(ctx, strings.TrimPrefix(strings.TrimSpace(username), "@"))
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateUserTelegramChat(ctx, user.ID, chatID); err != nil {
		return nil, err
	}
	user.TelegramChatID = chatID
	s.logger.Info().Int64("user_id", user.ID).Int64("chat_id", chatID).Msg("telegram chat linked")
	return user, nil
}
