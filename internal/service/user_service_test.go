package service

import (
	"context"
	"errors"
	"testing"

	"staybook/internal/database"
	"staybook/internal/domain"
	"staybook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUserService_CreateUser(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	t.Run("Validation", func(t *testing.T) {
		svc := NewUserService(new(mockRepo), &logger)
		err := svc.CreateUser(ctx, &models.User{Email: "nope", Username: "a@b"})

		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Contains(t, verr.Fields, "email")
		assert.Contains(t, verr.Fields, "username")
		assert.Contains(t, verr.Fields, "firstName")
		assert.Contains(t, verr.Fields, "lastName")
	})

	t.Run("Duplicate", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewUserService(repo, &logger)
		repo.On("CreateUser", ctx, mock.Anything).Return(database.ErrDuplicate).Once()

		err := svc.CreateUser(ctx, &models.User{FirstName: "Demo", LastName: "User", Email: "demo@user.io", Username: "Demo-lition"})
		assert.ErrorIs(t, err, database.ErrDuplicate)
	})
}

func TestUserService_LinkTelegram(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()
	repo := new(mockRepo)
	svc := NewUserService(repo, &logger)

	repo.On("GetUserByUsername", ctx, "host").Return(&models.User{ID: 3, Username: "host"}, nil).Once()
	repo.On("UpdateUserTelegramChat", ctx, int64(3), int64(555)).Return(nil).Once()

	user, err := svc.LinkTelegram(ctx, " @host ", 555)
	require.NoError(t, err)
	assert.Equal(t, int64(555), user.TelegramChatID)
	repo.AssertExpectations(t)

	repo.On("GetUserByUsername", ctx, "ghost").Return(nil, database.ErrNotFound).Once()
	_, err = svc.LinkTelegram(ctx, "ghost", 555)
	assert.ErrorIs(t, err, database.ErrNotFound)
}
