package database

import (
	"context"
	"testing"

	"staybook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	u := createTestUser(t, db, "alice")
	assert.NotZero(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	t.Run("GetByID", func(t *testing.T) {
		got, err := db.GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Username)
		assert.Equal(t, "alice@example.com", got.Email)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := db.GetUserByID(ctx, 999)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.True(t, IsNotFound(err))
	})

	t.Run("DuplicateUsername", func(t *testing.T) {
		err := db.CreateUser(ctx, &models.User{FirstName: "A", Email: "other@example.com", Username: "alice"})
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		err := db.CreateUser(ctx, &models.User{FirstName: "A", Email: "alice@example.com", Username: "alice2"})
		assert.ErrorIs(t, err, ErrDuplicate)
	})
}

func TestUsers_TelegramChat(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	_, err := db.GetUserByTelegramChatID(ctx, 0)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, db.UpdateUserTelegramChat(ctx, alice.ID, 4242))
	got, err := db.GetUserByTelegramChatID(ctx, 4242)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	// Rebinding the chat moves it to bob.
	require.NoError(t, db.UpdateUserTelegramChat(ctx, bob.ID, 4242))
	got, err = db.GetUserByTelegramChatID(ctx, 4242)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, got.ID)

	a, err := db.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, a.TelegramChatID)

	assert.ErrorIs(t, db.UpdateUserTelegramChat(ctx, 999, 1), ErrNotFound)
}
