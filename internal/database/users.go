package database

import (
	"context"
	"fmt"
	"time"

	"staybook/internal/models"
)

const userColumns = `id, first_name, last_name, email, username, telegram_chat_id, created_at, updated_at`

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (first_name, last_name, email, username, telegram_chat_id, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		user.FirstName,
		user.LastName,
		user.Email,
		user.Username,
		user.TelegramChatID,
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s: %w", user.Username, ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := db.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return user, nil
}

func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user, err := db.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	if err != nil {
		return nil, notFound(err, "user", username)
	}
	return user, nil
}

func (db *DB) GetUserByTelegramChatID(ctx context.Context, chatID int64) (*models.User, error) {
	user, err := db.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_chat_id = ? AND telegram_chat_id != 0`, chatID)
	if err != nil {
		return nil, notFound(err, "user with chat", chatID)
	}
	return user, nil
}

// UpdateUserTelegramChat binds a Telegram chat to the profile. A chat belongs
// to at most one profile, so any previous holder is unbound first.
func (db *DB) UpdateUserTelegramChat(ctx context.Context, userID, chatID int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	if chatID != 0 {
		if _, err = tx.ExecContext(ctx,
			`UPDATE users SET telegram_chat_id = 0, updated_at = ? WHERE telegram_chat_id = ? AND id != ?`,
			now, chatID, userID); err != nil {
			return fmt.Errorf("failed to unbind chat: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `UPDATE users SET telegram_chat_id = ?, updated_at = ? WHERE id = ?`, chatID, now, userID)
	if err != nil {
		return fmt.Errorf("failed to update telegram chat: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return tx.Commit()
}

func (db *DB) queryUser(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var user models.User
	err := db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &user.FirstName, &user.LastName, &user.Email, &user.Username,
		&user.TelegramChatID, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
