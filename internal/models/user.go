package models

import "time"

type User struct {
	ID             int64     `json:"id" yaml:"id"`
	FirstName      string    `json:"firstName" yaml:"first_name"`
	LastName       string    `json:"lastName" yaml:"last_name"`
	Email          string    `json:"email" yaml:"email"`
	Username       string    `json:"username" yaml:"username"`
	TelegramChatID int64     `json:"telegramChatId,omitempty" yaml:"telegram_chat_id"`
	CreatedAt      time.Time `json:"createdAt" yaml:"-"`
	UpdatedAt      time.Time `json:"updatedAt" yaml:"-"`
}

// UserSummary is the public projection embedded in bookings and reviews.
type UserSummary struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (u *User) Summary() *UserSummary {
	return &UserSummary{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName}
}

func (u *User) DisplayName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
