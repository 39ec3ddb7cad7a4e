package bot

import (
	"errors"

	"staybook/internal/database"
	"staybook/internal/domain"
)

func (b *Bot) getErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, database.ErrNotFound) {
		return "⚠️ Nothing found. Check the id and try again."
	}

	if errors.Is(err, domain.ErrForbidden) {
		return "⚠️ Only the spot owner can do that."
	}

	return "❌ Something went wrong while handling your request. Please try again later."
}
