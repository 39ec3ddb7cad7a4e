package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"staybook/internal/database"
	"staybook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const helpText = `Commands:
/start - show this chat id
/link <username> - connect this chat to your staybook profile
/spots - your listed spots
/bookings - upcoming stays at your spots
/export <spotId> - bookings of a spot as xlsx
/check <spotId> <from> <to> - are these dates free? (YYYY-MM-DD)
/cancel - abort the current step`

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)
	l := zerolog.Ctx(ctx)

	if b.metrics != nil {
		b.metrics.MessagesProcessed.Inc()
	}

	l.Debug().
		Int64("chat_id", chatID).
		Str("text", text).
		Msg("Handling message")

	if command, args, ok := parseCommand(text); ok {
		if b.metrics != nil {
			b.metrics.CommandsProcessed.WithLabelValues(command).Inc()
		}
		b.handleCommand(ctx, chatID, command, args)
		return
	}

	state, err := b.state.GetChatState(ctx, chatID)
	if err != nil {
		l.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to load chat state")
	}
	if state != nil && state.Step == models.StepAwaitingProfile && text != "" {
		b.linkProfile(ctx, chatID, text)
		return
	}

	b.sendMessage(chatID, helpText)
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, command, args string) {
	switch command {
	case "start":
		b.handleStart(ctx, chatID)
	case "help":
		b.sendMessage(chatID, helpText)
	case "link":
		b.handleLink(ctx, chatID, args)
	case "cancel":
		b.clearState(ctx, chatID)
		b.sendMessage(chatID, "Cancelled.")
	case "spots":
		b.handleSpots(ctx, chatID)
	case "bookings":
		b.handleBookings(ctx, chatID)
	case "export":
		b.handleExport(ctx, chatID, args)
	case "check":
		b.handleCheck(ctx, chatID, args)
	default:
		b.sendMessage(chatID, "Unknown command.\n\n"+helpText)
	}
}

// parseCommand splits "/cmd@botname args" into its parts.
func parseCommand(text string) (command, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, rest, _ := strings.Cut(text[1:], " ")
	head, _, _ = strings.Cut(head, "@")
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(rest), true
}

func (b *Bot) handleStart(ctx context.Context, chatID int64) {
	b.clearState(ctx, chatID)

	user, err := b.users.GetUserByTelegramChatID(ctx, chatID)
	if err == nil {
		b.sendMessage(chatID, fmt.Sprintf("Welcome back, %s! This chat is linked to @%s.\n\n%s", user.FirstName, user.Username, helpText))
		return
	}
	if !errors.Is(err, database.ErrNotFound) {
		zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chatID).Msg("Failed to look up linked user")
	}

	b.sendMessage(chatID, fmt.Sprintf(
		"Your chat id is %d.\nLink it to your staybook profile with /link <username> to hear about bookings on your spots.",
		chatID,
	))
}

func (b *Bot) handleLink(ctx context.Context, chatID int64, username string) {
	if username != "" {
		b.linkProfile(ctx, chatID, username)
		return
	}
	if err := b.state.SetStep(ctx, chatID, models.StepAwaitingProfile); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chatID).Msg("Failed to save chat step")
	}
	b.sendMessage(chatID, "Send your staybook username.")
}

func (b *Bot) linkProfile(ctx context.Context, chatID int64, username string) {
	user, err := b.users.LinkTelegram(ctx, username, chatID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			b.sendMessage(chatID, fmt.Sprintf("No profile with username %q. Check the spelling and send it again, or /cancel.", username))
			return
		}
		zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chatID).Msg("Failed to link chat")
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	b.clearState(ctx, chatID)
	b.sendMessage(chatID, fmt.Sprintf("✅ Linked to @%s. You will get a message here whenever a booking on one of your spots changes.", user.Username))
}

func (b *Bot) clearState(ctx context.Context, chatID int64) {
	if err := b.state.ClearChatState(ctx, chatID); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chatID).Msg("Failed to clear chat state")
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	if _, err := b.tg.SendMessage(chatID, text); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send message")
	}
}
