package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"staybook/internal/client"
	"staybook/internal/conflict"
	"staybook/internal/database"
	"staybook/internal/export"
	"staybook/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// linkedHost returns the profile bound to chatID, telling the chat how to
// link when there is none.
func (b *Bot) linkedHost(ctx context.Context, chatID int64) (*models.User, bool) {
	user, err := b.users.GetUserByTelegramChatID(ctx, chatID)
	if err == nil {
		return user, true
	}
	if errors.Is(err, database.ErrNotFound) {
		b.sendMessage(chatID, "This chat is not linked yet. Use /link <username> first.")
		return nil, false
	}
	zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chatID).Msg("Failed to look up linked user")
	b.sendMessage(chatID, b.getErrorMessage(err))
	return nil, false
}

func (b *Bot) handleSpots(ctx context.Context, chatID int64) {
	host, ok := b.linkedHost(ctx, chatID)
	if !ok {
		return
	}

	spots, err := b.spots.ListOwnerSpots(ctx, host.ID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("owner_id", host.ID).Msg("Failed to list spots")
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	if len(spots) == 0 {
		b.sendMessage(chatID, "You have no spots listed.")
		return
	}

	var sb strings.Builder
	sb.WriteString("🏠 Your spots:\n")
	for _, s := range spots {
		fmt.Fprintf(&sb, "\n#%d %s, %s (%.2f per night)", s.ID, s.Name, s.City, s.Price)
	}
	b.sendMessage(chatID, sb.String())
}

func (b *Bot) handleBookings(ctx context.Context, chatID int64) {
	host, ok := b.linkedHost(ctx, chatID)
	if !ok {
		return
	}

	bookings, err := b.bookings.ListHostBookings(ctx, host.ID)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Int64("owner_id", host.ID).Msg("Failed to list host bookings")
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	if len(bookings) == 0 {
		b.sendMessage(chatID, "No upcoming stays at your spots.")
		return
	}

	guests := make(map[int64]string)
	var sb strings.Builder
	sb.WriteString("📅 Upcoming stays:\n")
	for _, bk := range bookings {
		fmt.Fprintf(&sb, "\n%s", b.formatHostBooking(ctx, bk, guests))
	}
	b.sendMessage(chatID, sb.String())
}

func (b *Bot) formatHostBooking(ctx context.Context, bk *models.Booking, guests map[int64]string) string {
	name, ok := guests[bk.UserID]
	if !ok {
		name = fmt.Sprintf("user #%d", bk.UserID)
		if u, err := b.users.GetUserByID(ctx, bk.UserID); err == nil {
			name = u.DisplayName()
		}
		guests[bk.UserID] = name
	}

	spotName := fmt.Sprintf("spot #%d", bk.SpotID)
	if bk.Spot != nil {
		spotName = bk.Spot.Name
	}
	return fmt.Sprintf("#%d %s: %s to %s (%d nights), %s", bk.ID, spotName, bk.StartDate, bk.EndDate, bk.Nights(), name)
}

func (b *Bot) handleExport(ctx context.Context, chatID int64, args string) {
	spotID, err := strconv.ParseInt(strings.TrimPrefix(args, "#"), 10, 64)
	if err != nil || spotID <= 0 {
		b.sendMessage(chatID, "Usage: /export <spotId>")
		return
	}

	host, ok := b.linkedHost(ctx, chatID)
	if !ok {
		return
	}

	l := zerolog.Ctx(ctx).With().Int64("spot_id", spotID).Int64("owner_id", host.ID).Logger()

	listing, err := b.bookings.ListSpotBookings(ctx, host.ID, spotID)
	if err != nil {
		l.Error().Err(err).Msg("Failed to list spot bookings")
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	if !listing.Owner {
		b.sendMessage(chatID, "⚠️ Only the spot owner can do that.")
		return
	}

	spot, err := b.spots.GetSpot(ctx, spotID)
	if err != nil {
		l.Error().Err(err).Msg("Failed to load spot")
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}

	path, err := export.SaveSpotBookings(b.exportDir, spot, listing.Full, b.bookings.Today())
	if err != nil {
		l.Error().Err(err).Msg("Failed to build export")
		b.sendMessage(chatID, b.getErrorMessage(err))
		return
	}
	l.Info().Str("file_path", path).Msg("Excel file created")

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = fmt.Sprintf("%s: %d bookings", spot.Name, len(listing.Full))
	if _, err := b.tg.Send(doc); err != nil {
		l.Error().Err(err).Msg("Failed to send export")
	}
}

const checkUsage = "Usage: /check <spotId> <from> <to>, dates as YYYY-MM-DD"

// handleCheck asks the REST API whether a stay could be booked, acting as the
// linked user.
func (b *Bot) handleCheck(ctx context.Context, chatID int64, args string) {
	if b.api == nil {
		b.sendMessage(chatID, "Availability checks are not configured.")
		return
	}

	parts := strings.Fields(args)
	if len(parts) != 3 {
		b.sendMessage(chatID, checkUsage)
		return
	}
	spotID, err := strconv.ParseInt(strings.TrimPrefix(parts[0], "#"), 10, 64)
	if err != nil || spotID <= 0 {
		b.sendMessage(chatID, checkUsage)
		return
	}
	start, errStart := models.ParseDate(parts[1])
	end, errEnd := models.ParseDate(parts[2])
	if errStart != nil || errEnd != nil {
		b.sendMessage(chatID, checkUsage)
		return
	}

	host, ok := b.linkedHost(ctx, chatID)
	if !ok {
		return
	}

	l := zerolog.Ctx(ctx).With().Int64("spot_id", spotID).Int64("user_id", host.ID).Logger()
	api := b.api.AsUser(host.ID)

	spot, err := api.GetSpot(ctx, spotID)
	if err != nil {
		b.sendAPIError(ctx, chatID, err)
		return
	}
	avail, err := api.CheckAvailability(ctx, spotID, start, end)
	if err != nil {
		b.sendAPIError(ctx, chatID, err)
		return
	}
	l.Debug().Str("outcome", avail.Outcome).Msg("Availability checked")

	b.sendMessage(chatID, formatAvailability(spot, start, end, avail))
}

func formatAvailability(spot *models.Spot, start, end models.Date, avail *client.Availability) string {
	if avail.Available {
		return fmt.Sprintf("✅ %s is free from %s to %s.", spot.Name, start, end)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "❌ %s cannot be booked from %s to %s.", spot.Name, start, end)
	for _, field := range []string{conflict.FieldStartDate, conflict.FieldEndDate} {
		if msg, ok := avail.Errors[field]; ok {
			fmt.Fprintf(&sb, "\n%s", msg)
		}
	}
	for _, c := range avail.Conflicts {
		fmt.Fprintf(&sb, "\nOverlaps booking #%d (%s to %s)", c.BookingID, c.StartDate, c.EndDate)
	}
	return sb.String()
}

func (b *Bot) sendAPIError(ctx context.Context, chatID int64, err error) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusNotFound:
			b.sendMessage(chatID, "⚠️ Nothing found. Check the id and try again.")
			return
		case http.StatusBadRequest:
			if apiErr.Message != "" {
				b.sendMessage(chatID, "⚠️ "+apiErr.Message)
				return
			}
		}
	}
	zerolog.Ctx(ctx).Error().Err(err).Int64("chat_id", chatID).Msg("API request failed")
	b.sendMessage(chatID, b.getErrorMessage(err))
}
