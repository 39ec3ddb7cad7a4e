package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"staybook/internal/models"
)

// StartReminders tells hosts about the next day's check-ins once a day at
// the configured local time.
func (b *Bot) StartReminders(ctx context.Context) {
	if b == nil || b.tg == nil {
		return
	}

	at, err := time.Parse("15:04", b.cfg.ReminderTime)
	if err != nil {
		b.logger.Error().Err(err).Str("reminder_time", b.cfg.ReminderTime).Msg("Invalid reminder time format")
		return
	}

	go func() {
		timer := time.NewTimer(timeUntilNext(time.Now().In(b.loc), at.Hour(), at.Minute()))
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				b.sendCheckInReminders(ctx)
				timer.Reset(timeUntilNext(time.Now().In(b.loc), at.Hour(), at.Minute()))
			}
		}
	}()
}

func (b *Bot) sendCheckInReminders(ctx context.Context) {
	day := b.bookings.Today().AddDays(1)

	bookings, err := b.bookings.ListCheckIns(ctx, day)
	if err != nil {
		b.logger.Error().Err(err).Stringer("day", day).Msg("reminder: list check-ins error")
		return
	}

	byOwner := make(map[int64][]*models.Booking)
	var owners []int64
	for _, bk := range bookings {
		if bk.Spot == nil {
			continue
		}
		if _, seen := byOwner[bk.Spot.OwnerID]; !seen {
			owners = append(owners, bk.Spot.OwnerID)
		}
		byOwner[bk.Spot.OwnerID] = append(byOwner[bk.Spot.OwnerID], bk)
	}

	guests := make(map[int64]string)
	for _, ownerID := range owners {
		owner, err := b.users.GetUserByID(ctx, ownerID)
		if err != nil {
			b.logger.Error().Err(err).Int64("owner_id", ownerID).Msg("reminder: load owner error")
			continue
		}
		if owner.TelegramChatID == 0 {
			continue
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "🔔 Check-ins tomorrow (%s):\n", day)
		for _, bk := range byOwner[ownerID] {
			fmt.Fprintf(&sb, "\n%s", b.formatHostBooking(ctx, bk, guests))
		}

		if _, err := b.tg.SendMessage(owner.TelegramChatID, sb.String()); err != nil {
			b.logger.Error().Err(err).Int64("chat_id", owner.TelegramChatID).Msg("reminder: send error")
			continue
		}
		if b.metrics != nil {
			b.metrics.RemindersSent.Inc()
		}
	}
}

func timeUntilNext(now time.Time, hour, minute int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
