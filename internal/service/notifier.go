package service

import (
	"context"
	"fmt"
	"time"

	"staybook/internal/domain"
	"staybook/internal/events"

	"github.com/rs/zerolog"
)

const notifyTimeout = 5 * time.Second

// HostNotifier tells spot owners about bookings on their spots through
// Telegram. Owners without a linked chat are skipped.
type HostNotifier struct {
	users    domain.UserRepository
	notifier domain.Notifier
	logger   *zerolog.Logger
}

func NewHostNotifier(users domain.UserRepository, notifier domain.Notifier, logger *zerolog.Logger) *HostNotifier {
	return &HostNotifier{users: users, notifier: notifier, logger: logger}
}

// Subscribe attaches the notifier to every booking event on the bus.
func (n *HostNotifier) Subscribe(bus *events.EventBus) {
	bus.Subscribe(n.Handle, events.BookingEvents...)
}

// Handle never fails the publisher; delivery problems are only logged.
func (n *HostNotifier) Handle(event *events.Event) error {
	var payload events.BookingEventPayload
	if err := event.Decode(&payload); err != nil {
		n.logger.Error().Err(err).Str("event_type", event.Type).Msg("bad booking event payload")
		return nil
	}
	if payload.OwnerID == 0 || payload.ChangedByID == payload.OwnerID {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	owner, err := n.users.GetUserByID(ctx, payload.OwnerID)
	if err != nil {
		n.logger.Warn().Err(err).Int64("owner_id", payload.OwnerID).Msg("host lookup failed")
		return nil
	}
	if owner.TelegramChatID == 0 {
		return nil
	}

	text := FormatBookingEvent(event.Type, payload)
	if text == "" {
		return nil
	}
	if _, err := n.notifier.SendMessage(owner.TelegramChatID, text); err != nil {
		n.logger.Error().Err(err).
			Int64("owner_id", owner.ID).
			Int64("booking_id", payload.BookingID).
			Msg("host notification failed")
	}
	return nil
}

// FormatBookingEvent renders the host-facing message for a booking event.
func FormatBookingEvent(eventType string, p events.BookingEventPayload) string {
	guest := p.UserName
	if guest == "" {
		guest = fmt.Sprintf("guest #%d", p.UserID)
	}
	spot := p.SpotName
	if spot == "" {
		spot = fmt.Sprintf("spot #%d", p.SpotID)
	}
	nights := p.StartDate.DaysUntil(p.EndDate)

	switch eventType {
	case events.EventBookingCreated:
		return fmt.Sprintf("New booking #%d at %s\nGuest: %s\nStay: %s to %s (%d nights)",
			p.BookingID, spot, guest, p.StartDate, p.EndDate, nights)
	case events.EventBookingUpdated:
		return fmt.Sprintf("Booking #%d at %s was moved\nGuest: %s\nNew stay: %s to %s (%d nights)",
			p.BookingID, spot, guest, p.StartDate, p.EndDate, nights)
	case events.EventBookingDeleted:
		return fmt.Sprintf("Booking #%d at %s was cancelled\nGuest: %s\nStay was: %s to %s",
			p.BookingID, spot, guest, p.StartDate, p.EndDate)
	}
	return ""
}
