package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"staybook/internal/config"
	"staybook/internal/conflict"
	"staybook/internal/database"
	"staybook/internal/domain"
	"staybook/internal/events"
	"staybook/internal/metrics"
	"staybook/internal/models"

	"github.com/rs/zerolog"
)

const lockRetryDelay = 50 * time.Millisecond

type BookingService struct {
	repo   domain.Repository
	locks  domain.LockRepository
	events domain.EventPublisher
	sync   domain.SyncWorker
	cfg    config.BookingConfig
	loc    *time.Location
	logger *zerolog.Logger
	now    func() time.Time
}

// NewBookingService wires the booking rules. locks, publisher and sync are optional.
func NewBookingService(
	repo domain.Repository,
	locks domain.LockRepository,
	publisher domain.EventPublisher,
	sync domain.SyncWorker,
	cfg config.BookingConfig,
	loc *time.Location,
	logger *zerolog.Logger,
) *BookingService {
	if loc == nil {
		loc = time.UTC
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Second
	}
	return &BookingService{
		repo:   repo,
		locks:  locks,
		events: publisher,
		sync:   sync,
		cfg:    cfg,
		loc:    loc,
		logger: logger,
		now:    time.Now,
	}
}

// Today is the current calendar day in the configured location.
func (s *BookingService) Today() models.Date {
	return models.DateOf(s.now().In(s.loc))
}

// SpotBookings is either the owner's view (Full) or the public view (Dates).
type SpotBookings struct {
	Owner bool
	Full  []*models.Booking
	Dates []models.BookingDates
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.repo.GetBooking(ctx, id)
}

func (s *BookingService) ListUserBookings(ctx context.Context, userID int64) ([]*models.Booking, error) {
	return s.repo.ListUserBookings(ctx, userID)
}

// ListHostBookings returns bookings on the owner's spots that have not ended yet.
func (s *BookingService) ListHostBookings(ctx context.Context, ownerID int64) ([]*models.Booking, error) {
	return s.repo.ListHostBookings(ctx, ownerID, s.Today())
}

// ListCheckIns returns bookings starting on day across all spots.
func (s *BookingService) ListCheckIns(ctx context.Context, day models.Date) ([]*models.Booking, error) {
	return s.repo.ListBookingsStartingOn(ctx, day)
}

func (s *BookingService) ListSpotBookings(ctx context.Context, callerID, spotID int64) (*SpotBookings, error) {
	spot, err := s.repo.GetSpot(ctx, spotID)
	if err != nil {
		return nil, err
	}
	bookings, err := s.repo.ListSpotBookings(ctx, spotID)
	if err != nil {
		return nil, err
	}

	if spot.OwnerID == callerID {
		return &SpotBookings{Owner: true, Full: bookings}, nil
	}
	dates := make([]models.BookingDates, 0, len(bookings))
	for _, b := range bookings {
		dates = append(dates, b.Dates())
	}
	return &SpotBookings{Dates: dates}, nil
}

// CheckAvailability runs the conflict validator against stored bookings
// without writing anything.
func (s *BookingService) CheckAvailability(
	ctx context.Context,
	spotID int64,
	start, end models.Date,
	excludeBookingID int64,
) (conflict.Result, error) {
	exists, err := s.repo.SpotExists(ctx, spotID)
	if err != nil {
		return conflict.Result{}, err
	}
	if !exists {
		return conflict.Result{}, fmt.Errorf("spot %d: %w", spotID, database.ErrNotFound)
	}
	bookings, err := s.repo.ListSpotBookings(ctx, spotID)
	if err != nil {
		return conflict.Result{}, err
	}
	req := conflict.Request{
		SpotID:           spotID,
		Start:            start,
		End:              end,
		ExcludeBookingID: excludeBookingID,
		Today:            s.Today(),
	}
	return conflict.Check(req, conflict.FromBookings(bookings)), nil
}

func (s *BookingService) CreateBooking(ctx context.Context, userID, spotID int64, start, end models.Date) (*models.Booking, error) {
	spot, err := s.repo.GetSpot(ctx, spotID)
	if err != nil {
		return nil, err
	}
	if spot.OwnerID == userID {
		return nil, fmt.Errorf("%w: owners can't book their own spot", domain.ErrForbidden)
	}

	today := s.Today()
	if err := s.checkPolicy(start, end, today); err != nil {
		s.reject(err)
		return nil, err
	}

	booking := &models.Booking{
		SpotID:    spotID,
		UserID:    userID,
		StartDate: start,
		EndDate:   end,
	}
	req := conflict.Request{SpotID: spotID, Start: start, End: end, Today: today}

	err = s.withSpotLock(ctx, spotID, func() error {
		return s.repo.CreateBookingWithLock(ctx, booking, validate(req))
	})
	if err != nil {
		s.reject(err)
		return nil, err
	}

	booking.Spot = spot.Summary()
	metrics.IncBooking("created")
	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("spot_id", spotID).
		Int64("user_id", userID).
		Str("start", start.String()).
		Str("end", end.String()).
		Msg("booking created")

	s.publishEvent(ctx, events.EventBookingCreated, booking, spot, userID)
	s.enqueueUpsert(ctx, booking)
	return booking, nil
}

func (s *BookingService) UpdateBooking(ctx context.Context, userID, bookingID int64, start, end models.Date) (*models.Booking, error) {
	current, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if current.UserID != userID {
		return nil, fmt.Errorf("%w: booking must belong to the current user", domain.ErrForbidden)
	}

	today := s.Today()
	if current.EndDate.Before(today) {
		return nil, domain.ErrBookingEnded
	}
	if err := s.checkPolicy(start, end, today); err != nil {
		s.reject(err)
		return nil, err
	}

	req := conflict.Request{
		SpotID:           current.SpotID,
		Start:            start,
		End:              end,
		ExcludeBookingID: current.ID,
		Today:            today,
	}

	var updated *models.Booking
	err = s.withSpotLock(ctx, current.SpotID, func() error {
		var uerr error
		updated, uerr = s.repo.UpdateBookingDatesWithVersion(ctx, current.ID, current.Version, start, end, validate(req))
		return uerr
	})
	if err != nil {
		s.reject(err)
		return nil, err
	}

	metrics.IncBooking("updated")
	s.logger.Info().
		Int64("booking_id", updated.ID).
		Str("start", start.String()).
		Str("end", end.String()).
		Msg("booking dates changed")

	s.publishEvent(ctx, events.EventBookingUpdated, updated, nil, userID)
	s.enqueueUpsert(ctx, updated)
	return updated, nil
}

// DeleteBooking cancels a booking that has not started. Only the renter may
// cancel.
func (s *BookingService) DeleteBooking(ctx context.Context, userID, bookingID int64) error {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if booking.UserID != userID {
		return fmt.Errorf("%w: booking must belong to the current user", domain.ErrForbidden)
	}

	if !booking.StartDate.After(s.Today()) {
		return domain.ErrBookingStarted
	}

	if err := s.repo.DeleteBooking(ctx, bookingID); err != nil {
		return err
	}

	metrics.IncBooking("deleted")
	s.logger.Info().Int64("booking_id", bookingID).Int64("by_user", userID).Msg("booking deleted")

	s.publishEvent(ctx, events.EventBookingDeleted, booking, nil, userID)
	if s.sync != nil {
		if err := s.sync.EnqueueBookingDelete(ctx, bookingID); err != nil {
			s.logger.Error().Err(err).Int64("booking_id", bookingID).Msg("sheets enqueue error")
		}
	}
	return nil
}

// checkPolicy applies the configured stay limits. Range and past-date
// checks belong to the conflict validator.
func (s *BookingService) checkPolicy(start, end, today models.Date) error {
	if !start.Before(end) {
		return nil
	}
	var v domain.Validator
	if s.cfg.MaxStayNights > 0 {
		v.Check(start.DaysUntil(end) <= s.cfg.MaxStayNights,
			conflict.FieldEndDate, fmt.Sprintf("Stays can't be longer than %d nights", s.cfg.MaxStayNights))
	}
	if s.cfg.MaxAdvanceDays > 0 {
		v.Check(!start.After(today.AddDays(s.cfg.MaxAdvanceDays)),
			conflict.FieldStartDate, fmt.Sprintf("Bookings open %d days in advance", s.cfg.MaxAdvanceDays))
	}
	return v.Err()
}

func validate(req conflict.Request) models.BookingCheck {
	return func(existing []*models.Booking) error {
		return conflict.Check(req, conflict.FromBookings(existing)).Err()
	}
}

// withSpotLock serializes writers of one spot across processes. The sqlite
// transaction still re-checks, so a broken lock backend only costs contention.
func (s *BookingService) withSpotLock(ctx context.Context, spotID int64, fn func() error) error {
	if s.locks == nil {
		return fn()
	}

	key := fmt.Sprintf("spot:%d", spotID)
	deadline := time.Now().Add(s.cfg.LockWait)
	for {
		token, ok, err := s.locks.AcquireLock(ctx, key, s.cfg.LockTTL)
		if err != nil {
			s.logger.Warn().Err(err).Int64("spot_id", spotID).Msg("spot lock unavailable, continuing without it")
			return fn()
		}
		if ok {
			defer func() {
				if err := s.locks.ReleaseLock(context.WithoutCancel(ctx), key, token); err != nil {
					s.logger.Warn().Err(err).Int64("spot_id", spotID).Msg("failed to release spot lock")
				}
			}()
			return fn()
		}
		if !time.Now().Before(deadline) {
			return domain.ErrSpotBusy
		}

		timer := time.NewTimer(lockRetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *BookingService) reject(err error) {
	var verr *domain.ValidationError
	reason := ""
	switch {
	case errors.Is(err, conflict.ErrConflict):
		reason = "conflict"
	case errors.Is(err, conflict.ErrInvalidRange):
		reason = "invalid_range"
	case errors.Is(err, conflict.ErrPastDate):
		reason = "past_date"
	case errors.Is(err, domain.ErrSpotBusy):
		reason = "spot_busy"
	case errors.Is(err, database.ErrConcurrentModification):
		reason = "concurrent_modification"
	case errors.As(err, &verr):
		reason = "policy"
	default:
		return
	}
	metrics.IncBookingRejected(reason)
}

func (s *BookingService) publishEvent(ctx context.Context, eventType string, booking *models.Booking, spot *models.Spot, actorID int64) {
	if s.events == nil {
		return
	}

	if spot == nil {
		var err error
		if spot, err = s.repo.GetSpot(ctx, booking.SpotID); err != nil {
			s.logger.Warn().Err(err).Int64("spot_id", booking.SpotID).Msg("event without spot details")
			spot = &models.Spot{ID: booking.SpotID}
		}
	}

	payload := events.BookingEventPayload{
		BookingID:   booking.ID,
		SpotID:      booking.SpotID,
		SpotName:    spot.Name,
		OwnerID:     spot.OwnerID,
		UserID:      booking.UserID,
		StartDate:   booking.StartDate,
		EndDate:     booking.EndDate,
		ChangedByID: actorID,
	}
	if u, err := s.repo.GetUserByID(ctx, booking.UserID); err == nil {
		payload.UserName = u.DisplayName()
	}

	if err := s.events.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueUpsert(ctx context.Context, booking *models.Booking) {
	if s.sync == nil {
		return
	}
	if err := s.sync.EnqueueBookingUpsert(ctx, booking); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("sheets enqueue error")
	}
}
