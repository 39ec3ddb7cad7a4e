package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"staybook/internal/models"
)

const bookingColumns = `b.id, b.spot_id, b.user_id, b.start_date, b.end_date, b.version, b.created_at, b.updated_at`

func scanBooking(row rowScanner, extra ...interface{}) (*models.Booking, error) {
	var b models.Booking
	dest := append([]interface{}{
		&b.ID, &b.SpotID, &b.UserID, &b.StartDate, &b.EndDate, &b.Version, &b.CreatedAt, &b.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &b, nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return getBooking(ctx, db, id)
}

func getBooking(ctx context.Context, q queryer, id int64) (*models.Booking, error) {
	b, err := scanBooking(q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings b WHERE b.id = ?`, id))
	if err != nil {
		return nil, notFound(err, "booking", id)
	}
	return b, nil
}

// ListSpotBookings returns the spot's bookings ordered by start date, each
// with the renter attached.
func (db *DB) ListSpotBookings(ctx context.Context, spotID int64) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + `, u.first_name, u.last_name
              FROM bookings b JOIN users u ON u.id = b.user_id
              WHERE b.spot_id = ? ORDER BY b.start_date, b.id`
	rows, err := db.QueryContext(ctx, query, spotID)
	if err != nil {
		return nil, fmt.Errorf("failed to list spot bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		renter := &models.UserSummary{}
		b, err := scanBooking(rows, &renter.FirstName, &renter.LastName)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		renter.ID = b.UserID
		b.User = renter
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// ListUserBookings returns the user's bookings with the booked spot attached.
func (db *DB) ListUserBookings(ctx context.Context, userID int64) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + `, s.owner_id, s.name, s.city, s.country, s.price,
                     COALESCE((SELECT i.url FROM spot_images i WHERE i.spot_id = s.id AND i.preview = 1
                               ORDER BY i.id DESC LIMIT 1), '')
              FROM bookings b JOIN spots s ON s.id = b.spot_id
              WHERE b.user_id = ? ORDER BY b.start_date, b.id`
	return db.queryBookingsWithSpot(ctx, query, userID)
}

// ListHostBookings returns bookings on the owner's spots that end after from.
func (db *DB) ListHostBookings(ctx context.Context, ownerID int64, from models.Date) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + `, s.owner_id, s.name, s.city, s.country, s.price,
                     COALESCE((SELECT i.url FROM spot_images i WHERE i.spot_id = s.id AND i.preview = 1
                               ORDER BY i.id DESC LIMIT 1), '')
              FROM bookings b JOIN spots s ON s.id = b.spot_id
              WHERE s.owner_id = ? AND b.end_date > ? ORDER BY b.start_date, b.id`
	return db.queryBookingsWithSpot(ctx, query, ownerID, from)
}

// ListBookingsStartingOn returns every booking whose stay begins on day.
func (db *DB) ListBookingsStartingOn(ctx context.Context, day models.Date) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + `, s.owner_id, s.name, s.city, s.country, s.price,
                     COALESCE((SELECT i.url FROM spot_images i WHERE i.spot_id = s.id AND i.preview = 1
                               ORDER BY i.id DESC LIMIT 1), '')
              FROM bookings b JOIN spots s ON s.id = b.spot_id
              WHERE b.start_date = ? ORDER BY s.owner_id, b.id`
	return db.queryBookingsWithSpot(ctx, query, day)
}

func (db *DB) queryBookingsWithSpot(ctx context.Context, query string, args ...interface{}) ([]*models.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		spot := &models.SpotSummary{}
		b, err := scanBooking(rows, &spot.OwnerID, &spot.Name, &spot.City, &spot.Country, &spot.Price, &spot.PreviewImage)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		spot.ID = b.SpotID
		b.Spot = spot
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func spotBookingsTx(ctx context.Context, tx *sql.Tx, spotID int64) ([]*models.Booking, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings b WHERE b.spot_id = ? ORDER BY b.start_date, b.id`, spotID)
	if err != nil {
		return nil, fmt.Errorf("failed to load spot bookings in tx: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking in tx: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// CreateBookingWithLock re-reads the spot's bookings inside an immediate
// transaction and inserts only if check accepts that snapshot. At most one
// committed booking can claim any night of a spot.
func (db *DB) CreateBookingWithLock(ctx context.Context, booking *models.Booking, check models.BookingCheck) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	existing, err := spotBookingsTx(ctx, tx, booking.SpotID)
	if err != nil {
		return err
	}
	if check != nil {
		if err = check(existing); err != nil {
			return err
		}
	}

	query := `INSERT INTO bookings (spot_id, user_id, start_date, end_date, version, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := tx.ExecContext(ctx, query,
		booking.SpotID,
		booking.UserID,
		booking.StartDate,
		booking.EndDate,
		1,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	return nil
}

// UpdateBookingDatesWithVersion moves a booking to new dates. fromVersion of
// zero skips the optimistic check; check sees every booking of the spot,
// including the one being moved.
func (db *DB) UpdateBookingDatesWithVersion(
	ctx context.Context,
	id, fromVersion int64,
	start, end models.Date,
	check models.BookingCheck,
) (*models.Booking, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	current, err := getBooking(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if fromVersion != 0 && current.Version != fromVersion {
		return nil, ErrConcurrentModification
	}

	existing, err := spotBookingsTx(ctx, tx, current.SpotID)
	if err != nil {
		return nil, err
	}
	if check != nil {
		if err = check(existing); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET start_date = ?, end_date = ?, version = version + 1, updated_at = ?
         WHERE id = ? AND version = ?`,
		start, end, now, id, current.Version)
	if err != nil {
		return nil, fmt.Errorf("failed to update booking dates: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrConcurrentModification
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit booking update: %w", err)
	}

	current.StartDate = start
	current.EndDate = end
	current.Version++
	current.UpdatedAt = now
	return current, nil
}

func (db *DB) DeleteBooking(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("booking %d: %w", id, ErrNotFound)
	}
	return nil
}

// IsNotFound reports whether err came from a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
