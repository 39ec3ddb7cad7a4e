package database

import (
	"context"
	"errors"
	"testing"

	"staybook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRejected = errors.New("rejected")

func TestBookings_CreateAndList(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	host := createTestUser(t, db, "host")
	guest := createTestUser(t, db, "guest")
	spot := createTestSpot(t, db, host.ID, 100)

	b := &models.Booking{SpotID: spot.ID, UserID: guest.ID, StartDate: date(3, 1), EndDate: date(3, 10)}
	require.NoError(t, db.CreateBookingWithLock(ctx, b, nil))
	assert.NotZero(t, b.ID)
	assert.Equal(t, int64(1), b.Version)

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, date(3, 1), got.StartDate)
	assert.Equal(t, date(3, 10), got.EndDate)

	spotBookings, err := db.ListSpotBookings(ctx, spot.ID)
	require.NoError(t, err)
	require.Len(t, spotBookings, 1)
	require.NotNil(t, spotBookings[0].User)
	assert.Equal(t, guest.ID, spotBookings[0].User.ID)

	mine, err := db.ListUserBookings(ctx, guest.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.NotNil(t, mine[0].Spot)
	assert.Equal(t, host.ID, mine[0].Spot.OwnerID)

	hosted, err := db.ListHostBookings(ctx, host.ID, date(3, 9))
	require.NoError(t, err)
	assert.Len(t, hosted, 1)
	hosted, err = db.ListHostBookings(ctx, host.ID, date(3, 10))
	require.NoError(t, err)
	assert.Empty(t, hosted)

	checkIns, err := db.ListBookingsStartingOn(ctx, date(3, 1))
	require.NoError(t, err)
	require.Len(t, checkIns, 1)
	assert.Equal(t, spot.ID, checkIns[0].Spot.ID)
	checkIns, err = db.ListBookingsStartingOn(ctx, date(3, 2))
	require.NoError(t, err)
	assert.Empty(t, checkIns)

	_, err = db.GetBooking(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBookings_CheckSeesCommittedSnapshot(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	host := createTestUser(t, db, "host")
	guest := createTestUser(t, db, "guest")
	spot := createTestSpot(t, db, host.ID, 100)
	other := createTestSpot(t, db, host.ID, 100)

	require.NoError(t, db.CreateBookingWithLock(ctx,
		&models.Booking{SpotID: spot.ID, UserID: guest.ID, StartDate: date(3, 1), EndDate: date(3, 5)}, nil))
	require.NoError(t, db.CreateBookingWithLock(ctx,
		&models.Booking{SpotID: other.ID, UserID: guest.ID, StartDate: date(3, 1), EndDate: date(3, 5)}, nil))

	var seen []*models.Booking
	err := db.CreateBookingWithLock(ctx,
		&models.Booking{SpotID: spot.ID, UserID: guest.ID, StartDate: date(3, 2), EndDate: date(3, 3)},
		func(existing []*models.Booking) error {
			seen = existing
			return errRejected
		})
	assert.ErrorIs(t, err, errRejected)
	require.Len(t, seen, 1, "only the same spot's bookings are checked")
	assert.Equal(t, spot.ID, seen[0].SpotID)

	all, err := db.ListSpotBookings(ctx, spot.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1, "rejected booking must not be persisted")
}

func TestBookings_RangeConstraint(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	host := createTestUser(t, db, "host")
	spot := createTestSpot(t, db, host.ID, 100)

	err := db.CreateBookingWithLock(ctx,
		&models.Booking{SpotID: spot.ID, UserID: host.ID, StartDate: date(3, 5), EndDate: date(3, 5)}, nil)
	assert.Error(t, err)
}

func TestBookings_UpdateDatesWithVersion(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	host := createTestUser(t, db, "host")
	guest := createTestUser(t, db, "guest")
	spot := createTestSpot(t, db, host.ID, 100)

	b := &models.Booking{SpotID: spot.ID, UserID: guest.ID, StartDate: date(3, 1), EndDate: date(3, 5)}
	require.NoError(t, db.CreateBookingWithLock(ctx, b, nil))

	var seen int
	updated, err := db.UpdateBookingDatesWithVersion(ctx, b.ID, b.Version, date(3, 2), date(3, 6),
		func(existing []*models.Booking) error {
			seen = len(existing)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, 1, seen)
	assert.Equal(t, date(3, 2), updated.StartDate)
	assert.Equal(t, date(3, 6), updated.EndDate)
	assert.Equal(t, int64(2), updated.Version)

	t.Run("StaleVersion", func(t *testing.T) {
		_, err := db.UpdateBookingDatesWithVersion(ctx, b.ID, 1, date(3, 3), date(3, 7), nil)
		assert.ErrorIs(t, err, ErrConcurrentModification)
	})

	t.Run("AnyVersion", func(t *testing.T) {
		got, err := db.UpdateBookingDatesWithVersion(ctx, b.ID, 0, date(3, 3), date(3, 7), nil)
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.Version)
	})

	t.Run("CheckRejects", func(t *testing.T) {
		_, err := db.UpdateBookingDatesWithVersion(ctx, b.ID, 0, date(4, 1), date(4, 2),
			func([]*models.Booking) error { return errRejected })
		assert.ErrorIs(t, err, errRejected)
		got, err := db.GetBooking(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, date(3, 3), got.StartDate)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := db.UpdateBookingDatesWithVersion(ctx, 999, 0, date(4, 1), date(4, 2), nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestBookings_Delete(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	host := createTestUser(t, db, "host")
	spot := createTestSpot(t, db, host.ID, 100)

	b := &models.Booking{SpotID: spot.ID, UserID: host.ID, StartDate: date(3, 1), EndDate: date(3, 5)}
	require.NoError(t, db.CreateBookingWithLock(ctx, b, nil))
	require.NoError(t, db.DeleteBooking(ctx, b.ID))
	assert.ErrorIs(t, db.DeleteBooking(ctx, b.ID), ErrNotFound)
}
