package database

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"staybook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errOverlap = errors.New("overlap")

// rejectOverlap is a minimal stand-in for the conflict validator.
func rejectOverlap(start, end models.Date) models.BookingCheck {
	return func(existing []*models.Booking) error {
		for _, b := range existing {
			if start.Before(b.EndDate) && b.StartDate.Before(end) {
				return errOverlap
			}
		}
		return nil
	}
}

func TestConcurrentBooking(t *testing.T) {
	logger := zerolog.Nop()
	dbPath := filepath.Join(t.TempDir(), "concurrency.db")
	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	host := createTestUser(t, db, "host")
	spot := createTestSpot(t, db, host.ID, 100)

	const numGoroutines = 10
	guests := make([]*models.User, numGoroutines)
	for i := range guests {
		guests[i] = createTestUser(t, db, "guest"+string(rune('a'+i)))
	}

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	results := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(i int) {
			defer wg.Done()
			// Every request overlaps every other one on the night of 3/5.
			start := date(3, 1+i%4)
			end := date(3, 6+i%3)
			booking := &models.Booking{SpotID: spot.ID, UserID: guests[i].ID, StartDate: start, EndDate: end}
			results <- db.CreateBookingWithLock(ctx, booking, rejectOverlap(start, end))
		}(i)
	}

	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		if err == nil {
			successCount++
			continue
		}
		assert.ErrorIs(t, err, errOverlap)
	}
	assert.Equal(t, 1, successCount, "exactly one overlapping booking may commit")

	bookings, err := db.ListSpotBookings(ctx, spot.ID)
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
}
