package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		ObserveHTTP("/api/v1/spots", http.StatusOK, 15*time.Millisecond)
	})

	before := testutil.ToFloat64(bookings.WithLabelValues("created"))
	IncBooking("created")
	assert.Equal(t, before+1, testutil.ToFloat64(bookings.WithLabelValues("created")))

	before = testutil.ToFloat64(bookingRejections.WithLabelValues("conflict"))
	IncBookingRejected("conflict")
	assert.Equal(t, before+1, testutil.ToFloat64(bookingRejections.WithLabelValues("conflict")))

	IncSyncTask("upsert_booking", "done")
	assert.Equal(t, float64(1), testutil.ToFloat64(syncTasks.WithLabelValues("upsert_booking", "done")))
}
