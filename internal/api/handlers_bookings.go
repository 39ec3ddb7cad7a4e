package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"staybook/internal/conflict"
	"staybook/internal/database"
	"staybook/internal/domain"
	"staybook/internal/export"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func isNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}

func (s *HTTPServer) listMyBookings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID, ok := s.reader(w, r)
	if !ok {
		return
	}
	bookings, err := s.svc.Bookings.ListUserBookings(r.Context(), userID)
	if err != nil {
		writeError(w, r, err, "Booking")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"Bookings": bookings})
}

// listSpotBookings shows full records to the owner and dates to everyone else.
func (s *HTTPServer) listSpotBookings(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := s.reader(w, r)
	if !ok {
		return
	}
	spotID, err := pathID(ps, "spotId")
	if err != nil {
		writeError(w, r, err, "Spot")
		return
	}
	listing, err := s.svc.Bookings.ListSpotBookings(r.Context(), userID, spotID)
	if err != nil {
		writeError(w, r, err, "Spot")
		return
	}
	if listing.Owner {
		writeJSON(w, http.StatusOK, map[string]any{"Bookings": listing.Full})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"Bookings": listing.Dates})
}

func (s *HTTPServer) createBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := s.writer(w, r)
	if !ok {
		return
	}
	spotID, err := pathID(ps, "spotId")
	if err != nil {
		writeError(w, r, err, "Spot")
		return
	}
	var req bookingRequest
	if err := s.requests.decode(r, &req); err != nil {
		writeError(w, r, err, "Booking")
		return
	}
	booking, err := s.svc.Bookings.CreateBooking(r.Context(), userID, spotID, *req.StartDate, *req.EndDate)
	if err != nil {
		writeError(w, r, err, "Spot")
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) updateBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := s.writer(w, r)
	if !ok {
		return
	}
	bookingID, err := pathID(ps, "bookingId")
	if err != nil {
		writeError(w, r, err, "Booking")
		return
	}
	var req bookingRequest
	if err := s.requests.decode(r, &req); err != nil {
		writeError(w, r, err, "Booking")
		return
	}
	booking, err := s.svc.Bookings.UpdateBooking(r.Context(), userID, bookingID, *req.StartDate, *req.EndDate)
	if err != nil {
		writeError(w, r, err, "Booking")
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) deleteBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := s.writer(w, r)
	if !ok {
		return
	}
	bookingID, err := pathID(ps, "bookingId")
	if err != nil {
		writeError(w, r, err, "Booking")
		return
	}
	if err := s.svc.Bookings.DeleteBooking(r.Context(), userID, bookingID); err != nil {
		writeError(w, r, err, "Booking")
		return
	}
	writeMessage(w, http.StatusOK, "Successfully deleted")
}

type availabilityResponse struct {
	Available bool              `json:"available"`
	Outcome   string            `json:"outcome"`
	Errors    map[string]string `json:"errors,omitempty"`
	Conflicts []conflict.Entry  `json:"conflicts,omitempty"`
}

// checkAvailability is a dry run of the booking rules; it never writes.
func (s *HTTPServer) checkAvailability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	spotID, err := pathID(ps, "spotId")
	if err != nil {
		writeError(w, r, err, "Spot")
		return
	}
	var req availabilityRequest
	if err := s.requests.decode(r, &req); err != nil {
		writeError(w, r, err, "Spot")
		return
	}
	res, err := s.svc.Bookings.CheckAvailability(r.Context(), spotID, *req.StartDate, *req.EndDate, req.ExcludeBookingID)
	if err != nil {
		writeError(w, r, err, "Spot")
		return
	}

	resp := availabilityResponse{Available: res.OK(), Outcome: res.Outcome.String(), Conflicts: res.Conflicts}
	if fields := res.FieldErrors(); len(fields) > 0 {
		resp.Errors = fields
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *HTTPServer) exportBookings(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID, ok := s.reader(w, r)
	if !ok {
		return
	}
	spotID, err := pathID(ps, "spotId")
	if err != nil {
		writeError(w, r, err, "Spot")
		return
	}
	listing, err := s.svc.Bookings.ListSpotBookings(r.Context(), userID, spotID)
	if err != nil {
		writeError(w, r, err, "Spot")
		return
	}
	if !listing.Owner {
		writeError(w, r, domain.ErrForbidden, "Spot")
		return
	}
	spot, err := s.svc.Spots.GetSpot(r.Context(), spotID)
	if err != nil {
		writeError(w, r, err, "Spot")
		return
	}

	f, err := export.SpotBookingsWorkbook(spot, listing.Full, s.svc.Bookings.Today())
	if err != nil {
		writeError(w, r, err, "Spot")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(spot, time.Now())))
	w.WriteHeader(http.StatusOK)
	if _, err := f.WriteTo(w); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Int64("spot_id", spotID).Msg("export write failed")
	}
}
