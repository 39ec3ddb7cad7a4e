// Package conflict decides whether a proposed stay may be booked on a spot.
//
// Stays are half-open calendar-date intervals [start, end). Two stays overlap
// iff s1 < e2 && s2 < e1, so a checkout and a check-in on the same day never
// collide. Check is pure; fetching the spot's bookings is the caller's job.
package conflict

import (
	"errors"
	"fmt"
	"strings"

	"staybook/internal/models"
)

var (
	ErrInvalidRange = errors.New("end date must be after start date")
	ErrPastDate     = errors.New("start date cannot be in the past")
	ErrConflict     = errors.New("dates conflict with an existing booking")
)

// Outcome tags a Result.
type Outcome int

const (
	NoConflict Outcome = iota
	InvalidRange
	PastDate
	Conflict
)

func (o Outcome) String() string {
	switch o {
	case NoConflict:
		return "no_conflict"
	case InvalidRange:
		return "invalid_range"
	case PastDate:
		return "past_date"
	case Conflict:
		return "conflict"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Shape describes how a proposed stay lands on an existing one.
type Shape string

const (
	StartsWithinExisting Shape = "starts_within_existing"
	EndsWithinExisting   Shape = "ends_within_existing"
	Surrounds            Shape = "surrounds"
	SurroundedBy         Shape = "surrounded_by"
)

// Request field names used in per-field error messages.
const (
	FieldStartDate = "startDate"
	FieldEndDate   = "endDate"
)

// Existing is a stay already on the spot.
type Existing struct {
	ID    int64
	Start models.Date
	End   models.Date
}

// FromBookings projects stored bookings onto Existing.
func FromBookings(bookings []*models.Booking) []Existing {
	out := make([]Existing, 0, len(bookings))
	for _, b := range bookings {
		if b == nil {
			continue
		}
		out = append(out, Existing{ID: b.ID, Start: b.StartDate, End: b.EndDate})
	}
	return out
}

type Request struct {
	SpotID int64
	Start  models.Date
	End    models.Date
	// ExcludeBookingID drops the booking being edited. Zero excludes nothing.
	ExcludeBookingID int64
	// Today enables the past-date rule. The zero Date disables it.
	Today models.Date
}

// Entry is one existing booking hit by the proposed stay.
type Entry struct {
	BookingID int64       `json:"bookingId"`
	StartDate models.Date `json:"startDate"`
	EndDate   models.Date `json:"endDate"`
	Shapes    []Shape     `json:"shapes"`
}

// Has reports whether shape applies to the entry.
func (e Entry) Has(shape Shape) bool {
	for _, s := range e.Shapes {
		if s == shape {
			return true
		}
	}
	return false
}

// Fields lists the request fields the entry implicates.
func (e Entry) Fields() []string {
	var start, end bool
	for _, s := range e.Shapes {
		switch s {
		case StartsWithinExisting:
			start = true
		case EndsWithinExisting:
			end = true
		case Surrounds, SurroundedBy:
			start, end = true, true
		}
	}
	var fields []string
	if start {
		fields = append(fields, FieldStartDate)
	}
	if end {
		fields = append(fields, FieldEndDate)
	}
	return fields
}

type Result struct {
	Outcome   Outcome
	Conflicts []Entry
}

func (r Result) OK() bool { return r.Outcome == NoConflict }

// FieldErrors maps request fields to user-facing messages. Empty when OK.
func (r Result) FieldErrors() map[string]string {
	out := make(map[string]string)
	switch r.Outcome {
	case InvalidRange:
		out[FieldEndDate] = "endDate cannot be on or before startDate"
	case PastDate:
		out[FieldStartDate] = "startDate cannot be in the past"
	case Conflict:
		for _, c := range r.Conflicts {
			for _, f := range c.Fields() {
				switch f {
				case FieldStartDate:
					out[f] = "Start date conflicts with an existing booking"
				case FieldEndDate:
					out[f] = "End date conflicts with an existing booking"
				}
			}
		}
	}
	return out
}

// Err converts the result into an error, nil when OK.
func (r Result) Err() error {
	switch r.Outcome {
	case InvalidRange:
		return ErrInvalidRange
	case PastDate:
		return ErrPastDate
	case Conflict:
		return &ConflictError{Conflicts: r.Conflicts}
	default:
		return nil
	}
}

// ConflictError carries every booking the proposed stay collides with.
type ConflictError struct {
	Conflicts []Entry
}

func (e *ConflictError) Error() string {
	ids := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		ids = append(ids, fmt.Sprintf("%d", c.BookingID))
	}
	return fmt.Sprintf("%s: %s", ErrConflict.Error(), strings.Join(ids, ", "))
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// Result rebuilds the tagged result, for callers that only kept the error.
func (e *ConflictError) Result() Result {
	return Result{Outcome: Conflict, Conflicts: e.Conflicts}
}

// Overlaps reports whether [s1, e1) and [s2, e2) share at least one night.
func Overlaps(s1, e1, s2, e2 models.Date) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// Classify returns every shape of [start, end) against [exStart, exEnd).
// The intervals must overlap; for disjoint ones the result is empty.
func Classify(start, end, exStart, exEnd models.Date) []Shape {
	if !Overlaps(start, end, exStart, exEnd) {
		return nil
	}
	var shapes []Shape
	if !start.Before(exStart) && start.Before(exEnd) {
		shapes = append(shapes, StartsWithinExisting)
	}
	if exStart.Before(end) && !end.After(exEnd) {
		shapes = append(shapes, EndsWithinExisting)
	}
	if start.Before(exStart) && exEnd.Before(end) {
		shapes = append(shapes, Surrounds)
	}
	if exStart.Before(start) && end.Before(exEnd) {
		shapes = append(shapes, SurroundedBy)
	}
	return shapes
}

// Check validates req against the spot's existing bookings.
//
// The range is checked first, then the past-date rule, then every remaining
// booking is tested and all collisions are returned in input order.
func Check(req Request, existing []Existing) Result {
	if !req.Start.Before(req.End) {
		return Result{Outcome: InvalidRange}
	}
	if !req.Today.IsZero() && req.Start.Before(req.Today) {
		return Result{Outcome: PastDate}
	}

	var hits []Entry
	for _, ex := range existing {
		if req.ExcludeBookingID != 0 && ex.ID == req.ExcludeBookingID {
			continue
		}
		if !Overlaps(req.Start, req.End, ex.Start, ex.End) {
			continue
		}
		hits = append(hits, Entry{
			BookingID: ex.ID,
			StartDate: ex.Start,
			EndDate:   ex.End,
			Shapes:    Classify(req.Start, req.End, ex.Start, ex.End),
		})
	}
	if len(hits) > 0 {
		return Result{Outcome: Conflict, Conflicts: hits}
	}
	return Result{Outcome: NoConflict}
}
