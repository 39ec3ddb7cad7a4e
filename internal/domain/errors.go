package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrForbidden      = errors.New("forbidden")
	ErrSpotBusy       = errors.New("spot is being booked by another request, try again")
	ErrBookingStarted = errors.New("bookings that have been started can't be deleted")
	ErrBookingEnded   = errors.New("past bookings can't be modified")
)

// ValidationError carries one message per invalid request field.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Message: "Bad Request", Fields: fields}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return e.Message + ": " + strings.Join(parts, "; ")
}

// Validator accumulates field errors.
type Validator struct {
	fields map[string]string
}

func (v *Validator) Check(ok bool, field, message string) {
	if ok {
		return
	}
	if v.fields == nil {
		v.fields = make(map[string]string)
	}
	if _, exists := v.fields[field]; !exists {
		v.fields[field] = message
	}
}

// Err returns a *ValidationError when any check failed.
func (v *Validator) Err() error {
	if len(v.fields) == 0 {
		return nil
	}
	return NewValidationError(v.fields)
}
