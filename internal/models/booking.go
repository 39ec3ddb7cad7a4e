package models

import "time"

// Booking reserves a spot over the half-open stay [StartDate, EndDate).
type Booking struct {
	ID        int64     `json:"id"`
	SpotID    int64     `json:"spotId"`
	UserID    int64     `json:"userId"`
	StartDate Date      `json:"startDate"`
	EndDate   Date      `json:"endDate"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Version   int64     `json:"version"`

	Spot *SpotSummary `json:"Spot,omitempty"`
	User *UserSummary `json:"User,omitempty"`
}

// Nights is the number of nights covered by the stay.
func (b *Booking) Nights() int {
	return b.StartDate.DaysUntil(b.EndDate)
}

// BookingDates is what non-owners may see of a booking on someone else's spot.
type BookingDates struct {
	SpotID    int64 `json:"spotId"`
	StartDate Date  `json:"startDate"`
	EndDate   Date  `json:"endDate"`
}

func (b *Booking) Dates() BookingDates {
	return BookingDates{SpotID: b.SpotID, StartDate: b.StartDate, EndDate: b.EndDate}
}

// BookingCheck inspects a spot's committed bookings inside the write
// transaction and returns a non-nil error to abort the write.
type BookingCheck func(existing []*Booking) error
