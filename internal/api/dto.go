package api

import (
	"staybook/internal/models"
)

type createUserRequest struct {
	FirstName string `json:"firstName" validate:"required,max=50"`
	LastName  string `json:"lastName" validate:"required,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Username  string `json:"username" validate:"required,min=2,max=30,excludes=@"`
}

type spotRequest struct {
	Address     string   `json:"address" validate:"required"`
	City        string   `json:"city" validate:"required"`
	State       string   `json:"state" validate:"required"`
	Country     string   `json:"country" validate:"required"`
	Lat         *float64 `json:"lat" validate:"required"`
	Lng         *float64 `json:"lng" validate:"required"`
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Price       *float64 `json:"price" validate:"required"`
}

// spot copies the request; range rules are enforced by the spot service.
func (r spotRequest) spot() *models.Spot {
	s := &models.Spot{
		Address:     r.Address,
		City:        r.City,
		State:       r.State,
		Country:     r.Country,
		Name:        r.Name,
		Description: r.Description,
	}
	if r.Lat != nil {
		s.Lat = *r.Lat
	}
	if r.Lng != nil {
		s.Lng = *r.Lng
	}
	if r.Price != nil {
		s.Price = *r.Price
	}
	return s
}

type spotImageRequest struct {
	URL     string `json:"url" validate:"required,url"`
	Preview bool   `json:"preview"`
}

type reviewRequest struct {
	Review string `json:"review" validate:"required"`
	Stars  int    `json:"stars" validate:"required,min=1,max=5"`
}

type reviewImageRequest struct {
	URL string `json:"url" validate:"required,url"`
}

type bookingRequest struct {
	StartDate *models.Date `json:"startDate" validate:"required"`
	EndDate   *models.Date `json:"endDate" validate:"required"`
}

type availabilityRequest struct {
	StartDate        *models.Date `json:"startDate" validate:"required"`
	EndDate          *models.Date `json:"endDate" validate:"required"`
	ExcludeBookingID int64        `json:"excludeBookingId" validate:"gte=0"`
}
