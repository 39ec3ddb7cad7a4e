package models

import "time"

type Spot struct {
	ID          int64     `json:"id" yaml:"id"`
	OwnerID     int64     `json:"ownerId" yaml:"owner_id"`
	Address     string    `json:"address" yaml:"address"`
	City        string    `json:"city" yaml:"city"`
	State       string    `json:"state" yaml:"state"`
	Country     string    `json:"country" yaml:"country"`
	Lat         float64   `json:"lat" yaml:"lat"`
	Lng         float64   `json:"lng" yaml:"lng"`
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	Price       float64   `json:"price" yaml:"price"`
	CreatedAt   time.Time `json:"createdAt" yaml:"-"`
	UpdatedAt   time.Time `json:"updatedAt" yaml:"-"`

	// Aggregates filled on read.
	NumReviews   int          `json:"numReviews" yaml:"-"`
	AvgRating    *float64     `json:"avgRating" yaml:"-"`
	PreviewImage string       `json:"previewImage,omitempty" yaml:"-"`
	Images       []*SpotImage `json:"SpotImages,omitempty" yaml:"images"`
	Owner        *UserSummary `json:"Owner,omitempty" yaml:"-"`
}

// SpotSummary is embedded in booking listings.
type SpotSummary struct {
	ID           int64   `json:"id"`
	OwnerID      int64   `json:"ownerId"`
	Name         string  `json:"name"`
	City         string  `json:"city"`
	Country      string  `json:"country"`
	Price        float64 `json:"price"`
	PreviewImage string  `json:"previewImage,omitempty"`
}

func (s *Spot) Summary() *SpotSummary {
	return &SpotSummary{
		ID:           s.ID,
		OwnerID:      s.OwnerID,
		Name:         s.Name,
		City:         s.City,
		Country:      s.Country,
		Price:        s.Price,
		PreviewImage: s.PreviewImage,
	}
}

type SpotImage struct {
	ID      int64  `json:"id" yaml:"-"`
	SpotID  int64  `json:"spotId" yaml:"-"`
	URL     string `json:"url" yaml:"url"`
	Preview bool   `json:"preview" yaml:"preview"`
}

// SpotFilter narrows a spot search. Nil bounds are not applied.
type SpotFilter struct {
	MinLat   *float64
	MaxLat   *float64
	MinLng   *float64
	MaxLng   *float64
	MinPrice *float64
	MaxPrice *float64
}
