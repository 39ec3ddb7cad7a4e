package models

import "time"

const MaxReviewImages = 10

type Review struct {
	ID        int64     `json:"id"`
	SpotID    int64     `json:"spotId"`
	UserID    int64     `json:"userId"`
	Text      string    `json:"review"`
	Stars     int       `json:"stars"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	User   *UserSummary   `json:"User,omitempty"`
	Spot   *SpotSummary   `json:"Spot,omitempty"`
	Images []*ReviewImage `json:"ReviewImages,omitempty"`
}

type ReviewImage struct {
	ID       int64  `json:"id"`
	ReviewID int64  `json:"reviewId"`
	URL      string `json:"url"`
}
