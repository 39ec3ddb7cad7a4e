package api

import (
	"context"

	"staybook/internal/conflict"
	"staybook/internal/models"
	"staybook/internal/service"
)

type UserService interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

type SpotService interface {
	CreateSpot(ctx context.Context, ownerID int64, spot *models.Spot) error
	GetSpot(ctx context.Context, id int64) (*models.Spot, error)
	SearchSpots(ctx context.Context, filter models.SpotFilter) ([]*models.Spot, error)
	ListOwnerSpots(ctx context.Context, ownerID int64) ([]*models.Spot, error)
	UpdateSpot(ctx context.Context, userID, spotID int64, input *models.Spot) (*models.Spot, error)
	DeleteSpot(ctx context.Context, userID, spotID int64) error
	AddSpotImage(ctx context.Context, userID, spotID int64, url string, preview bool) (*models.SpotImage, error)
	DeleteSpotImage(ctx context.Context, userID, imageID int64) error
}

type ReviewService interface {
	CreateReview(ctx context.Context, userID, spotID int64, text string, stars int) (*models.Review, error)
	ListSpotReviews(ctx context.Context, spotID int64) ([]*models.Review, error)
	ListUserReviews(ctx context.Context, userID int64) ([]*models.Review, error)
	UpdateReview(ctx context.Context, userID, reviewID int64, text string, stars int) (*models.Review, error)
	DeleteReview(ctx context.Context, userID, reviewID int64) error
	AddReviewImage(ctx context.Context, userID, reviewID int64, url string) (*models.ReviewImage, error)
	DeleteReviewImage(ctx context.Context, userID, imageID int64) error
}

type BookingService interface {
	Today() models.Date
	ListUserBookings(ctx context.Context, userID int64) ([]*models.Booking, error)
	ListSpotBookings(ctx context.Context, callerID, spotID int64) (*service.SpotBookings, error)
	CheckAvailability(ctx context.Context, spotID int64, start, end models.Date, excludeBookingID int64) (conflict.Result, error)
	CreateBooking(ctx context.Context, userID, spotID int64, start, end models.Date) (*models.Booking, error)
	UpdateBooking(ctx context.Context, userID, bookingID int64, start, end models.Date) (*models.Booking, error)
	DeleteBooking(ctx context.Context, userID, bookingID int64) error
}

// Services bundles what the REST handlers call into.
type Services struct {
	Users    UserService
	Spots    SpotService
	Reviews  ReviewService
	Bookings BookingService
}
