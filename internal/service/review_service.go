package service

import (
	"context"
	"fmt"
	"strings"

	"staybook/internal/database"
	"staybook/internal/domain"
	"staybook/internal/models"

	"github.com/rs/zerolog"
)

type ReviewService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewReviewService(repo domain.Repository, logger *zerolog.Logger) *ReviewService {
	return &ReviewService{repo: repo, logger: logger}
}

func validateReview(text string, stars int) error {
	var v domain.Validator
	v.Check(strings.TrimSpace(text) != "", "review", "Review text is required")
	v.Check(stars >= 1 && stars <= 5, "stars", "Stars must be an integer from 1 to 5")
	return v.Err()
}

func (s *ReviewService) CreateReview(ctx context.Context, userID, spotID int64, text string, stars int) (*models.Review, error) {
	if err := validateReview(text, stars); err != nil {
		return nil, err
	}
	exists, err := s.repo.SpotExists(ctx, spotID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("spot %d: %w", spotID, database.ErrNotFound)
	}

	review := &models.Review{SpotID: spotID, UserID: userID, Text: text, Stars: stars}
	if err := s.repo.CreateReview(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) ListSpotReviews(ctx context.Context, spotID int64) ([]*models.Review, error) {
	exists, err := s.repo.SpotExists(ctx, spotID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("spot %d: %w", spotID, database.ErrNotFound)
	}
	return s.repo.ListReviewsBySpot(ctx, spotID)
}

func (s *ReviewService) ListUserReviews(ctx context.Context, userID int64) ([]*models.Review, error) {
	return s.repo.ListReviewsByUser(ctx, userID)
}

func (s *ReviewService) authored(ctx context.Context, userID, reviewID int64) (*models.Review, error) {
	review, err := s.repo.GetReview(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.UserID != userID {
		return nil, fmt.Errorf("%w: review must belong to the current user", domain.ErrForbidden)
	}
	return review, nil
}

func (s *ReviewService) UpdateReview(ctx context.Context, userID, reviewID int64, text string, stars int) (*models.Review, error) {
	review, err := s.authored(ctx, userID, reviewID)
	if err != nil {
		return nil, err
	}
	if err := validateReview(text, stars); err != nil {
		return nil, err
	}
	review.Text = text
	review.Stars = stars
	if err := s.repo.UpdateReview(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) DeleteReview(ctx context.Context, userID, reviewID int64) error {
	if _, err := s.authored(ctx, userID, reviewID); err != nil {
		return err
	}
	return s.repo.DeleteReview(ctx, reviewID)
}

// AddReviewImage attaches an image; the store refuses the eleventh with database.ErrImageLimit.
func (s *ReviewService) AddReviewImage(ctx context.Context, userID, reviewID int64, url string) (*models.ReviewImage, error) {
	if _, err := s.authored(ctx, userID, reviewID); err != nil {
		return nil, err
	}
	var v domain.Validator
	v.Check(strings.TrimSpace(url) != "", "url", "Image url is required")
	if err := v.Err(); err != nil {
		return nil, err
	}

	img := &models.ReviewImage{ReviewID: reviewID, URL: url}
	if err := s.repo.AddReviewImage(ctx, img); err != nil {
		return nil, err
	}
	return img, nil
}

func (s *ReviewService) DeleteReviewImage(ctx context.Context, userID, imageID int64) error {
	img, err := s.repo.GetReviewImage(ctx, imageID)
	if err != nil {
		return err
	}
	if _, err := s.authored(ctx, userID, img.ReviewID); err != nil {
		return err
	}
	return s.repo.DeleteReviewImage(ctx, imageID)
}
