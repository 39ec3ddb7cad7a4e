package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"staybook/internal/database"
	"staybook/internal/domain"
	"staybook/internal/models"

	"github.com/rs/zerolog"
)

type SpotService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewSpotService(repo domain.Repository, logger *zerolog.Logger) *SpotService {
	return &SpotService{repo: repo, logger: logger}
}

func validateSpot(spot *models.Spot) error {
	var v domain.Validator
	v.Check(strings.TrimSpace(spot.Address) != "", "address", "Street address is required")
	v.Check(strings.TrimSpace(spot.City) != "", "city", "City is required")
	v.Check(strings.TrimSpace(spot.State) != "", "state", "State is required")
	v.Check(strings.TrimSpace(spot.Country) != "", "country", "Country is required")
	v.Check(spot.Lat >= -90 && spot.Lat <= 90, "lat", "Latitude must be within -90 and 90")
	v.Check(spot.Lng >= -180 && spot.Lng <= 180, "lng", "Longitude must be within -180 and 180")
	n := utf8.RuneCountInString(strings.TrimSpace(spot.Name))
	v.Check(n > 0 && n <= models.MaxSpotNameLength, "name",
		fmt.Sprintf("Name must be between 1 and %d characters", models.MaxSpotNameLength))
	v.Check(strings.TrimSpace(spot.Description) != "", "description", "Description is required")
	v.Check(spot.Price > 0, "price", "Price per day must be a positive number")
	return v.Err()
}

// ValidateFilter rejects out-of-range search bounds.
func ValidateFilter(f models.SpotFilter) error {
	var v domain.Validator
	inRange := func(p *float64, lo, hi float64) bool { return p == nil || (*p >= lo && *p <= hi) }
	v.Check(inRange(f.MinLat, -90, 90), "minLat", "Minimum latitude is invalid")
	v.Check(inRange(f.MaxLat, -90, 90), "maxLat", "Maximum latitude is invalid")
	v.Check(inRange(f.MinLng, -180, 180), "minLng", "Minimum longitude is invalid")
	v.Check(inRange(f.MaxLng, -180, 180), "maxLng", "Maximum longitude is invalid")
	v.Check(f.MinPrice == nil || *f.MinPrice >= 0, "minPrice", "Minimum price must be greater than or equal to 0")
	v.Check(f.MaxPrice == nil || *f.MaxPrice >= 0, "maxPrice", "Maximum price must be greater than or equal to 0")
	return v.Err()
}

func (s *SpotService) CreateSpot(ctx context.Context, ownerID int64, spot *models.Spot) error {
	if err := validateSpot(spot); err != nil {
		return err
	}
	spot.OwnerID = ownerID
	if err := s.repo.CreateSpot(ctx, spot); err != nil {
		return err
	}
	s.logger.Info().Int64("spot_id", spot.ID).Int64("owner_id", ownerID).Msg("spot created")
	return nil
}

func (s *SpotService) GetSpot(ctx context.Context, id int64) (*models.Spot, error) {
	return s.repo.GetSpot(ctx, id)
}

func (s *SpotService) SearchSpots(ctx context.Context, filter models.SpotFilter) ([]*models.Spot, error) {
	if err := ValidateFilter(filter); err != nil {
		return nil, err
	}
	return s.repo.ListSpots(ctx, filter)
}

func (s *SpotService) ListOwnerSpots(ctx context.Context, ownerID int64) ([]*models.Spot, error) {
	return s.repo.ListSpotsByOwner(ctx, ownerID)
}

// ownedSpot loads a spot and checks that userID owns it.
func (s *SpotService) ownedSpot(ctx context.Context, userID, spotID int64) (*models.Spot, error) {
	spot, err := s.repo.GetSpot(ctx, spotID)
	if err != nil {
		return nil, err
	}
	if spot.OwnerID != userID {
		return nil, fmt.Errorf("%w: spot must belong to the current user", domain.ErrForbidden)
	}
	return spot, nil
}

func (s *SpotService) UpdateSpot(ctx context.Context, userID, spotID int64, input *models.Spot) (*models.Spot, error) {
	spot, err := s.ownedSpot(ctx, userID, spotID)
	if err != nil {
		return nil, err
	}
	if err := validateSpot(input); err != nil {
		return nil, err
	}

	spot.Address = input.Address
	spot.City = input.City
	spot.State = input.State
	spot.Country = input.Country
	spot.Lat = input.Lat
	spot.Lng = input.Lng
	spot.Name = input.Name
	spot.Description = input.Description
	spot.Price = input.Price

	if err := s.repo.UpdateSpot(ctx, spot); err != nil {
		return nil, err
	}
	return spot, nil
}

func (s *SpotService) DeleteSpot(ctx context.Context, userID, spotID int64) error {
	if _, err := s.ownedSpot(ctx, userID, spotID); err != nil {
		return err
	}
	if err := s.repo.DeleteSpot(ctx, spotID); err != nil {
		return err
	}
	s.logger.Info().Int64("spot_id", spotID).Msg("spot deleted")
	return nil
}

func (s *SpotService) AddSpotImage(ctx context.Context, userID, spotID int64, url string, preview bool) (*models.SpotImage, error) {
	if _, err := s.ownedSpot(ctx, userID, spotID); err != nil {
		return nil, err
	}
	var v domain.Validator
	v.Check(strings.TrimSpace(url) != "", "url", "Image url is required")
	if err := v.Err(); err != nil {
		return nil, err
	}

	img := &models.SpotImage{SpotID: spotID, URL: url, Preview: preview}
	if err := s.repo.AddSpotImage(ctx, img); err != nil {
		return nil, err
	}
	return img, nil
}

func (s *SpotService) DeleteSpotImage(ctx context.Context, userID, imageID int64) error {
	img, err := s.repo.GetSpotImage(ctx, imageID)
	if err != nil {
		return err
	}
	if _, err := s.ownedSpot(ctx, userID, img.SpotID); err != nil {
		if database.IsNotFound(err) {
			return fmt.Errorf("spot image %d: %w", imageID, database.ErrNotFound)
		}
		return err
	}
	return s.repo.DeleteSpotImage(ctx, imageID)
}
