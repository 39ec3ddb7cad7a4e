package service

import (
	"context"
	"errors"
	"testing"

	"staybook/internal/database"
	"staybook/internal/domain"
	"staybook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func validSpot() *models.Spot {
	return &models.Spot{
		Address: "123 Disney Lane", City: "San Francisco", State: "California", Country: "United States of America",
		Lat: 37.76, Lng: -122.47, Name: "App Academy", Description: "Place where web developers are created", Price: 123,
	}
}

func TestSpotService_Create(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	t.Run("Validation", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewSpotService(repo, &logger)

		spot := &models.Spot{Lat: 91, Lng: -181, Name: "this name is certainly longer than fifty characters in total", Price: 0}
		err := svc.CreateSpot(ctx, 1, spot)

		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr))
		for _, field := range []string{"address", "city", "state", "country", "lat", "lng", "name", "description", "price"} {
			assert.Contains(t, verr.Fields, field)
		}
		repo.AssertNotCalled(t, "CreateSpot", mock.Anything, mock.Anything)
	})

	t.Run("Success", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewSpotService(repo, &logger)
		spot := validSpot()
		repo.On("CreateSpot", ctx, spot).Return(nil).Once()

		require.NoError(t, svc.CreateSpot(ctx, 7, spot))
		assert.Equal(t, int64(7), spot.OwnerID)
		repo.AssertExpectations(t)
	})
}

func TestSpotService_Search(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()
	repo := new(mockRepo)
	svc := NewSpotService(repo, &logger)

	bad := -5.0
	_, err := svc.SearchSpots(ctx, models.SpotFilter{MinPrice: &bad})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "minPrice")

	lat := 30.0
	filter := models.SpotFilter{MinLat: &lat}
	repo.On("ListSpots", ctx, filter).Return([]*models.Spot{validSpot()}, nil).Once()
	spots, err := svc.SearchSpots(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, spots, 1)
}

func TestSpotService_OwnerOnly(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()
	owned := validSpot()
	owned.ID = 3
	owned.OwnerID = 1

	t.Run("UpdateByOwner", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewSpotService(repo, &logger)
		repo.On("GetSpot", ctx, int64(3)).Return(owned, nil).Once()
		repo.On("UpdateSpot", ctx, mock.MatchedBy(func(s *models.Spot) bool { return s.Name == "Renamed" })).Return(nil).Once()

		input := validSpot()
		input.Name = "Renamed"
		updated, err := svc.UpdateSpot(ctx, 1, 3, input)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Name)
		assert.Equal(t, int64(1), updated.OwnerID)
		repo.AssertExpectations(t)
	})

	t.Run("UpdateByStranger", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewSpotService(repo, &logger)
		repo.On("GetSpot", ctx, int64(3)).Return(owned, nil).Once()

		_, err := svc.UpdateSpot(ctx, 2, 3, validSpot())
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("DeleteMissing", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewSpotService(repo, &logger)
		repo.On("GetSpot", ctx, int64(9)).Return(nil, database.ErrNotFound).Once()

		assert.ErrorIs(t, svc.DeleteSpot(ctx, 1, 9), database.ErrNotFound)
	})

	t.Run("AddImage", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewSpotService(repo, &logger)
		repo.On("GetSpot", ctx, int64(3)).Return(owned, nil).Twice()
		repo.On("AddSpotImage", ctx, mock.Anything).Return(nil).Once()

		img, err := svc.AddSpotImage(ctx, 1, 3, "https://img.example/1.jpg", true)
		require.NoError(t, err)
		assert.True(t, img.Preview)

		_, err = svc.AddSpotImage(ctx, 1, 3, " ", false)
		var verr *domain.ValidationError
		assert.True(t, errors.As(err, &verr))
	})

	t.Run("DeleteImageByStranger", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewSpotService(repo, &logger)
		repo.On("GetSpotImage", ctx, int64(11)).Return(&models.SpotImage{ID: 11, SpotID: 3}, nil).Once()
		repo.On("GetSpot", ctx, int64(3)).Return(owned, nil).Once()

		assert.ErrorIs(t, svc.DeleteSpotImage(ctx, 2, 11), domain.ErrForbidden)
		repo.AssertNotCalled(t, "DeleteSpotImage", mock.Anything, mock.Anything)
	})
}
