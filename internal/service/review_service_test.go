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

func TestReviewService_Create(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	t.Run("Validation", func(t *testing.T) {
		svc := NewReviewService(new(mockRepo), &logger)
		_, err := svc.CreateReview(ctx, 1, 1, "", 6)
		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "Review text is required", verr.Fields["review"])
		assert.Equal(t, "Stars must be an integer from 1 to 5", verr.Fields["stars"])
	})

	t.Run("SpotMissing", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewReviewService(repo, &logger)
		repo.On("SpotExists", ctx, int64(5)).Return(false, nil).Once()

		_, err := svc.CreateReview(ctx, 1, 5, "Great", 5)
		assert.ErrorIs(t, err, database.ErrNotFound)
	})

	t.Run("Duplicate", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewReviewService(repo, &logger)
		repo.On("SpotExists", ctx, int64(5)).Return(true, nil).Once()
		repo.On("CreateReview", ctx, mock.Anything).Return(database.ErrDuplicate).Once()

		_, err := svc.CreateReview(ctx, 1, 5, "Again", 4)
		assert.ErrorIs(t, err, database.ErrDuplicate)
	})

	t.Run("Success", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewReviewService(repo, &logger)
		repo.On("SpotExists", ctx, int64(5)).Return(true, nil).Once()
		repo.On("CreateReview", ctx, mock.MatchedBy(func(r *models.Review) bool {
			return r.UserID == 1 && r.SpotID == 5 && r.Stars == 4
		})).Return(nil).Once()

		review, err := svc.CreateReview(ctx, 1, 5, "Lovely", 4)
		require.NoError(t, err)
		assert.Equal(t, "Lovely", review.Text)
		repo.AssertExpectations(t)
	})
}

func TestReviewService_AuthorOnly(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()
	review := &models.Review{ID: 4, SpotID: 5, UserID: 1, Text: "Fine", Stars: 3}

	t.Run("UpdateByStranger", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewReviewService(repo, &logger)
		repo.On("GetReview", ctx, int64(4)).Return(review, nil).Once()

		_, err := svc.UpdateReview(ctx, 2, 4, "Hijack", 1)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("UpdateByAuthor", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewReviewService(repo, &logger)
		repo.On("GetReview", ctx, int64(4)).Return(&models.Review{ID: 4, UserID: 1}, nil).Once()
		repo.On("UpdateReview", ctx, mock.Anything).Return(nil).Once()

		updated, err := svc.UpdateReview(ctx, 1, 4, "Better", 5)
		require.NoError(t, err)
		assert.Equal(t, 5, updated.Stars)
	})

	t.Run("DeleteByAuthor", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewReviewService(repo, &logger)
		repo.On("GetReview", ctx, int64(4)).Return(review, nil).Once()
		repo.On("DeleteReview", ctx, int64(4)).Return(nil).Once()

		assert.NoError(t, svc.DeleteReview(ctx, 1, 4))
		repo.AssertExpectations(t)
	})

	t.Run("ImageLimit", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewReviewService(repo, &logger)
		repo.On("GetReview", ctx, int64(4)).Return(review, nil).Once()
		repo.On("AddReviewImage", ctx, mock.Anything).Return(database.ErrImageLimit).Once()

		_, err := svc.AddReviewImage(ctx, 1, 4, "https://img.example/r.jpg")
		assert.ErrorIs(t, err, database.ErrImageLimit)
	})

	t.Run("DeleteImageByStranger", func(t *testing.T) {
		repo := new(mockRepo)
		svc := NewReviewService(repo, &logger)
		repo.On("GetReviewImage", ctx, int64(8)).Return(&models.ReviewImage{ID: 8, ReviewID: 4}, nil).Once()
		repo.On("GetReview", ctx, int64(4)).Return(review, nil).Once()

		assert.ErrorIs(t, svc.DeleteReviewImage(ctx, 2, 8), domain.ErrForbidden)
	})
}
