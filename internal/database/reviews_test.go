package database

import (
	"context"
	"fmt"
	"testing"

	"staybook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviews(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "host")
	guest := createTestUser(t, db, "guest")
	spot := createTestSpot(t, db, owner.ID, 90)

	review := &models.Review{SpotID: spot.ID, UserID: guest.ID, Text: "Lovely", Stars: 5}
	require.NoError(t, db.CreateReview(ctx, review))
	assert.NotZero(t, review.ID)

	t.Run("OnePerUserPerSpot", func(t *testing.T) {
		err := db.CreateReview(ctx, &models.Review{SpotID: spot.ID, UserID: guest.ID, Text: "Again", Stars: 3})
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("StarsConstraint", func(t *testing.T) {
		err := db.CreateReview(ctx, &models.Review{SpotID: spot.ID, UserID: owner.ID, Text: "x", Stars: 6})
		assert.Error(t, err)
	})

	t.Run("ListBySpot", func(t *testing.T) {
		require.NoError(t, db.AddReviewImage(ctx, &models.ReviewImage{ReviewID: review.ID, URL: "r1.jpg"}))
		reviews, err := db.ListReviewsBySpot(ctx, spot.ID)
		require.NoError(t, err)
		require.Len(t, reviews, 1)
		require.NotNil(t, reviews[0].User)
		assert.Equal(t, "guest", reviews[0].User.LastName)
		require.Len(t, reviews[0].Images, 1)
		assert.Equal(t, "r1.jpg", reviews[0].Images[0].URL)
	})

	t.Run("ListByUser", func(t *testing.T) {
		reviews, err := db.ListReviewsByUser(ctx, guest.ID)
		require.NoError(t, err)
		require.Len(t, reviews, 1)
		require.NotNil(t, reviews[0].Spot)
		assert.Equal(t, spot.ID, reviews[0].Spot.ID)
		assert.Equal(t, owner.ID, reviews[0].Spot.OwnerID)
	})

	t.Run("Update", func(t *testing.T) {
		review.Text = "Still lovely"
		review.Stars = 4
		require.NoError(t, db.UpdateReview(ctx, review))
		got, err := db.GetReview(ctx, review.ID)
		require.NoError(t, err)
		assert.Equal(t, "Still lovely", got.Text)
		assert.Equal(t, 4, got.Stars)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, db.DeleteReview(ctx, review.ID))
		_, err := db.GetReview(ctx, review.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, db.DeleteReview(ctx, review.ID), ErrNotFound)
	})
}

func TestReviewImages_Limit(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "host")
	guest := createTestUser(t, db, "guest")
	spot := createTestSpot(t, db, owner.ID, 90)
	review := &models.Review{SpotID: spot.ID, UserID: guest.ID, Text: "Nice", Stars: 4}
	require.NoError(t, db.CreateReview(ctx, review))

	var last *models.ReviewImage
	for i := 0; i < models.MaxReviewImages; i++ {
		last = &models.ReviewImage{ReviewID: review.ID, URL: fmt.Sprintf("%d.jpg", i)}
		require.NoError(t, db.AddReviewImage(ctx, last))
	}
	err := db.AddReviewImage(ctx, &models.ReviewImage{ReviewID: review.ID, URL: "extra.jpg"})
	assert.ErrorIs(t, err, ErrImageLimit)

	got, err := db.GetReviewImage(ctx, last.ID)
	require.NoError(t, err)
	assert.Equal(t, review.ID, got.ReviewID)

	require.NoError(t, db.DeleteReviewImage(ctx, last.ID))
	assert.NoError(t, db.AddReviewImage(ctx, &models.ReviewImage{ReviewID: review.ID, URL: "extra.jpg"}))
	assert.ErrorIs(t, db.DeleteReviewImage(ctx, 9999), ErrNotFound)
}
