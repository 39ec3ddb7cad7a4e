package database

import (
	"context"
	"fmt"
	"time"

	"staybook/internal/models"
)

func (db *DB) CreateReview(ctx context.Context, review *models.Review) error {
	query := `INSERT INTO reviews (spot_id, user_id, review, stars, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?)`
	now := time.Now()
	res, err := db.ExecContext(ctx, query, review.SpotID, review.UserID, review.Text, review.Stars, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("review for spot %d: %w", review.SpotID, ErrDuplicate)
		}
		return fmt.Errorf("failed to create review: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	review.ID = id
	review.CreatedAt = now
	review.UpdatedAt = now
	return nil
}

func (db *DB) GetReview(ctx context.Context, id int64) (*models.Review, error) {
	var r models.Review
	err := db.QueryRowContext(ctx,
		`SELECT id, spot_id, user_id, review, stars, created_at, updated_at FROM reviews WHERE id = ?`, id).
		Scan(&r.ID, &r.SpotID, &r.UserID, &r.Text, &r.Stars, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "review", id)
	}
	return &r, nil
}

// ListReviewsBySpot returns the spot's reviews with author and images.
func (db *DB) ListReviewsBySpot(ctx context.Context, spotID int64) ([]*models.Review, error) {
	query := `SELECT r.id, r.spot_id, r.user_id, r.review, r.stars, r.created_at, r.updated_at,
                     u.first_name, u.last_name
              FROM reviews r JOIN users u ON u.id = r.user_id
              WHERE r.spot_id = ? ORDER BY r.created_at DESC, r.id DESC`
	rows, err := db.QueryContext(ctx, query, spotID)
	if err != nil {
		return nil, fmt.Errorf("failed to list spot reviews: %w", err)
	}

	reviews := make([]*models.Review, 0)
	for rows.Next() {
		r := &models.Review{User: &models.UserSummary{}}
		if err := rows.Scan(&r.ID, &r.SpotID, &r.UserID, &r.Text, &r.Stars, &r.CreatedAt, &r.UpdatedAt,
			&r.User.FirstName, &r.User.LastName); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		r.User.ID = r.UserID
		reviews = append(reviews, r)
	}
	if err := finishRows(rows); err != nil {
		return nil, err
	}
	return reviews, db.attachReviewImages(ctx, reviews)
}

// ListReviewsByUser returns the user's reviews with the reviewed spot.
func (db *DB) ListReviewsByUser(ctx context.Context, userID int64) ([]*models.Review, error) {
	query := `SELECT r.id, r.spot_id, r.user_id, r.review, r.stars, r.created_at, r.updated_at,
                     s.owner_id, s.name, s.city, s.country, s.price,
                     COALESCE((SELECT i.url FROM spot_images i WHERE i.spot_id = s.id AND i.preview = 1
                               ORDER BY i.id DESC LIMIT 1), '')
              FROM reviews r JOIN spots s ON s.id = r.spot_id
              WHERE r.user_id = ? ORDER BY r.created_at DESC, r.id DESC`
	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user reviews: %w", err)
	}

	reviews := make([]*models.Review, 0)
	for rows.Next() {
		r := &models.Review{Spot: &models.SpotSummary{}}
		if err := rows.Scan(&r.ID, &r.SpotID, &r.UserID, &r.Text, &r.Stars, &r.CreatedAt, &r.UpdatedAt,
			&r.Spot.OwnerID, &r.Spot.Name, &r.Spot.City, &r.Spot.Country, &r.Spot.Price,
			&r.Spot.PreviewImage); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		r.Spot.ID = r.SpotID
		reviews = append(reviews, r)
	}
	if err := finishRows(rows); err != nil {
		return nil, err
	}
	return reviews, db.attachReviewImages(ctx, reviews)
}

func (db *DB) UpdateReview(ctx context.Context, review *models.Review) error {
	now := time.Now()
	res, err := db.ExecContext(ctx, `UPDATE reviews SET review = ?, stars = ?, updated_at = ? WHERE id = ?`,
		review.Text, review.Stars, now, review.ID)
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("review %d: %w", review.ID, ErrNotFound)
	}
	review.UpdatedAt = now
	return nil
}

func (db *DB) DeleteReview(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("review %d: %w", id, ErrNotFound)
	}
	return nil
}

func (db *DB) attachReviewImages(ctx context.Context, reviews []*models.Review) error {
	ids := make([]int64, 0, len(reviews))
	for _, r := range reviews {
		ids = append(ids, r.ID)
	}
	images, err := db.reviewImages(ctx, ids)
	if err != nil {
		return err
	}
	for _, r := range reviews {
		r.Images = images[r.ID]
	}
	return nil
}
