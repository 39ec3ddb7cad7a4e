package database

import (
	"context"
	"fmt"
	"time"

	"staybook/internal/models"
)

func (db *DB) AddSpotImage(ctx context.Context, img *models.SpotImage) error {
	res, err := db.ExecContext(ctx,
		`INSERT INTO spot_images (spot_id, url, preview, created_at) VALUES (?, ?, ?, ?)`,
		img.SpotID, img.URL, img.Preview, time.Now())
	if err != nil {
		return fmt.Errorf("failed to add spot image: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	img.ID = id
	return nil
}

func (db *DB) GetSpotImage(ctx context.Context, id int64) (*models.SpotImage, error) {
	var img models.SpotImage
	err := db.QueryRowContext(ctx, `SELECT id, spot_id, url, preview FROM spot_images WHERE id = ?`, id).
		Scan(&img.ID, &img.SpotID, &img.URL, &img.Preview)
	if err != nil {
		return nil, notFound(err, "spot image", id)
	}
	return &img, nil
}

func (db *DB) DeleteSpotImage(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM spot_images WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete spot image: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("spot image %d: %w", id, ErrNotFound)
	}
	return nil
}

func (db *DB) listSpotImages(ctx context.Context, spotID int64) ([]*models.SpotImage, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, spot_id, url, preview FROM spot_images WHERE spot_id = ? ORDER BY id`, spotID)
	if err != nil {
		return nil, fmt.Errorf("failed to list spot images: %w", err)
	}
	defer rows.Close()

	images := make([]*models.SpotImage, 0)
	for rows.Next() {
		var img models.SpotImage
		if err := rows.Scan(&img.ID, &img.SpotID, &img.URL, &img.Preview); err != nil {
			return nil, fmt.Errorf("failed to scan spot image: %w", err)
		}
		images = append(images, &img)
	}
	return images, rows.Err()
}

// AddReviewImage attaches an image while the review holds fewer than
// models.MaxReviewImages. The count and insert share one transaction.
func (db *DB) AddReviewImage(ctx context.Context, img *models.ReviewImage) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var count int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM review_images WHERE review_id = ?`, img.ReviewID).
		Scan(&count); err != nil {
		return fmt.Errorf("failed to count review images: %w", err)
	}
	if count >= models.MaxReviewImages {
		return ErrImageLimit
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO review_images (review_id, url, created_at) VALUES (?, ?, ?)`,
		img.ReviewID, img.URL, time.Now())
	if err != nil {
		return fmt.Errorf("failed to add review image: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	img.ID = id
	return tx.Commit()
}

func (db *DB) GetReviewImage(ctx context.Context, id int64) (*models.ReviewImage, error) {
	var img models.ReviewImage
	err := db.QueryRowContext(ctx, `SELECT id, review_id, url FROM review_images WHERE id = ?`, id).
		Scan(&img.ID, &img.ReviewID, &img.URL)
	if err != nil {
		return nil, notFound(err, "review image", id)
	}
	return &img, nil
}

func (db *DB) DeleteReviewImage(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM review_images WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review image: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("review image %d: %w", id, ErrNotFound)
	}
	return nil
}

// reviewImages loads images for many reviews in one query.
func (db *DB) reviewImages(ctx context.Context, reviewIDs []int64) (map[int64][]*models.ReviewImage, error) {
	out := make(map[int64][]*models.ReviewImage, len(reviewIDs))
	if len(reviewIDs) == 0 {
		return out, nil
	}
	args := make([]interface{}, len(reviewIDs))
	for i, id := range reviewIDs {
		args[i] = id
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, review_id, url FROM review_images WHERE review_id IN (`+placeholders(len(args))+`) ORDER BY id`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list review images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var img models.ReviewImage
		if err := rows.Scan(&img.ID, &img.ReviewID, &img.URL); err != nil {
			return nil, fmt.Errorf("failed to scan review image: %w", err)
		}
		out[img.ReviewID] = append(out[img.ReviewID], &img)
	}
	return out, rows.Err()
}
