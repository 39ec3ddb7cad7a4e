package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"staybook/internal/models"
)

const spotSelect = `SELECT s.id, s.owner_id, s.address, s.city, s.state, s.country, s.lat, s.lng,
        s.name, s.description, s.price, s.created_at, s.updated_at,
        (SELECT COUNT(*) FROM reviews r WHERE r.spot_id = s.id),
        (SELECT AVG(r.stars) FROM reviews r WHERE r.spot_id = s.id),
        COALESCE((SELECT i.url FROM spot_images i WHERE i.spot_id = s.id AND i.preview = 1
                  ORDER BY i.id DESC LIMIT 1), '')
    FROM spots s`

func (db *DB) CreateSpot(ctx context.Context, spot *models.Spot) error {
	query := `INSERT INTO spots (owner_id, address, city, state, country, lat, lng, name, description, price, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		spot.OwnerID,
		spot.Address,
		spot.City,
		spot.State,
		spot.Country,
		spot.Lat,
		spot.Lng,
		spot.Name,
		spot.Description,
		spot.Price,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create spot: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	spot.ID = id
	spot.CreatedAt = now
	spot.UpdatedAt = now
	return nil
}

// GetSpot loads a spot with its aggregates, images and owner.
func (db *DB) GetSpot(ctx context.Context, id int64) (*models.Spot, error) {
	spot, err := scanSpot(db.QueryRowContext(ctx, spotSelect+` WHERE s.id = ?`, id))
	if err != nil {
		return nil, notFound(err, "spot", id)
	}

	spot.Images, err = db.listSpotImages(ctx, id)
	if err != nil {
		return nil, err
	}

	owner, err := db.GetUserByID(ctx, spot.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load spot owner: %w", err)
	}
	spot.Owner = owner.Summary()
	return spot, nil
}

// SpotExists is the existence check run before child inserts.
func (db *DB) SpotExists(ctx context.Context, id int64) (bool, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM spots WHERE id = ?`, id).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check spot: %w", err)
	}
	return n > 0, nil
}

func (db *DB) ListSpots(ctx context.Context, filter models.SpotFilter) ([]*models.Spot, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, v *float64) {
		if v != nil {
			conds = append(conds, cond)
			args = append(args, *v)
		}
	}
	add("s.lat >= ?", filter.MinLat)
	add("s.lat <= ?", filter.MaxLat)
	add("s.lng >= ?", filter.MinLng)
	add("s.lng <= ?", filter.MaxLng)
	add("s.price >= ?", filter.MinPrice)
	add("s.price <= ?", filter.MaxPrice)

	query := spotSelect
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY s.id"
	return db.querySpots(ctx, query, args...)
}

func (db *DB) ListSpotsByOwner(ctx context.Context, ownerID int64) ([]*models.Spot, error) {
	return db.querySpots(ctx, spotSelect+` WHERE s.owner_id = ? ORDER BY s.id`, ownerID)
}

func (db *DB) UpdateSpot(ctx context.Context, spot *models.Spot) error {
	query := `UPDATE spots SET address = ?, city = ?, state = ?, country = ?, lat = ?, lng = ?,
                name = ?, description = ?, price = ?, updated_at = ?
              WHERE id = ?`
	now := time.Now()
	res, err := db.ExecContext(ctx, query,
		spot.Address, spot.City, spot.State, spot.Country, spot.Lat, spot.Lng,
		spot.Name, spot.Description, spot.Price, now, spot.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update spot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("spot %d: %w", spot.ID, ErrNotFound)
	}
	spot.UpdatedAt = now
	return nil
}

// DeleteSpot removes the spot; images, reviews and bookings cascade.
func (db *DB) DeleteSpot(ctx context.Context, id int64) error {
	res, err := db.ExecContext(ctx, `DELETE FROM spots WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete spot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("spot %d: %w", id, ErrNotFound)
	}
	return nil
}

func (db *DB) querySpots(ctx context.Context, query string, args ...interface{}) ([]*models.Spot, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list spots: %w", err)
	}
	defer rows.Close()

	spots := make([]*models.Spot, 0)
	for rows.Next() {
		spot, err := scanSpot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan spot: %w", err)
		}
		spots = append(spots, spot)
	}
	return spots, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSpot(row rowScanner) (*models.Spot, error) {
	var (
		spot models.Spot
		avg  sql.NullFloat64
	)
	err := row.Scan(
		&spot.ID, &spot.OwnerID, &spot.Address, &spot.City, &spot.State, &spot.Country,
		&spot.Lat, &spot.Lng, &spot.Name, &spot.Description, &spot.Price,
		&spot.CreatedAt, &spot.UpdatedAt,
		&spot.NumReviews, &avg, &spot.PreviewImage,
	)
	if err != nil {
		return nil, err
	}
	if avg.Valid {
		v := avg.Float64
		spot.AvgRating = &v
	}
	return &spot, nil
}
