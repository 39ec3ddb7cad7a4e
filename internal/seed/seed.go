// Package seed loads demo users and spots from YAML into the database.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"staybook/internal/database"
	"staybook/internal/models"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

// Spot is a seeded spot; Owner names the owning user by username.
type Spot struct {
	Owner       string `yaml:"owner"`
	models.Spot `yaml:",inline"`
}

type File struct {
	Users []models.User `yaml:"users"`
	Spots []Spot        `yaml:"spots"`
}

// Store is the slice of the database the loader writes through.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateSpot(ctx context.Context, spot *models.Spot) error
	ListSpotsByOwner(ctx context.Context, ownerID int64) ([]*models.Spot, error)
	AddSpotImage(ctx context.Context, img *models.SpotImage) error
}

// Result counts what Apply did.
type Result struct {
	UsersCreated int
	UsersSkipped int
	SpotsCreated int
	SpotsSkipped int
}

func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks that usernames are unique and every spot names a seeded
// or existing owner.
func (f *File) Validate() error {
	seen := make(map[string]bool, len(f.Users))
	for i, u := range f.Users {
		name := strings.TrimSpace(u.Username)
		if name == "" {
			return fmt.Errorf("user %d: username is required", i)
		}
		if u.Email == "" {
			return fmt.Errorf("user %s: email is required", name)
		}
		if seen[name] {
			return fmt.Errorf("user %s: duplicate username", name)
		}
		seen[name] = true
	}
	for i, s := range f.Spots {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("spot %d: name is required", i)
		}
		if s.Owner == "" {
			return fmt.Errorf("spot %s: owner is required", s.Name)
		}
		if s.Price <= 0 {
			return fmt.Errorf("spot %s: price must be positive", s.Name)
		}
		if s.Lat < -90 || s.Lat > 90 || s.Lng < -180 || s.Lng > 180 {
			return fmt.Errorf("spot %s: coordinates out of range", s.Name)
		}
	}
	return nil
}

// Apply inserts missing users and spots. Users are matched by username and
// spots by owner and name, so running it twice changes nothing.
func Apply(ctx context.Context, store Store, f *File, logger *zerolog.Logger) (Result, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	var res Result

	for i := range f.Users {
		u := f.Users[i]
		if _, err := store.GetUserByUsername(ctx, u.Username); err == nil {
			res.UsersSkipped++
			continue
		} else if !errors.Is(err, database.ErrNotFound) {
			return res, fmt.Errorf("lookup user %s: %w", u.Username, err)
		}
		if err := store.CreateUser(ctx, &u); err != nil {
			return res, fmt.Errorf("create user %s: %w", u.Username, err)
		}
		res.UsersCreated++
	}

	owned := make(map[int64]map[string]bool)
	for i := range f.Spots {
		s := f.Spots[i]
		owner, err := store.GetUserByUsername(ctx, s.Owner)
		if err != nil {
			return res, fmt.Errorf("spot %s owner %s: %w", s.Name, s.Owner, err)
		}

		names, ok := owned[owner.ID]
		if !ok {
			existing, err := store.ListSpotsByOwner(ctx, owner.ID)
			if err != nil {
				return res, fmt.Errorf("list spots of %s: %w", s.Owner, err)
			}
			names = make(map[string]bool, len(existing))
			for _, e := range existing {
				names[e.Name] = true
			}
			owned[owner.ID] = names
		}
		if names[s.Name] {
			res.SpotsSkipped++
			continue
		}

		spot := s.Spot
		spot.OwnerID = owner.ID
		if err := store.CreateSpot(ctx, &spot); err != nil {
			return res, fmt.Errorf("create spot %s: %w", s.Name, err)
		}
		for _, img := range s.Images {
			image := &models.SpotImage{SpotID: spot.ID, URL: img.URL, Preview: img.Preview}
			if err := store.AddSpotImage(ctx, image); err != nil {
				return res, fmt.Errorf("add image to spot %s: %w", s.Name, err)
			}
		}
		names[s.Name] = true
		res.SpotsCreated++
	}

	logger.Info().
		Int("users_created", res.UsersCreated).
		Int("users_skipped", res.UsersSkipped).
		Int("spots_created", res.SpotsCreated).
		Int("spots_skipped", res.SpotsSkipped).
		Msg("seed applied")
	return res, nil
}
