package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"staybook/internal/database"
	"staybook/internal/seed"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		seedPath = flag.String("seed", "configs/seed.yaml", "path to seed.yaml")
		dbPath   = flag.String("db", "./data/staybook.db", "path to sqlite db")
	)
	flag.Parse()

	f, err := seed.Load(*seedPath)
	if err != nil {
		return err
	}
	if len(f.Users) == 0 && len(f.Spots) == 0 {
		return fmt.Errorf("nothing to seed in %s", *seedPath)
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	res, err := seed.Apply(ctx, db, f, &logger)
	if err != nil {
		return err
	}

	fmt.Printf("users: %d created, %d existing; spots: %d created, %d existing\n",
		res.UsersCreated, res.UsersSkipped, res.SpotsCreated, res.SpotsSkipped)
	return nil
}
