package main

import (
	"context"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"esports-scheduler/internal/config"
	"esports-scheduler/internal/database"
	"esports-scheduler/internal/domain/reservation"
	"esports-scheduler/internal/pkg/logger"
)

// purge removes reservations that ended before the cutoff (default: start of
// the current UTC month). It only counts unless DRY_RUN=0.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	zl, err := logger.New(cfg.IsDev())
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zl.Sync() }()

	var cutoff time.Time
	if raw := os.Getenv("CUTOFF"); raw != "" {
		cutoff, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			zl.Fatal("CUTOFF must be RFC3339", zap.String("cutoff", raw), zap.Error(err))
		}
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		zl.Fatal("db connect", zap.Error(err))
	}

	svc := reservation.NewService(reservation.Deps{
		DB:           db,
		Reservations: reservation.NewRepository(db),
		Logger:       zl,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	preview, err := svc.Purge(ctx, cutoff, true)
	if err != nil {
		zl.Fatal("count reservations", zap.Error(err))
	}
	log.Printf("[dry-run] would delete %d reservations older than %s", preview.Count, preview.Cutoff.Format(time.RFC3339))

	if os.Getenv("DRY_RUN") != "0" {
		log.Println("Set DRY_RUN=0 to actually delete.")
		return
	}

	res, err := svc.Purge(ctx, preview.Cutoff, false)
	if err != nil {
		zl.Fatal("purge reservations", zap.Error(err))
	}
	log.Printf("[deleted] %d reservations", res.Count)
}
