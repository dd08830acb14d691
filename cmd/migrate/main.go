package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"esports-scheduler/internal/config"
	"esports-scheduler/internal/database"
	"esports-scheduler/internal/domain/reservation"
	"esports-scheduler/internal/pkg/logger"
)

// migrate applies the schema and assigns group ids to legacy reservation rows.
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

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		zl.Fatal("db connect", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zl.Fatal("db migrate", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	n, err := reservation.NewRepository(db).BackfillLegacyGroups(ctx)
	if err != nil {
		zl.Fatal("backfill legacy groups", zap.Error(err))
	}
	zl.Info("migration complete", zap.Int("legacy_groups_backfilled", n))
}
