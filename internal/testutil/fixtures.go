package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"esports-scheduler/internal/database"
	"esports-scheduler/internal/domain/computer"
	"esports-scheduler/internal/domain/team"
	"esports-scheduler/internal/domain/user"
)

// Fixture is a small facility: five computers (PC-05 inactive), two teams,
// one admin and one viewer.
type Fixture struct {
	DB        *gorm.DB
	Admin     user.User
	Viewer    user.User
	Computers []computer.Computer
	Teams     []team.Team
}

// NewDB opens a fresh in-memory SQLite database with the schema applied.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func NewFixture(t *testing.T) *Fixture {
	t.Helper()
	db := NewDB(t)
	ctx := context.Background()

	f := &Fixture{DB: db}

	users := user.NewRepository(db)
	f.Admin = user.User{ID: uuid.NewString(), Email: "admin@lan.test", Name: "Test Admin", Role: user.RoleAdmin}
	f.Viewer = user.User{ID: uuid.NewString(), Email: "viewer@lan.test", Name: "Test Viewer", Role: user.RoleViewer}
	require.NoError(t, users.Upsert(ctx, &f.Admin))
	require.NoError(t, users.Upsert(ctx, &f.Viewer))

	computers := computer.NewRepository(db)
	for i := 1; i <= 5; i++ {
		c := computer.Computer{Label: fmt.Sprintf("PC-%02d", i), IsActive: i != 5}
		require.NoError(t, computers.Upsert(ctx, &c))
	}
	all, err := computers.ListAll(ctx)
	require.NoError(t, err)
	f.Computers = all

	teams := team.NewRepository(db)
	for _, tm := range []team.Team{
		{ID: "team-valorant-a", Name: "Valorant A", GameTitle: "Valorant"},
		{ID: "team-cs2-a", Name: "CS2 A", GameTitle: "CS2"},
	} {
		tm := tm
		require.NoError(t, teams.Upsert(ctx, &tm))
		f.Teams = append(f.Teams, tm)
	}

	return f
}

// PC returns the id of computer PC-0n.
func (f *Fixture) PC(n int) int64 {
	label := fmt.Sprintf("PC-%02d", n)
	for _, c := range f.Computers {
		if c.Label == label {
			return c.ID
		}
	}
	panic("no computer " + label)
}

// At returns a fixed UTC instant on 2026-03-14 for readable test windows.
func At(hour, minute int) time.Time {
	return time.Date(2026, 3, 14, hour, minute, 0, 0, time.UTC)
}
