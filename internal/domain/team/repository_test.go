package team_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esports-scheduler/internal/domain/team"
	"esports-scheduler/internal/testutil"
)

func TestList_OrderedByGameThenName(t *testing.T) {
	f := testutil.NewFixture(t)
	repo := team.NewRepository(f.DB)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &team.Team{ID: "team-cs2-b", Name: "CS2 B", GameTitle: "CS2"}))

	teams, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, teams, 3)
	assert.Equal(t, []string{"team-cs2-a", "team-cs2-b", "team-valorant-a"}, []string{teams[0].ID, teams[1].ID, teams[2].ID})

	ok, err := repo.Exists(ctx, "team-cs2-b")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(ctx, "team-dota-a")
	require.NoError(t, err)
	assert.False(t, ok)
}
