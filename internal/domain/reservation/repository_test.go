package reservation_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esports-scheduler/internal/domain"
	"esports-scheduler/internal/domain/reservation"
	"esports-scheduler/internal/testutil"
)

func insertLegacy(t *testing.T, e *engine, teamID string, computerID int64, from, to time.Time) reservation.Reservation {
	t.Helper()
	row := reservation.Reservation{
		ID:              uuid.NewString(),
		TeamID:          teamID,
		ComputerID:      computerID,
		StartsAt:        from,
		EndsAt:          to,
		CreatedByUserID: e.Admin.ID,
		Status:          reservation.StatusConfirmed,
	}
	require.NoError(t, e.DB.Create(&row).Error)
	return row
}

// Two separate legacy bookings that share team, window and creator are
// indistinguishable without a group id and read back as one group.
func TestListGrouped_LegacyRowsMergeByCompositeKey(t *testing.T) {
	e := newEngine(t, nil)
	at := testutil.At
	ctx := context.Background()

	insertLegacy(t, e, "team-valorant-a", e.PC(1), at(10, 0), at(12, 0))
	insertLegacy(t, e, "team-valorant-a", e.PC(2), at(10, 0), at(12, 0))
	insertLegacy(t, e, "team-valorant-a", e.PC(3), at(13, 0), at(14, 0))
	modern, err := e.book(t, "team-valorant-a", at(10, 0), at(12, 0), 4)
	require.NoError(t, err)

	groups, err := e.store.ListGrouped(ctx, reservation.Filter{})
	require.NoError(t, err)
	require.Len(t, groups, 3)

	var legacy []reservation.Group
	for _, g := range groups {
		if g.Legacy {
			legacy = append(legacy, g)
			assert.True(t, strings.HasPrefix(g.ID, "legacy-"), g.ID)
		} else {
			assert.Equal(t, modern.ID, g.ID, "a modern group never absorbs legacy rows")
		}
	}
	require.Len(t, legacy, 2)
	assert.Equal(t, []string{"PC-01", "PC-02"}, legacy[0].ComputerLabels)
	assert.Equal(t, []string{"PC-03"}, legacy[1].ComputerLabels)

	again, err := e.store.ListGrouped(ctx, reservation.Filter{})
	require.NoError(t, err)
	assert.Equal(t, groups[0].ID, again[0].ID, "derived legacy ids are stable")
}

// The derived id the grouped listing shows for legacy rows addresses them
// for reads, edits and deletes.
func TestLegacyGroup_ListedIDIsEditableAndDeletable(t *testing.T) {
	e := newEngine(t, nil)
	at := testutil.At
	ctx := context.Background()

	insertLegacy(t, e, "team-valorant-a", e.PC(1), at(10, 0), at(12, 0))
	insertLegacy(t, e, "team-valorant-a", e.PC(2), at(10, 0), at(12, 0))
	other := insertLegacy(t, e, "team-cs2-a", e.PC(3), at(10, 0), at(12, 0))

	groups, err := e.store.ListGrouped(ctx, reservation.Filter{TeamID: "team-valorant-a"})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	legacyID := groups[0].ID
	require.True(t, groups[0].Legacy)

	g, err := e.store.GetGroup(ctx, legacyID)
	require.NoError(t, err)
	assert.Equal(t, []string{"PC-01", "PC-02"}, g.ComputerLabels)

	rows, err := e.store.ListRows(ctx, reservation.Filter{GroupID: legacyID})
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	updated, err := e.svc.Update(ctx, e.admin, legacyID, reservation.UpdateInput{
		TeamID:      "team-valorant-a",
		ComputerIDs: []int64{e.PC(1), e.PC(2), e.PC(4)},
		StartsAt:    at(10, 30),
		EndsAt:      at(12, 30),
	})
	require.NoError(t, err, "the cluster's own rows do not conflict with its edit")
	assert.False(t, updated.Legacy)
	_, err = uuid.Parse(updated.ID)
	assert.NoError(t, err, "an edited legacy cluster gets a real group id")
	assert.Equal(t, []string{"PC-01", "PC-02", "PC-04"}, updated.ComputerLabels)

	_, err = e.store.GetGroup(ctx, legacyID)
	assert.ErrorIs(t, err, reservation.ErrNotFound)

	groups, err = e.store.ListGrouped(ctx, reservation.Filter{TeamID: "team-cs2-a"})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	n, err := e.svc.Delete(ctx, e.admin, groups[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	for _, row := range e.rows(t) {
		assert.NotEqual(t, other.ID, row.ID)
	}
	assert.Len(t, e.rows(t), 3)

	_, err = e.svc.Delete(ctx, e.admin, groups[0].ID)
	assert.ErrorIs(t, err, reservation.ErrNotFound)
}

func TestBackfillLegacyGroups(t *testing.T) {
	e := newEngine(t, nil)
	at := testutil.At
	ctx := context.Background()

	insertLegacy(t, e, "team-cs2-a", e.PC(1), at(10, 0), at(12, 0))
	insertLegacy(t, e, "team-cs2-a", e.PC(2), at(10, 0), at(12, 0))
	insertLegacy(t, e, "team-cs2-a", e.PC(1), at(13, 0), at(14, 0))

	n, err := e.store.BackfillLegacyGroups(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	groups, err := e.store.ListGrouped(ctx, reservation.Filter{})
	require.NoError(t, err)
	require.Len(t, groups, 2)
	for _, g := range groups {
		assert.False(t, g.Legacy)
		_, err := uuid.Parse(g.ID)
		assert.NoError(t, err)
	}
	assert.Len(t, groups[0].ComputerIDs, 2)

	n, err = e.store.BackfillLegacyGroups(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = e.svc.Delete(ctx, e.admin, groups[0].ID)
	require.NoError(t, err, "backfilled groups are editable")
}

func TestListFilters(t *testing.T) {
	e := newEngine(t, nil)
	at := testutil.At
	ctx := context.Background()

	g1, err := e.book(t, "team-valorant-a", at(10, 0), at(12, 0), 1, 2)
	require.NoError(t, err)
	g2, err := e.book(t, "team-cs2-a", at(14, 0), at(15, 0), 3)
	require.NoError(t, err)

	pc2 := e.PC(2)
	rows, err := e.store.ListRows(ctx, reservation.Filter{ComputerID: &pc2})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "PC-02", rows[0].Computer.Label)
	assert.Equal(t, "Valorant A", rows[0].Team.Name)
	assert.Equal(t, e.Admin.ID, rows[0].CreatedBy.ID)

	groups, err := e.store.ListGrouped(ctx, reservation.Filter{ComputerID: &pc2})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, g1.ID, groups[0].ID)
	assert.Len(t, groups[0].ComputerIDs, 2, "grouped listing returns the whole group")

	groups, err = e.store.ListGrouped(ctx, reservation.Filter{TeamID: "team-cs2-a"})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, g2.ID, groups[0].ID)

	from, to := at(12, 0), at(14, 0)
	groups, err = e.store.ListGrouped(ctx, reservation.Filter{Start: &from, End: &to})
	require.NoError(t, err)
	assert.Empty(t, groups, "windows touching [12:00,14:00) on both sides are excluded")

	from, to = at(11, 59), at(14, 1)
	groups, err = e.store.ListGrouped(ctx, reservation.Filter{Start: &from, End: &to})
	require.NoError(t, err)
	assert.Len(t, groups, 2)

	groups, err = e.store.ListGrouped(ctx, reservation.Filter{Start: &from})
	require.NoError(t, err)
	assert.Len(t, groups, 2, "a single bound is ignored")

	_, err = e.store.GetGroup(ctx, uuid.NewString())
	assert.ErrorIs(t, err, reservation.ErrNotFound)
}

func TestFindConflicts_ExcludesGroupAndReportsLabels(t *testing.T) {
	e := newEngine(t, nil)
	at := testutil.At
	ctx := context.Background()

	g, err := e.book(t, "team-valorant-a", at(10, 0), at(12, 0), 1, 2)
	require.NoError(t, err)

	iv, err := domain.NewInterval(at(11, 0), at(11, 30))
	require.NoError(t, err)
	ids := []int64{e.PC(1), e.PC(2), e.PC(3)}

	rows, err := e.store.FindConflicts(ctx, iv, ids, reservation.StatusConfirmed, "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "PC-01", rows[0].Computer.Label)

	rows, err = e.store.FindConflicts(ctx, iv, ids, reservation.StatusConfirmed, g.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
