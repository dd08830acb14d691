package reservation

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

const legacyPrefix = "legacy-"

// legacyKey is the composite key legacy rows are grouped by. Two unrelated
// bookings that happen to share team, window and creator collapse into one
// group under this key; backfilling group ids removes the ambiguity.
func legacyKey(r Reservation) string {
	return fmt.Sprintf("%s|%d|%d|%s", r.TeamID, r.StartsAt.UTC().UnixNano(), r.EndsAt.UTC().UnixNano(), r.CreatedByUserID)
}

func legacyGroupID(r Reservation) string {
	sum := sha256.Sum256([]byte(legacyKey(r)))
	return legacyPrefix + hex.EncodeToString(sum[:8])
}

func isLegacyID(id string) bool {
	return strings.HasPrefix(id, legacyPrefix)
}

func groupKey(r Reservation) (string, bool) {
	if r.GroupID != nil && *r.GroupID != "" {
		return *r.GroupID, false
	}
	return legacyGroupID(r), true
}

// buildGroups folds rows into one view per group, ordered by start then id.
func buildGroups(rows []Reservation) []Group {
	index := make(map[string]int)
	var groups []Group

	for _, r := range rows {
		id, legacy := groupKey(r)
		i, ok := index[id]
		if !ok {
			g := Group{
				ID:              id,
				Legacy:          legacy,
				TeamID:          r.TeamID,
				StartsAt:        r.StartsAt.UTC(),
				EndsAt:          r.EndsAt.UTC(),
				CreatedByUserID: r.CreatedByUserID,
				Status:          r.Status,
			}
			if r.Team != nil {
				g.TeamName = r.Team.Name
				g.GameTitle = r.Team.GameTitle
			}
			if r.CreatedBy != nil {
				g.CreatedByName = r.CreatedBy.Name
			}
			groups = append(groups, g)
			i = len(groups) - 1
			index[id] = i
		}
		groups[i].ComputerIDs = append(groups[i].ComputerIDs, r.ComputerID)
		groups[i].Reservations = append(groups[i].Reservations, r.ID)
	}

	labels := make(map[int64]string)
	for _, r := range rows {
		if r.Computer != nil {
			labels[r.ComputerID] = r.Computer.Label
		}
	}

	for i := range groups {
		g := &groups[i]
		sort.Slice(g.ComputerIDs, func(a, b int) bool { return g.ComputerIDs[a] < g.ComputerIDs[b] })
		g.ComputerLabels = make([]string, 0, len(g.ComputerIDs))
		for _, cid := range g.ComputerIDs {
			label, ok := labels[cid]
			if !ok {
				label = fmt.Sprintf("#%d", cid)
			}
			g.ComputerLabels = append(g.ComputerLabels, label)
		}
		sort.Strings(g.Reservations)
	}

	sort.SliceStable(groups, func(a, b int) bool {
		if !groups[a].StartsAt.Equal(groups[b].StartsAt) {
			return groups[a].StartsAt.Before(groups[b].StartsAt)
		}
		return groups[a].ID < groups[b].ID
	})
	return groups
}
