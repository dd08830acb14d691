package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"esports-scheduler/internal/domain"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindConflicts(ctx context.Context, iv domain.Interval, computerIDs []int64, status Status, excludeGroupID string) ([]Reservation, error)
	CreateGroup(ctx context.Context, groupID, teamID string, computerIDs []int64, iv domain.Interval, creatorID string) ([]Reservation, error)
	ReplaceGroup(ctx context.Context, groupID, teamID string, computerIDs []int64, iv domain.Interval, creatorID string) ([]Reservation, error)
	DeleteGroup(ctx context.Context, groupID string) (int64, error)
	// LockGroup loads a group's rows under a row lock. Derived legacy ids
	// resolve to the ungrouped rows that share the composite key.
	LockGroup(ctx context.Context, groupID string) ([]Reservation, error)
	// AssignGroup stamps rowIDs with groupID.
	AssignGroup(ctx context.Context, rowIDs []string, groupID string) error
	// DeleteRow removes one reservation and returns it; ErrNotFound if absent.
	DeleteRow(ctx context.Context, id string) (*Reservation, error)
	CountGroup(ctx context.Context, groupID string) (int64, error)

	ListRows(ctx context.Context, f Filter) ([]Reservation, error)
	ListGrouped(ctx context.Context, f Filter) ([]Group, error)
	GetGroup(ctx context.Context, groupID string) (*Group, error)

	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CountBefore(ctx context.Context, cutoff time.Time) (int64, error)
	BackfillLegacyGroups(ctx context.Context) (int, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) FindConflicts(ctx context.Context, iv domain.Interval, computerIDs []int64, status Status, excludeGroupID string) ([]Reservation, error) {
	if len(computerIDs) == 0 {
		return nil, nil
	}

	q := r.db.WithContext(ctx).
		Preload("Computer").
		Where("computer_id IN ?", computerIDs).
		Where("status = ?", status).
		Where("starts_at < ? AND ends_at > ?", iv.End, iv.Start)
	if excludeGroupID != "" {
		q = q.Where("(group_id IS NULL OR group_id <> ?)", excludeGroupID)
	}

	var out []Reservation
	if err := q.Order("computer_id ASC").Order("starts_at ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("find conflicts: %w", err)
	}
	return out, nil
}

func (r *repository) CreateGroup(ctx context.Context, groupID, teamID string, computerIDs []int64, iv domain.Interval, creatorID string) ([]Reservation, error) {
	rows := make([]Reservation, 0, len(computerIDs))
	for _, cid := range computerIDs {
		gid := groupID
		rows = append(rows, Reservation{
			ID:              uuid.NewString(),
			GroupID:         &gid,
			TeamID:          teamID,
			ComputerID:      cid,
			StartsAt:        iv.Start,
			EndsAt:          iv.End,
			CreatedByUserID: creatorID,
			Status:          StatusConfirmed,
		})
	}
	if len(rows) == 0 {
		return rows, nil
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&rows).Error; err != nil {
		return nil, fmt.Errorf("insert group rows: %w", err)
	}
	return rows, nil
}

// ReplaceGroup must run inside a transaction; the delete and insert are not
// atomic on their own.
func (r *repository) ReplaceGroup(ctx context.Context, groupID, teamID string, computerIDs []int64, iv domain.Interval, creatorID string) ([]Reservation, error) {
	if _, err := r.DeleteGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return r.CreateGroup(ctx, groupID, teamID, computerIDs, iv, creatorID)
}

func (r *repository) DeleteGroup(ctx context.Context, groupID string) (int64, error) {
	q := r.db.WithContext(ctx)
	if isLegacyID(groupID) {
		rows, err := r.legacyRows(ctx, groupID, false)
		if err != nil {
			return 0, err
		}
		if len(rows) == 0 {
			return 0, nil
		}
		q = q.Where("id IN ?", rowIDs(rows))
	} else {
		q = q.Where("group_id = ?", groupID)
	}

	res := q.Delete(&Reservation{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete group: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *repository) LockGroup(ctx context.Context, groupID string) ([]Reservation, error) {
	if isLegacyID(groupID) {
		return r.legacyRows(ctx, groupID, true)
	}

	var out []Reservation
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("group_id = ?", groupID).
		Order("computer_id ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("load group: %w", err)
	}
	return out, nil
}

func (r *repository) AssignGroup(ctx context.Context, ids []string, groupID string) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&Reservation{}).Where("id IN ?", ids).Update("group_id", groupID).Error
	if err != nil {
		return fmt.Errorf("assign group: %w", err)
	}
	return nil
}

func (r *repository) DeleteRow(ctx context.Context, id string) (*Reservation, error) {
	var row Reservation
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load reservation: %w", err)
	}
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&Reservation{}).Error; err != nil {
		return nil, fmt.Errorf("delete reservation: %w", err)
	}
	return &row, nil
}

func (r *repository) CountGroup(ctx context.Context, groupID string) (int64, error) {
	if isLegacyID(groupID) {
		rows, err := r.legacyRows(ctx, groupID, false)
		return int64(len(rows)), err
	}
	var n int64
	err := r.db.WithContext(ctx).Model(&Reservation{}).Where("group_id = ?", groupID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count group: %w", err)
	}
	return n, nil
}

// legacyRows scans ungrouped rows for the cluster behind a derived id; the
// hash cannot be reversed into a query.
func (r *repository) legacyRows(ctx context.Context, legacyID string, lock bool) ([]Reservation, error) {
	q := r.db.WithContext(ctx).Where("group_id IS NULL")
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var candidates []Reservation
	if err := q.Order("computer_id ASC").Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("load legacy group: %w", err)
	}
	out := candidates[:0]
	for _, row := range candidates {
		if legacyGroupID(row) == legacyID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *repository) ListRows(ctx context.Context, f Filter) ([]Reservation, error) {
	q := r.db.WithContext(ctx).
		Preload("Computer").
		Preload("Team").
		Preload("CreatedBy")
	q = applyFilter(q, f, true)

	var out []Reservation
	if err := q.Order("starts_at ASC").Order("computer_id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	if isLegacyID(f.GroupID) {
		kept := out[:0]
		for _, row := range out {
			if legacyGroupID(row) == f.GroupID {
				kept = append(kept, row)
			}
		}
		out = kept
	}
	return out, nil
}

// ListGrouped applies the computer filter per group so a group touching the
// computer is returned whole.
func (r *repository) ListGrouped(ctx context.Context, f Filter) ([]Group, error) {
	q := r.db.WithContext(ctx).
		Preload("Computer").
		Preload("Team").
		Preload("CreatedBy")
	q = applyFilter(q, f, false)

	var rows []Reservation
	if err := q.Order("starts_at ASC").Order("computer_id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}

	groups := buildGroups(rows)
	if f.ComputerID == nil && !isLegacyID(f.GroupID) {
		return groups, nil
	}
	out := groups[:0]
	for _, g := range groups {
		if isLegacyID(f.GroupID) && g.ID != f.GroupID {
			continue
		}
		if f.ComputerID == nil || hasComputer(g, *f.ComputerID) {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *repository) GetGroup(ctx context.Context, groupID string) (*Group, error) {
	groups, err := r.ListGrouped(ctx, Filter{GroupID: groupID})
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, ErrNotFound
	}
	return &groups[0], nil
}

func (r *repository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("ends_at < ?", cutoff.UTC()).Delete(&Reservation{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge reservations: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *repository) CountBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Reservation{}).Where("ends_at < ?", cutoff.UTC()).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count reservations: %w", err)
	}
	return n, nil
}

// BackfillLegacyGroups gives every legacy cluster its own group id.
func (r *repository) BackfillLegacyGroups(ctx context.Context) (int, error) {
	assigned := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []Reservation
		if err := tx.Where("group_id IS NULL").Order("starts_at ASC").Order("computer_id ASC").Find(&rows).Error; err != nil {
			return err
		}

		clusters := make(map[string][]string)
		var order []string
		for _, row := range rows {
			key := legacyKey(row)
			if _, ok := clusters[key]; !ok {
				order = append(order, key)
			}
			clusters[key] = append(clusters[key], row.ID)
		}

		for _, key := range order {
			gid := uuid.NewString()
			if err := tx.Model(&Reservation{}).Where("id IN ?", clusters[key]).Update("group_id", gid).Error; err != nil {
				return err
			}
			assigned++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("backfill legacy groups: %w", err)
	}
	return assigned, nil
}

func hasComputer(g Group, computerID int64) bool {
	for _, cid := range g.ComputerIDs {
		if cid == computerID {
			return true
		}
	}
	return false
}

func rowIDs(rows []Reservation) []string {
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	return ids
}

// applyFilter narrows a legacy group id to ungrouped rows; callers finish the
// match on the derived id.
func applyFilter(q *gorm.DB, f Filter, withComputer bool) *gorm.DB {
	switch {
	case isLegacyID(f.GroupID):
		q = q.Where("group_id IS NULL")
	case f.GroupID != "":
		q = q.Where("group_id = ?", f.GroupID)
	}
	if f.TeamID != "" {
		q = q.Where("team_id = ?", f.TeamID)
	}
	if withComputer && f.ComputerID != nil {
		q = q.Where("computer_id = ?", *f.ComputerID)
	}
	if f.Start != nil && f.End != nil {
		q = q.Where("starts_at < ? AND ends_at > ?", f.End.UTC(), f.Start.UTC())
	}
	return q
}
