package computer

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	// WithTx binds the repository to an open transaction.
	WithTx(tx *gorm.DB) Repository

	ListAll(ctx context.Context) ([]Computer, error)
	ListActive(ctx context.Context) ([]Computer, error)
	GetByID(ctx context.Context, id int64) (*Computer, error)
	AreAllActive(ctx context.Context, ids []int64) (bool, []int64, error)
	SetActive(ctx context.Context, id int64, active bool) (*Computer, error)
	Upsert(ctx context.Context, c *Computer) error

	// LockForBooking takes row locks on the active computers among ids, in id
	// order, and returns the ids it could not lock (unknown or inactive).
	LockForBooking(ctx context.Context, ids []int64) ([]int64, error)
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

func (r *repository) ListAll(ctx context.Context) ([]Computer, error) {
	var out []Computer
	err := r.db.WithContext(ctx).Order("id ASC").Find(&out).Error
	return out, err
}

func (r *repository) ListActive(ctx context.Context) ([]Computer, error) {
	var out []Computer
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("id ASC").Find(&out).Error
	return out, err
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Computer, error) {
	var c Computer
	err := r.db.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// AreAllActive reports which of ids are unknown or inactive, in request order.
func (r *repository) AreAllActive(ctx context.Context, ids []int64) (bool, []int64, error) {
	if len(ids) == 0 {
		return true, nil, nil
	}

	var activeIDs []int64
	err := r.db.WithContext(ctx).
		Model(&Computer{}).
		Where("id IN ?", ids).
		Where("is_active = ?", true).
		Pluck("id", &activeIDs).Error
	if err != nil {
		return false, nil, fmt.Errorf("check computers: %w", err)
	}

	active := make(map[int64]struct{}, len(activeIDs))
	for _, id := range activeIDs {
		active[id] = struct{}{}
	}

	var missing []int64
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := active[id]; !ok {
			missing = append(missing, id)
		}
	}
	return len(missing) == 0, missing, nil
}

func (r *repository) SetActive(ctx context.Context, id int64, active bool) (*Computer, error) {
	res := r.db.WithContext(ctx).Model(&Computer{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Upsert inserts by label or refreshes the active flag of an existing row.
func (r *repository) Upsert(ctx context.Context, c *Computer) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "label"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_active", "updated_at"}),
	}).Create(c).Error
}

func (r *repository) LockForBooking(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var locked []Computer
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Where("is_active = ?", true).
		Order("id ASC").
		Find(&locked).Error
	if err != nil {
		return nil, fmt.Errorf("lock computers: %w", err)
	}
	if len(locked) == len(ids) {
		return nil, nil
	}

	got := make(map[int64]struct{}, len(locked))
	for _, c := range locked {
		got[c.ID] = struct{}{}
	}
	var missing []int64
	for _, id := range ids {
		if _, ok := got[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}
