package blackout

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"esports-scheduler/internal/domain"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	// HasBlackoutOverlapping returns the earliest window that blocks iv for
	// any of ids: every ALL window, and COMPUTER windows on one of ids.
	HasBlackoutOverlapping(ctx context.Context, iv domain.Interval, ids []int64) (bool, *Window, error)

	List(ctx context.Context, iv *domain.Interval) ([]Window, error)
	Create(ctx context.Context, w *Window) error
	Delete(ctx context.Context, id int64) error
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

func (r *repository) HasBlackoutOverlapping(ctx context.Context, iv domain.Interval, ids []int64) (bool, *Window, error) {
	q := r.db.WithContext(ctx).
		Where("starts_at < ? AND ends_at > ?", iv.End, iv.Start)
	if len(ids) > 0 {
		q = q.Where("(scope = ? OR (scope = ? AND computer_id IN ?))", ScopeAll, ScopeComputer, ids)
	} else {
		q = q.Where("scope = ?", ScopeAll)
	}

	var w Window
	err := q.Order("starts_at ASC").Order("id ASC").Take(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	return true, &w, nil
}

func (r *repository) List(ctx context.Context, iv *domain.Interval) ([]Window, error) {
	q := r.db.WithContext(ctx)
	if iv != nil {
		q = q.Where("starts_at < ? AND ends_at > ?", iv.End, iv.Start)
	}
	var out []Window
	err := q.Order("starts_at ASC").Order("id ASC").Find(&out).Error
	return out, err
}

func (r *repository) Create(ctx context.Context, w *Window) error {
	return r.db.WithContext(ctx).Create(w).Error
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&Window{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
