package team

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	List(ctx context.Context) ([]Team, error)
	Exists(ctx context.Context, id string) (bool, error)
	Upsert(ctx context.Context, t *Team) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context) ([]Team, error) {
	var out []Team
	err := r.db.WithContext(ctx).Order("game_title ASC").Order("name ASC").Find(&out).Error
	return out, err
}

func (r *repository) Exists(ctx context.Context, id string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&Team{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *repository) Upsert(ctx context.Context, t *Team) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "game_title"}),
	}).Create(t).Error
}
