package computer

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("computer not found")

// Computer is a bookable seat in the facility.
type Computer struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Label     string    `json:"label" gorm:"type:varchar(64);not null;uniqueIndex"`
	IsActive  bool      `json:"isActive" gorm:"not null"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (Computer) TableName() string { return "computers" }
