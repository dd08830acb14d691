package blackout

import (
	"errors"
	"time"

	"esports-scheduler/internal/domain"
)

type Scope string

const (
	ScopeAll      Scope = "ALL"
	ScopeComputer Scope = "COMPUTER"
)

var (
	ErrNotFound     = errors.New("blackout not found")
	ErrInvalidScope = errors.New("scope must be ALL, or COMPUTER with a computerId")
)

// Window blocks bookings either facility-wide or on a single computer.
type Window struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	StartsAt   time.Time `json:"startsAt" gorm:"not null;index"`
	EndsAt     time.Time `json:"endsAt" gorm:"not null;index"`
	Scope      Scope     `json:"scope" gorm:"type:varchar(16);not null"`
	ComputerID *int64    `json:"computerId,omitempty" gorm:"index"`
	Reason     string    `json:"reason,omitempty" gorm:"type:text"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (Window) TableName() string { return "blackouts" }

func (w Window) Interval() domain.Interval {
	return domain.Interval{Start: w.StartsAt, End: w.EndsAt}
}

// Validate checks the interval and that ComputerID is set iff Scope is COMPUTER.
func (w Window) Validate() error {
	if _, err := domain.NewInterval(w.StartsAt, w.EndsAt); err != nil {
		return err
	}
	switch w.Scope {
	case ScopeAll:
		if w.ComputerID != nil {
			return ErrInvalidScope
		}
	case ScopeComputer:
		if w.ComputerID == nil {
			return ErrInvalidScope
		}
	default:
		return ErrInvalidScope
	}
	return nil
}

// Blocks reports whether the window applies to any of ids over iv.
func (w Window) Blocks(iv domain.Interval, ids []int64) bool {
	if !w.Interval().Overlaps(iv) {
		return false
	}
	if w.Scope == ScopeAll {
		return true
	}
	for _, id := range ids {
		if w.ComputerID != nil && *w.ComputerID == id {
			return true
		}
	}
	return false
}
