package reservation

import (
	"time"

	"gorm.io/gorm"

	"esports-scheduler/internal/domain"
	"esports-scheduler/internal/domain/computer"
	"esports-scheduler/internal/domain/team"
	"esports-scheduler/internal/domain/user"
)

type Status string

const StatusConfirmed Status = "CONFIRMED"

// Reservation is one computer booked for one team over one interval. Rows
// written together share a GroupID; rows predating groups have none.
type Reservation struct {
	ID              string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	GroupID         *string   `json:"groupId" gorm:"type:varchar(36);index"`
	TeamID          string    `json:"teamId" gorm:"type:varchar(64);not null;index"`
	ComputerID      int64     `json:"computerId" gorm:"not null;index:idx_reservations_computer_window,priority:1"`
	StartsAt        time.Time `json:"startsAt" gorm:"not null;index:idx_reservations_computer_window,priority:2"`
	EndsAt          time.Time `json:"endsAt" gorm:"not null;index"`
	CreatedByUserID string    `json:"createdByUserId" gorm:"type:varchar(36);not null"`
	Status          Status    `json:"status" gorm:"type:varchar(16);not null"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`

	Computer  *computer.Computer `json:"computer,omitempty" gorm:"foreignKey:ComputerID"`
	Team      *team.Team         `json:"team,omitempty" gorm:"foreignKey:TeamID"`
	CreatedBy *user.User         `json:"createdBy,omitempty" gorm:"foreignKey:CreatedByUserID"`
}

func (Reservation) TableName() string { return "reservations" }

func (r *Reservation) AfterFind(*gorm.DB) error {
	r.StartsAt = r.StartsAt.UTC()
	r.EndsAt = r.EndsAt.UTC()
	return nil
}

func (r Reservation) Interval() domain.Interval {
	return domain.Interval{Start: r.StartsAt, End: r.EndsAt}
}

// Group is the read view of every row sharing a group id.
type Group struct {
	ID              string    `json:"id"`
	Legacy          bool      `json:"legacy,omitempty"`
	TeamID          string    `json:"teamId"`
	TeamName        string    `json:"teamName,omitempty"`
	GameTitle       string    `json:"gameTitle,omitempty"`
	ComputerIDs     []int64   `json:"computerIds"`
	ComputerLabels  []string  `json:"computerLabels"`
	StartsAt        time.Time `json:"startsAt"`
	EndsAt          time.Time `json:"endsAt"`
	CreatedByUserID string    `json:"createdByUserId"`
	CreatedByName   string    `json:"createdByName,omitempty"`
	Status          Status    `json:"status"`
	Reservations    []string  `json:"reservationIds"`
}

// Filter narrows listings. The time window applies only when both bounds
// are set and matches reservations overlapping [Start, End).
type Filter struct {
	GroupID    string
	TeamID     string
	ComputerID *int64
	Start      *time.Time
	End        *time.Time
}

type PurgeResult struct {
	Cutoff time.Time `json:"cutoff"`
	DryRun bool      `json:"dryRun"`
	Count  int64     `json:"count"`
}
