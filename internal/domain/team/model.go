package team

import "time"

// Team is reference data; ids are stable slugs such as "team-cs2-a".
type Team struct {
	ID        string    `json:"id" gorm:"type:varchar(64);primaryKey"`
	Name      string    `json:"name" gorm:"type:varchar(128);not null"`
	GameTitle string    `json:"gameTitle" gorm:"type:varchar(64);not null;index"`
	CreatedAt time.Time `json:"-"`
}

func (Team) TableName() string { return "teams" }
