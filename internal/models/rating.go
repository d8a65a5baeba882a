package models

import (
	"time"

	"gorm.io/gorm"
)

// Rating is the client's review of a completed job, at most one per job.
// The technician average is recomputed from scratch on every write and
// delete so removals cannot leave the aggregate drifting.
type Rating struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	JobID     uint           `gorm:"uniqueIndex;not null" json:"job_id"`
	ClientID  uint           `gorm:"not null;index" json:"client_id"`
	Score     int            `gorm:"not null" json:"score"` // 1..5
	Comment   string         `gorm:"type:text" json:"comment"`
	Public    bool           `gorm:"default:true" json:"public"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Job    Job  `gorm:"foreignKey:JobID" json:"-"`
	Client User `gorm:"foreignKey:ClientID" json:"client,omitempty"`
}

func (Rating) TableName() string { return "ratings" }
