package models

import (
	"time"

	"gorm.io/gorm"
)

// Report is a dispute filed by either party of a job. Filing one forces
// the job into DISPUTED; several reports may accumulate on one job.
type Report struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	JobID            uint           `gorm:"not null;index" json:"job_id"`
	ReporterID       uint           `gorm:"not null;index" json:"reporter_id"`
	Reason           string         `gorm:"size:120;not null" json:"reason"`
	Description      string         `gorm:"type:text" json:"description"`
	ResolutionStatus string         `gorm:"size:20;not null;index" json:"resolution_status"`
	FiledAt          time.Time      `gorm:"autoCreateTime" json:"filed_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`

	Job      Job  `gorm:"foreignKey:JobID" json:"-"`
	Reporter User `gorm:"foreignKey:ReporterID" json:"reporter,omitempty"`
}

func (Report) TableName() string { return "reports" }
