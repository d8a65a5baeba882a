package models

import (
	"time"

	"gorm.io/gorm"
)

// Job is the central entity: a client's service request against one
// technician. Status only changes through the state machine; Price is
// set when the technician quotes and never before.
type Job struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	ClientID     uint           `gorm:"not null;index" json:"client_id"`
	TechnicianID uint           `gorm:"not null;index" json:"technician_id"`
	ServiceName  string         `gorm:"size:160;not null" json:"service_name"`
	Description  string         `gorm:"type:text" json:"description"`
	Address      string         `gorm:"size:255" json:"address"`
	Phone        string         `gorm:"size:30" json:"phone"`
	Price        *float64       `json:"price"`
	Status       string         `gorm:"size:20;not null;index" json:"status"`
	ScheduledAt  *time.Time     `json:"scheduled_at"`
	RequestedAt  time.Time      `gorm:"autoCreateTime" json:"requested_at"`
	CompletedAt  *time.Time     `json:"completed_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	Client     User        `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Technician Technician  `gorm:"foreignKey:TechnicianID" json:"technician,omitempty"`
	Payment    *Payment    `gorm:"foreignKey:JobID" json:"payment,omitempty"`
	Rating     *Rating     `gorm:"foreignKey:JobID" json:"rating,omitempty"`
	Reports    []Report    `gorm:"foreignKey:JobID" json:"reports,omitempty"`
}

func (Job) TableName() string { return "jobs" }
