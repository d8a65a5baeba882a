package models

import (
	"time"

	"gorm.io/gorm"
)

// Technician is the service-provider profile attached to a TECHNICIAN user.
type Technician struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	UserID        uint           `gorm:"uniqueIndex;not null" json:"user_id"`
	Specialty     string         `gorm:"size:120" json:"specialty"`
	Bio           string         `gorm:"type:text" json:"bio"`
	Available     bool           `gorm:"default:true;index" json:"available"`
	CompletedJobs int            `gorm:"default:0" json:"completed_jobs"`
	RatingAverage float64        `gorm:"default:0" json:"rating_average"`
	// Destination for provider transfers. Payouts fail until both are set.
	PayoutAccountID string       `gorm:"size:255" json:"-"`
	PayoutReady     bool         `gorm:"default:false" json:"payout_ready"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (Technician) TableName() string { return "technicians" }
