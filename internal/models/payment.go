package models

import (
	"time"

	"gorm.io/gorm"
)

// Payment tracks settlement for exactly one job (unique index on JobID).
// Created lazily on the first checkout attempt and owned by the
// settlement service; the state machine only reads it.
type Payment struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	JobID        uint   `gorm:"uniqueIndex;not null" json:"job_id"`
	ClientID     uint   `gorm:"not null;index" json:"client_id"`
	TechnicianID uint   `gorm:"not null;index" json:"technician_id"`

	TotalAmount      float64 `gorm:"not null" json:"total_amount"`
	PlatformFee      float64 `gorm:"not null" json:"platform_fee"`
	TechnicianAmount float64 `gorm:"not null" json:"technician_amount"`
	Currency         string  `gorm:"size:3;default:'PEN'" json:"currency"`

	// ExternalReference is our UUID sent to the provider; webhooks
	// resolve back to this row through it.
	ExternalReference string  `gorm:"size:64;uniqueIndex" json:"external_reference"`
	ProviderStatus    string  `gorm:"size:20;not null;index" json:"provider_status"`
	ProviderStatusDetail string `gorm:"size:64" json:"provider_status_detail"`
	ProviderPaymentRef *string `gorm:"size:255;index" json:"provider_payment_ref"`
	PreferenceID       string  `gorm:"size:255" json:"-"`
	PaymentMethod      string  `gorm:"size:40" json:"payment_method"`
	Installments       int     `gorm:"default:1" json:"installments"`
	PaidAt             *time.Time `json:"paid_at"`

	PayoutDone bool       `gorm:"default:false" json:"payout_done"`
	PayoutRef  string     `gorm:"size:255" json:"payout_ref"`
	PayoutAt   *time.Time `json:"payout_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Job Job `gorm:"foreignKey:JobID" json:"-"`
}

func (Payment) TableName() string { return "payments" }
