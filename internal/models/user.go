package models

import (
	"time"

	"github.com/michael24561/ConfiaPeBack/internal/domain"

	"gorm.io/gorm"
)

type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Name         string         `gorm:"size:120;not null" json:"name"`
	Email        string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string         `gorm:"size:255" json:"-"`
	Role         string         `gorm:"size:20;not null;index" json:"role"` // CLIENT | TECHNICIAN | ADMIN
	Phone        string         `gorm:"size:30" json:"phone"`
	AvatarURL    string         `gorm:"size:512" json:"avatar_url"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	Technician *Technician `gorm:"foreignKey:UserID" json:"technician,omitempty"`
}

func (User) TableName() string { return "users" }

func (u *User) IsClient() bool     { return u.Role == domain.RoleClient }
func (u *User) IsTechnician() bool { return u.Role == domain.RoleTechnician }
func (u *User) IsAdmin() bool      { return u.Role == domain.RoleAdmin }
