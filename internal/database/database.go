package database

import (
	"log"
	"os"

	"github.com/michael24561/ConfiaPeBack/config"
	"github.com/michael24561/ConfiaPeBack/internal/domain"
	"github.com/michael24561/ConfiaPeBack/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// AutoMigrate runs Gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Technician{},
		&models.Job{},
		&models.Payment{},
		&models.Report{},
		&models.Rating{},
		&models.Notification{},
	)
}

// SeedAdmin creates the platform admin account if it does not exist.
func SeedAdmin(db *gorm.DB) {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return
	}
	var count int64
	db.Model(&models.User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[seed] admin password hash: %v", err)
		return
	}
	if err := db.Create(&models.User{
		Name:         "Admin",
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
	}).Error; err != nil {
		log.Printf("[seed] admin user: %v", err)
	}
}
