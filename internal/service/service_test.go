package service

import (
	"testing"

	"github.com/michael24561/ConfiaPeBack/internal/domain"
	"github.com/michael24561/ConfiaPeBack/internal/models"
	"github.com/michael24561/ConfiaPeBack/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Technician{},
		&models.Job{},
		&models.Payment{},
		&models.Report{},
		&models.Rating{},
		&models.Notification{},
	))
	return db
}

func seedClient(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	u := &models.User{Name: "Cliente", Email: email, Role: domain.RoleClient}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedTechnician(t *testing.T, db *gorm.DB, email string) (*models.User, *models.Technician) {
	t.Helper()
	u := &models.User{Name: "Técnico", Email: email, Role: domain.RoleTechnician}
	require.NoError(t, db.Create(u).Error)
	tech := &models.Technician{UserID: u.ID, Specialty: "Gasfitería", Available: true}
	require.NoError(t, db.Create(tech).Error)
	return u, tech
}

func seedJob(t *testing.T, db *gorm.DB, clientID, techID uint, status string, price *float64) *models.Job {
	t.Helper()
	j := &models.Job{
		ClientID:     clientID,
		TechnicianID: techID,
		ServiceName:  "Reparación de caño",
		Status:       status,
		Price:        price,
	}
	require.NoError(t, db.Create(j).Error)
	return j
}

func floatPtr(f float64) *float64 { return &f }

// capturedEvent records one realtime push for assertions.
type capturedEvent struct {
	UserID uint
	Event  string
}

type captureNotifier struct {
	events []capturedEvent
}

func (c *captureNotifier) Notify(userID uint, event string, _ interface{}) {
	c.events = append(c.events, capturedEvent{UserID: userID, Event: event})
}

// newJobService wires a JobService over the test database.
func newJobService(db *gorm.DB, notifier EventNotifier) *JobService {
	jobs := repository.NewJobRepository(db)
	techs := repository.NewTechnicianRepository(db)
	notifs := NewNotificationService(repository.NewNotificationRepository(db), notifier)
	return NewJobService(db, jobs, techs, notifs, notifier)
}

func countNotifications(t *testing.T, db *gorm.DB, userID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Notification{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}
