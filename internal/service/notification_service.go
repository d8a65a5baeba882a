package service

import (
	"encoding/json"

	"github.com/michael24561/ConfiaPeBack/internal/models"
	"github.com/michael24561/ConfiaPeBack/internal/repository"

	"gorm.io/gorm"
)

// NotificationService persists notification rows and fans them out over
// the realtime channel. Persistence may join the caller's transaction
// (CreateTx); pushes always happen after commit via Dispatch.
type NotificationService struct {
	repo     *repository.NotificationRepository
	notifier EventNotifier
}

func NewNotificationService(repo *repository.NotificationRepository, notifier EventNotifier) *NotificationService {
	if notifier == nil {
		notifier = NopNotifier()
	}
	return &NotificationService{repo: repo, notifier: notifier}
}

// CreateTx writes the notification row inside the caller's transaction
// so a rolled-back job action leaves no orphan notification behind.
func (s *NotificationService) CreateTx(tx *gorm.DB, userID uint, notifType, title, body string, data map[string]interface{}) (*models.Notification, error) {
	var dataJSON string
	if data != nil {
		b, _ := json.Marshal(data)
		dataJSON = string(b)
	}
	n := &models.Notification{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Body:   body,
		Data:   dataJSON,
	}
	if err := tx.Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

// Dispatch pushes an already-persisted notification to the user.
// Failures are the notifier's problem, never the caller's.
func (s *NotificationService) Dispatch(n *models.Notification) {
	if n == nil {
		return
	}
	s.notifier.Notify(n.UserID, "new_notification", n)
}

// Notify persists and dispatches in one step, for call sites that are
// not inside a larger transaction.
func (s *NotificationService) Notify(userID uint, notifType, title, body string, data map[string]interface{}) error {
	var dataJSON string
	if data != nil {
		b, _ := json.Marshal(data)
		dataJSON = string(b)
	}
	n := &models.Notification{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Body:   body,
		Data:   dataJSON,
	}
	if err := s.repo.Create(n); err != nil {
		return err
	}
	s.notifier.Notify(userID, "new_notification", n)
	return nil
}
