package repository

import (
	"github.com/michael24561/ConfiaPeBack/internal/models"

	"gorm.io/gorm"
)

// JobFilter narrows job listings; zero values mean "no filter".
type JobFilter struct {
	Status       string
	ClientID     uint
	TechnicianID uint
}

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// DB exposes the underlying handle for services that open transactions
// spanning several aggregates.
func (r *JobRepository) DB() *gorm.DB { return r.db }

func (r *JobRepository) Create(j *models.Job) error {
	return r.db.Create(j).Error
}

func (r *JobRepository) GetByID(id uint) (*models.Job, error) {
	var j models.Job
	err := r.db.Preload("Client").Preload("Technician").Preload("Technician.User").First(&j, id).Error
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// GetByIDWithPayment also loads the payment row; used where
// payment-dependent transitions are gated.
func (r *JobRepository) GetByIDWithPayment(id uint) (*models.Job, error) {
	var j models.Job
	err := r.db.Preload("Client").Preload("Technician").Preload("Technician.User").
		Preload("Payment").First(&j, id).Error
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *JobRepository) List(f JobFilter, limit, offset int) ([]models.Job, int64, error) {
	return r.list(r.db, f, limit, offset)
}

func (r *JobRepository) list(db *gorm.DB, f JobFilter, limit, offset int) ([]models.Job, int64, error) {
	q := db.Model(&models.Job{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.ClientID != 0 {
		q = q.Where("client_id = ?", f.ClientID)
	}
	if f.TechnicianID != 0 {
		q = q.Where("technician_id = ?", f.TechnicianID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Job
	err := q.Preload("Client").Preload("Technician").Preload("Technician.User").Preload("Rating").
		Order("requested_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, total, err
}

// UpdateStatusIf performs the compare-and-swap that serializes
// concurrent transitions on one job: the row is updated only while it
// is still in fromStatus. Returns false when another transition won.
func (r *JobRepository) UpdateStatusIf(tx *gorm.DB, jobID uint, fromStatus, toStatus string, extra map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": toStatus}
	for k, v := range extra {
		updates[k] = v
	}
	res := tx.Model(&models.Job{}).
		Where("id = ? AND status = ?", jobID, fromStatus).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ForceStatus is the admin path: no source-state guard.
func (r *JobRepository) ForceStatus(tx *gorm.DB, jobID uint, toStatus string) error {
	return tx.Model(&models.Job{}).Where("id = ?", jobID).Update("status", toStatus).Error
}

// DeletePending removes a job that never left PENDING. Jobs further
// along get cancelled, not deleted.
func (r *JobRepository) DeletePending(jobID uint) (bool, error) {
	res := r.db.Where("id = ? AND status = ?", jobID, "PENDING").Delete(&models.Job{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
