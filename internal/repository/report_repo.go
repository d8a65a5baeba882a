package repository

import (
	"github.com/michael24561/ConfiaPeBack/internal/models"

	"gorm.io/gorm"
)

type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) ListByJobID(jobID uint) ([]models.Report, error) {
	var list []models.Report
	err := r.db.Where("job_id = ?", jobID).Order("filed_at DESC").Preload("Reporter").Find(&list).Error
	return list, err
}

// ListDisputedJobs returns every job currently in dispute, newest
// first, with its reports attached.
func (r *ReportRepository) ListDisputedJobs() ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.Where("status = ?", "DISPUTED").
		Preload("Reports", func(db *gorm.DB) *gorm.DB { return db.Order("filed_at DESC") }).
		Preload("Reports.Reporter").
		Preload("Client").Preload("Technician").Preload("Technician.User").
		Order("requested_at DESC").
		Find(&jobs).Error
	return jobs, err
}
