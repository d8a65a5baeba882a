package repository

import (
	"github.com/michael24561/ConfiaPeBack/internal/models"

	"gorm.io/gorm"
)

type RatingRepository struct {
	db *gorm.DB
}

func NewRatingRepository(db *gorm.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

func (r *RatingRepository) GetByID(id uint) (*models.Rating, error) {
	var rt models.Rating
	if err := r.db.First(&rt, id).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

func (r *RatingRepository) GetByJobID(jobID uint) (*models.Rating, error) {
	var rt models.Rating
	if err := r.db.Where("job_id = ?", jobID).First(&rt).Error; err != nil {
		return nil, err
	}
	return &rt, nil
}

func (r *RatingRepository) ListByTechnicianID(technicianID uint, limit, offset int) ([]models.Rating, int64, error) {
	base := r.db.Model(&models.Rating{}).
		Joins("JOIN jobs ON jobs.id = ratings.job_id").
		Where("jobs.technician_id = ? AND ratings.public = ?", technicianID, true)
	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.Rating
	err := base.Preload("Client").Order("ratings.created_at DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, total, err
}

// AverageForTechnician recomputes the mean score across every rating of
// the technician's jobs. Full recompute, not incremental: deletes must
// not leave the aggregate drifting.
func (r *RatingRepository) AverageForTechnician(tx *gorm.DB, technicianID uint) (float64, error) {
	var avg *float64
	err := tx.Model(&models.Rating{}).
		Joins("JOIN jobs ON jobs.id = ratings.job_id").
		Where("jobs.technician_id = ?", technicianID).
		Select("AVG(ratings.score)").
		Scan(&avg).Error
	if err != nil {
		return 0, err
	}
	if avg == nil {
		return 0, nil
	}
	return *avg, nil
}
