package repository

import (
	"github.com/michael24561/ConfiaPeBack/internal/models"

	"gorm.io/gorm"
)

type TechnicianRepository struct {
	db *gorm.DB
}

func NewTechnicianRepository(db *gorm.DB) *TechnicianRepository {
	return &TechnicianRepository{db: db}
}

func (r *TechnicianRepository) Create(t *models.Technician) error {
	return r.db.Create(t).Error
}

func (r *TechnicianRepository) GetByID(id uint) (*models.Technician, error) {
	var t models.Technician
	if err := r.db.Preload("User").First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TechnicianRepository) GetByUserID(userID uint) (*models.Technician, error) {
	var t models.Technician
	if err := r.db.Where("user_id = ?", userID).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TechnicianRepository) ListAvailable(limit, offset int) ([]models.Technician, int64, error) {
	var list []models.Technician
	var total int64
	q := r.db.Model(&models.Technician{}).Where("available = ?", true)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Preload("User").Order("rating_average DESC").Limit(limit).Offset(offset).Find(&list).Error
	return list, total, err
}

func (r *TechnicianRepository) SetAvailability(id uint, available bool) error {
	return r.db.Model(&models.Technician{}).Where("id = ?", id).Update("available", available).Error
}

func (r *TechnicianRepository) Update(t *models.Technician) error {
	return r.db.Save(t).Error
}
