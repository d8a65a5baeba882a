package repository

import (
	"github.com/michael24561/ConfiaPeBack/internal/models"

	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(p *models.Payment) error {
	return r.db.Create(p).Error
}

func (r *PaymentRepository) GetByJobID(jobID uint) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.Where("job_id = ?", jobID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByExternalReference(ref string) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.Where("external_reference = ?", ref).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) Update(p *models.Payment) error {
	return r.db.Save(p).Error
}

// MarkPayoutDone flips payout_done exactly once; a second call finds no
// row to update and returns false.
func (r *PaymentRepository) MarkPayoutDone(paymentID uint, payoutRef string) (bool, error) {
	res := r.db.Model(&models.Payment{}).
		Where("id = ? AND payout_done = ?", paymentID, false).
		Updates(map[string]interface{}{
			"payout_done": true,
			"payout_ref":  payoutRef,
			"payout_at":   gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
