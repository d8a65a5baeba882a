package service

import (
	"errors"
	"fmt"

	"github.com/michael24561/ConfiaPeBack/internal/apierr"
	"github.com/michael24561/ConfiaPeBack/internal/domain"
	"github.com/michael24561/ConfiaPeBack/internal/models"
	"github.com/michael24561/ConfiaPeBack/internal/repository"

	"gorm.io/gorm"
)

type RatingService struct {
	db      *gorm.DB
	jobs    *repository.JobRepository
	ratings *repository.RatingRepository
	notifs  *NotificationService
}

func NewRatingService(db *gorm.DB, jobs *repository.JobRepository, ratings *repository.RatingRepository, notifs *NotificationService) *RatingService {
	return &RatingService{db: db, jobs: jobs, ratings: ratings, notifs: notifs}
}

type CreateRatingInput struct {
	JobID   uint
	Score   int
	Comment string
	Public  bool
}

// Create rates a completed job, once. The technician's average is
// recomputed inside the same transaction so the aggregate can never be
// observed out of step with the rating that changed it.
func (s *RatingService) Create(actor Actor, in CreateRatingInput) (*models.Rating, error) {
	if in.Score < 1 || in.Score > 5 {
		return nil, apierr.Validation("score must be between 1 and 5")
	}
	job, err := s.jobs.GetByID(in.JobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("job not found")
		}
		return nil, err
	}
	if actor.Role != domain.RoleClient || job.ClientID != actor.UserID {
		return nil, apierr.Forbidden("only the job's client can rate it")
	}
	if job.Status != domain.JobCompleted {
		return nil, apierr.Conflict("only %s jobs can be rated (current: %s)", domain.JobCompleted, job.Status)
	}
	if _, err := s.ratings.GetByJobID(in.JobID); err == nil {
		return nil, apierr.Conflict("this job has already been rated")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	rating := &models.Rating{
		JobID:    in.JobID,
		ClientID: actor.UserID,
		Score:    in.Score,
		Comment:  in.Comment,
		Public:   in.Public,
	}
	var created *models.Notification
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rating).Error; err != nil {
			return err
		}
		if err := s.recomputeAverage(tx, job.TechnicianID); err != nil {
			return err
		}
		n, err := s.notifs.CreateTx(tx, job.Technician.UserID, domain.NotifRating,
			"¡Has recibido una nueva calificación!",
			fmt.Sprintf("Tu trabajo \"%s\" fue calificado con %d estrellas.", job.ServiceName, in.Score),
			map[string]interface{}{"job_id": job.ID, "rating_id": rating.ID})
		if err != nil {
			return err
		}
		created = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.notifs.Dispatch(created)
	return rating, nil
}

// Delete removes a rating (admin moderation) and recomputes the
// technician's average from what remains.
func (s *RatingService) Delete(ratingID uint) error {
	rating, err := s.ratings.GetByID(ratingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierr.NotFound("rating not found")
		}
		return err
	}
	job, err := s.jobs.GetByID(rating.JobID)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Rating{}, rating.ID).Error; err != nil {
			return err
		}
		return s.recomputeAverage(tx, job.TechnicianID)
	})
}

func (s *RatingService) ListByTechnician(technicianID uint, page, limit int) ([]models.Rating, int64, error) {
	page, limit = normalizePage(page, limit)
	return s.ratings.ListByTechnicianID(technicianID, limit, (page-1)*limit)
}

func (s *RatingService) recomputeAverage(tx *gorm.DB, technicianID uint) error {
	avg, err := s.ratings.AverageForTechnician(tx, technicianID)
	if err != nil {
		return err
	}
	return tx.Model(&models.Technician{}).Where("id = ?", technicianID).
		Update("rating_average", avg).Error
}
