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

// DisputeService files reports and lets admins resolve disputed jobs
// into a terminal state.
type DisputeService struct {
	db      *gorm.DB
	jobs    *repository.JobRepository
	reports *repository.ReportRepository
	notifs  *NotificationService
}

func NewDisputeService(db *gorm.DB, jobs *repository.JobRepository, reports *repository.ReportRepository, notifs *NotificationService) *DisputeService {
	return &DisputeService{db: db, jobs: jobs, reports: reports, notifs: notifs}
}

type FileReportInput struct {
	Reason      string
	Description string
}

// FileReport creates a report and forces the job into DISPUTED in one
// transaction. Either party may report; terminal or already-disputed
// jobs cannot be.
func (s *DisputeService) FileReport(jobID uint, actor Actor, in FileReportInput) (*models.Report, error) {
	if in.Reason == "" {
		return nil, apierr.Validation("reason is required")
	}
	job, err := s.jobs.GetByID(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("job not found")
		}
		return nil, err
	}
	isClient := actor.Role == domain.RoleClient && job.ClientID == actor.UserID
	isTechnician := actor.Role == domain.RoleTechnician && job.Technician.UserID == actor.UserID
	if !isClient && !isTechnician {
		return nil, apierr.Forbidden("you cannot report this job")
	}
	if job.Status == domain.JobCancelled || job.Status == domain.JobDisputed ||
		job.Status == domain.JobRejected {
		return nil, apierr.Conflict("cannot report a job in state %s", job.Status)
	}

	report := &models.Report{
		JobID:            jobID,
		ReporterID:       actor.UserID,
		Reason:           in.Reason,
		Description:      in.Description,
		ResolutionStatus: domain.ReportPending,
	}
	counterpart := job.Technician.UserID
	if isTechnician {
		counterpart = job.ClientID
	}
	var created *models.Notification
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(report).Error; err != nil {
			return err
		}
		ok, err := s.jobs.UpdateStatusIf(tx, jobID, job.Status, domain.JobDisputed, nil)
		if err != nil {
			return err
		}
		if !ok {
			return apierr.Conflict("job state changed while filing the report")
		}
		n, err := s.notifs.CreateTx(tx, counterpart, domain.NotifDispute,
			"Trabajo en disputa",
			fmt.Sprintf("El trabajo \"%s\" ha sido reportado y está en disputa.", job.ServiceName),
			map[string]interface{}{"job_id": jobID, "report_id": report.ID})
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
	return report, nil
}

// ListDisputes returns all currently disputed jobs with their reports.
func (s *DisputeService) ListDisputes() ([]models.Job, error) {
	return s.reports.ListDisputedJobs()
}

// Resolve moves a DISPUTED job to COMPLETED or CANCELLED and settles
// every open report on it in the same transaction: RESOLVED when the
// job completes, REJECTED when it is cancelled. No partial resolution.
func (s *DisputeService) Resolve(jobID uint, newStatus string) (*models.Job, error) {
	if newStatus != domain.JobCompleted && newStatus != domain.JobCancelled {
		return nil, apierr.Validation("disputes resolve to %s or %s, got %q", domain.JobCompleted, domain.JobCancelled, newStatus)
	}
	job, err := s.jobs.GetByID(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("job not found")
		}
		return nil, err
	}
	if job.Status != domain.JobDisputed {
		return nil, apierr.Conflict("job is in state %s, only %s jobs can be resolved", job.Status, domain.JobDisputed)
	}

	reportStatus := domain.ReportResolved
	if newStatus == domain.JobCancelled {
		reportStatus = domain.ReportRejected
	}
	var created []*models.Notification
	err = s.db.Transaction(func(tx *gorm.DB) error {
		ok, err := s.jobs.UpdateStatusIf(tx, jobID, domain.JobDisputed, newStatus, nil)
		if err != nil {
			return err
		}
		if !ok {
			return apierr.Conflict("dispute was already resolved")
		}
		if err := tx.Model(&models.Report{}).
			Where("job_id = ? AND resolution_status IN ?", jobID, []string{domain.ReportPending, domain.ReportInReview}).
			Update("resolution_status", reportStatus).Error; err != nil {
			return err
		}
		for _, userID := range []uint{job.ClientID, job.Technician.UserID} {
			n, err := s.notifs.CreateTx(tx, userID, domain.NotifDispute,
				"Disputa resuelta",
				fmt.Sprintf("La disputa del trabajo \"%s\" se resolvió como %s.", job.ServiceName, newStatus),
				map[string]interface{}{"job_id": jobID, "new_status": newStatus})
			if err != nil {
				return err
			}
			created = append(created, n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, n := range created {
		s.notifs.Dispatch(n)
	}
	return s.jobs.GetByID(jobID)
}
