package service

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/michael24561/ConfiaPeBack/internal/apierr"
	"github.com/michael24561/ConfiaPeBack/internal/domain"
	"github.com/michael24561/ConfiaPeBack/internal/models"
	"github.com/michael24561/ConfiaPeBack/internal/repository"

	"gorm.io/gorm"
)

// Actor is the authenticated caller of a job action.
type Actor struct {
	UserID uint
	Role   string
}

// Job actions. Every mutation of a job's status is one of these.
const (
	ActionRequestVisit = "request_visit"
	ActionQuote        = "quote"
	ActionReject       = "reject"
	ActionAcceptQuote  = "accept_quote"
	ActionRejectQuote  = "reject_quote"
	ActionStart        = "start"
	ActionComplete     = "complete"
	ActionCancel       = "cancel"
)

type transitionRule struct {
	from  []string
	to    string
	roles []string
}

// transitions is the single authorization + legality table. Handlers
// and services never re-check roles per endpoint; they consult this.
var transitions = map[string]transitionRule{
	ActionRequestVisit: {
		from:  []string{domain.JobPending},
		to:    domain.JobNeedsVisit,
		roles: []string{domain.RoleTechnician},
	},
	ActionQuote: {
		from:  []string{domain.JobPending, domain.JobNeedsVisit},
		to:    domain.JobQuoted,
		roles: []string{domain.RoleTechnician},
	},
	ActionReject: {
		from:  []string{domain.JobPending},
		to:    domain.JobRejected,
		roles: []string{domain.RoleTechnician},
	},
	ActionAcceptQuote: {
		from:  []string{domain.JobQuoted},
		to:    domain.JobAccepted,
		roles: []string{domain.RoleClient},
	},
	ActionRejectQuote: {
		from:  []string{domain.JobQuoted},
		to:    domain.JobRejected,
		roles: []string{domain.RoleClient},
	},
	ActionStart: {
		from:  []string{domain.JobAccepted},
		to:    domain.JobInProgress,
		roles: []string{domain.RoleTechnician},
	},
	ActionComplete: {
		from:  []string{domain.JobInProgress},
		to:    domain.JobCompleted,
		roles: []string{domain.RoleTechnician},
	},
	ActionCancel: {
		from:  []string{domain.JobAccepted, domain.JobInProgress},
		to:    domain.JobCancelled,
		roles: []string{domain.RoleClient, domain.RoleTechnician},
	},
}

// CanTransition reports whether the actor's role may apply the action
// to a job in the given state. Relationship to the job (is this MY job)
// is checked separately when the job is loaded.
func CanTransition(role, currentStatus, action string) bool {
	rule, ok := transitions[action]
	if !ok {
		return false
	}
	roleOK := false
	for _, r := range rule.roles {
		if r == role {
			roleOK = true
			break
		}
	}
	if !roleOK {
		return false
	}
	for _, s := range rule.from {
		if s == currentStatus {
			return true
		}
	}
	return false
}

type JobService struct {
	db       *gorm.DB
	jobs     *repository.JobRepository
	techs    *repository.TechnicianRepository
	notifs   *NotificationService
	notifier EventNotifier
}

func NewJobService(db *gorm.DB, jobs *repository.JobRepository, techs *repository.TechnicianRepository, notifs *NotificationService, notifier EventNotifier) *JobService {
	if notifier == nil {
		notifier = NopNotifier()
	}
	return &JobService{db: db, jobs: jobs, techs: techs, notifs: notifs, notifier: notifier}
}

type CreateJobInput struct {
	TechnicianID uint
	ServiceName  string
	Description  string
	Address      string
	Phone        string
	ScheduledAt  *time.Time
}

// Create opens a new job in PENDING and notifies the technician, both
// in one transaction.
func (s *JobService) Create(actor Actor, in CreateJobInput) (*models.Job, error) {
	if actor.Role != domain.RoleClient {
		return nil, apierr.Forbidden("only clients can request jobs")
	}
	if in.ServiceName == "" {
		return nil, apierr.Validation("service_name is required")
	}
	tech, err := s.techs.GetByID(in.TechnicianID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("technician not found")
		}
		return nil, err
	}
	if !tech.Available {
		return nil, apierr.Validation("technician is not available right now")
	}

	job := &models.Job{
		ClientID:     actor.UserID,
		TechnicianID: tech.ID,
		ServiceName:  in.ServiceName,
		Description:  in.Description,
		Address:      in.Address,
		Phone:        in.Phone,
		ScheduledAt:  in.ScheduledAt,
		Status:       domain.JobPending,
	}
	var created *models.Notification
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(job).Error; err != nil {
			return err
		}
		n, err := s.notifs.CreateTx(tx, tech.UserID, domain.NotifNewJob,
			"Nueva solicitud de trabajo",
			fmt.Sprintf("Nueva solicitud: %s", in.ServiceName),
			map[string]interface{}{"job_id": job.ID})
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
	return s.jobs.GetByID(job.ID)
}

// RequestVisit: PENDING -> NEEDS_VISIT, by the job's technician.
func (s *JobService) RequestVisit(jobID uint, actor Actor) (*models.Job, error) {
	return s.transition(jobID, actor, ActionRequestVisit, nil, func(job *models.Job) (uint, string, string) {
		return job.ClientID, "Visita requerida",
			"El técnico necesita una visita para cotizar tu trabajo."
	})
}

// Quote: PENDING|NEEDS_VISIT -> QUOTED with a positive price, rounded
// to 2 decimals. Quoting twice fails on the source-state check.
func (s *JobService) Quote(jobID uint, actor Actor, price float64) (*models.Job, error) {
	rounded := math.Round(price*100) / 100
	if rounded <= 0 {
		return nil, apierr.Validation("price must be a positive amount")
	}
	return s.transition(jobID, actor, ActionQuote,
		map[string]interface{}{"price": rounded},
		func(job *models.Job) (uint, string, string) {
			return job.ClientID, "Tienes una nueva cotización",
				fmt.Sprintf("Tu trabajo ha sido cotizado en S/ %.2f.", rounded)
		})
}

// RejectRequest: PENDING -> REJECTED, by the technician.
func (s *JobService) RejectRequest(jobID uint, actor Actor) (*models.Job, error) {
	return s.transition(jobID, actor, ActionReject, nil, func(job *models.Job) (uint, string, string) {
		return job.ClientID, "Solicitud rechazada",
			"El técnico no está disponible para tu solicitud."
	})
}

// AcceptQuote: QUOTED -> ACCEPTED, by the client, and only once the
// job's payment has been confirmed by the provider. The webhook is the
// canonical path for this edge; this endpoint covers the flow where the
// client returns from checkout before the page refreshes.
func (s *JobService) AcceptQuote(jobID uint, actor Actor) (*models.Job, error) {
	job, err := s.jobs.GetByIDWithPayment(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("job not found")
		}
		return nil, err
	}
	if err := s.authorize(job, actor, ActionAcceptQuote); err != nil {
		return nil, err
	}
	if job.Payment == nil || job.Payment.ProviderStatus != domain.PaymentApproved {
		return nil, apierr.Conflict("payment has not been confirmed for this job")
	}
	return s.apply(job, actor, ActionAcceptQuote, nil, func(job *models.Job) (uint, string, string) {
		return job.Technician.UserID, "¡Cotización aceptada!",
			fmt.Sprintf("El cliente ha aceptado y pagado tu cotización de S/ %.2f.", priceOf(job))
	})
}

// RejectQuote: QUOTED -> REJECTED, by the client.
func (s *JobService) RejectQuote(jobID uint, actor Actor) (*models.Job, error) {
	return s.transition(jobID, actor, ActionRejectQuote, nil, func(job *models.Job) (uint, string, string) {
		return job.Technician.UserID, "Cotización rechazada",
			"El cliente ha rechazado tu cotización."
	})
}

// Start: ACCEPTED -> IN_PROGRESS, by the technician.
func (s *JobService) Start(jobID uint, actor Actor) (*models.Job, error) {
	return s.transition(jobID, actor, ActionStart, nil, func(job *models.Job) (uint, string, string) {
		return job.ClientID, "Trabajo en progreso",
			"El técnico ha comenzado a trabajar en tu solicitud."
	})
}

// Complete: IN_PROGRESS -> COMPLETED. Sets completedAt and increments
// the technician's completed-job counter in the same transaction.
func (s *JobService) Complete(jobID uint, actor Actor) (*models.Job, error) {
	job, err := s.load(jobID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(job, actor, ActionComplete); err != nil {
		return nil, err
	}
	now := time.Now()
	var created *models.Notification
	err = s.db.Transaction(func(tx *gorm.DB) error {
		ok, err := s.jobs.UpdateStatusIf(tx, job.ID, job.Status, domain.JobCompleted,
			map[string]interface{}{"completed_at": now})
		if err != nil {
			return err
		}
		if !ok {
			return stateConflict(ActionComplete, job.Status)
		}
		if err := tx.Model(&models.Technician{}).Where("id = ?", job.TechnicianID).
			Update("completed_jobs", gorm.Expr("completed_jobs + ?", 1)).Error; err != nil {
			return err
		}
		n, err := s.notifs.CreateTx(tx, job.ClientID, domain.NotifSystem,
			"¡Trabajo completado!",
			"El técnico ha finalizado el trabajo. ¡No olvides calificarlo!",
			map[string]interface{}{"job_id": job.ID, "new_status": domain.JobCompleted})
		if err != nil {
			return err
		}
		created = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterTransition(job, created)
	return s.jobs.GetByID(job.ID)
}

// Cancel: ACCEPTED|IN_PROGRESS -> CANCELLED, by either party; the
// counterpart is notified.
func (s *JobService) Cancel(jobID uint, actor Actor) (*models.Job, error) {
	return s.transition(jobID, actor, ActionCancel, nil, func(job *models.Job) (uint, string, string) {
		recipient := job.Technician.UserID
		if actor.Role == domain.RoleTechnician {
			recipient = job.ClientID
		}
		return recipient, "Trabajo cancelado",
			fmt.Sprintf("El trabajo \"%s\" ha sido cancelado.", job.ServiceName)
	})
}

// Delete removes a job that never left PENDING. Only its client may do
// this; jobs further along are cancelled, never deleted.
func (s *JobService) Delete(jobID uint, actor Actor) error {
	job, err := s.load(jobID)
	if err != nil {
		return err
	}
	if actor.Role != domain.RoleClient || job.ClientID != actor.UserID {
		return apierr.Forbidden("you cannot delete this job")
	}
	ok, err := s.jobs.DeletePending(jobID)
	if err != nil {
		return err
	}
	if !ok {
		return apierr.Conflict("only jobs still in %s can be deleted (current: %s)", domain.JobPending, job.Status)
	}
	return nil
}

func (s *JobService) GetByID(jobID uint, actor Actor) (*models.Job, error) {
	job, err := s.jobs.GetByIDWithPayment(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("job not found")
		}
		return nil, err
	}
	if !s.isParticipant(job, Actor{UserID: actor.UserID, Role: actor.Role}) && actor.Role != domain.RoleAdmin {
		return nil, apierr.Forbidden("you are not a participant of this job")
	}
	return job, nil
}

// List returns the actor's jobs: a client sees what they requested, a
// technician what was requested of them.
func (s *JobService) List(actor Actor, status string, page, limit int) ([]models.Job, int64, error) {
	f := repository.JobFilter{Status: status}
	switch actor.Role {
	case domain.RoleClient:
		f.ClientID = actor.UserID
	case domain.RoleTechnician:
		tech, err := s.techs.GetByUserID(actor.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, apierr.Forbidden("no technician profile for this user")
			}
			return nil, 0, err
		}
		f.TechnicianID = tech.ID
	default:
		return nil, 0, apierr.Forbidden("unknown role %s", actor.Role)
	}
	page, limit = normalizePage(page, limit)
	return s.jobs.List(f, limit, (page-1)*limit)
}

// AdminList is unscoped listing with filters, for the admin panel.
func (s *JobService) AdminList(f repository.JobFilter, page, limit int) ([]models.Job, int64, error) {
	page, limit = normalizePage(page, limit)
	return s.jobs.List(f, limit, (page-1)*limit)
}

// AdminForceStatus bypasses transition legality. Both parties are
// notified of the new state.
func (s *JobService) AdminForceStatus(jobID uint, newStatus string) (*models.Job, error) {
	if !validJobStatus(newStatus) {
		return nil, apierr.Validation("unknown job status %q", newStatus)
	}
	job, err := s.load(jobID)
	if err != nil {
		return nil, err
	}
	var created []*models.Notification
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.jobs.ForceStatus(tx, job.ID, newStatus); err != nil {
			return err
		}
		for _, userID := range []uint{job.ClientID, job.Technician.UserID} {
			n, err := s.notifs.CreateTx(tx, userID, domain.NotifSystem,
				"Trabajo actualizado",
				fmt.Sprintf("Un administrador ha actualizado el trabajo \"%s\" a %s.", job.ServiceName, newStatus),
				map[string]interface{}{"job_id": job.ID, "new_status": newStatus})
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
	s.emitStatusEvent(job)
	return s.jobs.GetByID(job.ID)
}

// ----------------------------------------------------------------------
// internals

type notificationFn func(job *models.Job) (recipientUserID uint, title, body string)

// transition loads, authorizes and applies a table-driven transition.
func (s *JobService) transition(jobID uint, actor Actor, action string, extra map[string]interface{}, notif notificationFn) (*models.Job, error) {
	job, err := s.load(jobID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(job, actor, action); err != nil {
		return nil, err
	}
	return s.apply(job, actor, action, extra, notif)
}

// apply performs the CAS update, the in-transaction notification write,
// and the post-commit dispatch. The conditional update is what
// serializes concurrent transitions: if the job left the expected
// source state between load and commit, the caller gets a conflict.
func (s *JobService) apply(job *models.Job, actor Actor, action string, extra map[string]interface{}, notif notificationFn) (*models.Job, error) {
	rule := transitions[action]
	var created *models.Notification
	err := s.db.Transaction(func(tx *gorm.DB) error {
		ok, err := s.jobs.UpdateStatusIf(tx, job.ID, job.Status, rule.to, extra)
		if err != nil {
			return err
		}
		if !ok {
			return stateConflict(action, job.Status)
		}
		recipient, title, body := notif(job)
		n, err := s.notifs.CreateTx(tx, recipient, domain.NotifSystem, title, body,
			map[string]interface{}{"job_id": job.ID, "new_status": rule.to})
		if err != nil {
			return err
		}
		created = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterTransition(job, created)
	return s.jobs.GetByID(job.ID)
}

func (s *JobService) load(jobID uint) (*models.Job, error) {
	job, err := s.jobs.GetByID(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("job not found")
		}
		return nil, err
	}
	return job, nil
}

// authorize checks participation first (Forbidden beats Conflict), then
// the transition table.
func (s *JobService) authorize(job *models.Job, actor Actor, action string) error {
	if !s.isParticipant(job, actor) {
		return apierr.Forbidden("you are not a participant of this job")
	}
	rule := transitions[action]
	roleOK := false
	for _, r := range rule.roles {
		if r == actor.Role {
			roleOK = true
			break
		}
	}
	if !roleOK {
		return apierr.Forbidden("role %s cannot %s a job", actor.Role, action)
	}
	if !CanTransition(actor.Role, job.Status, action) {
		return stateConflict(action, job.Status)
	}
	return nil
}

func (s *JobService) isParticipant(job *models.Job, actor Actor) bool {
	switch actor.Role {
	case domain.RoleClient:
		return job.ClientID == actor.UserID
	case domain.RoleTechnician:
		return job.Technician.UserID == actor.UserID
	case domain.RoleAdmin:
		return true
	}
	return false
}

func (s *JobService) afterTransition(job *models.Job, n *models.Notification) {
	s.notifs.Dispatch(n)
	s.emitStatusEvent(job)
}

// emitStatusEvent tells both parties the job changed so open views can
// refresh. Fire and forget.
func (s *JobService) emitStatusEvent(job *models.Job) {
	fresh, err := s.jobs.GetByID(job.ID)
	if err != nil {
		return
	}
	s.notifier.Notify(job.ClientID, "job:status_updated", fresh)
	s.notifier.Notify(job.Technician.UserID, "job:status_updated", fresh)
}

func stateConflict(action, current string) error {
	return apierr.Conflict("cannot %s a job in state %s", action, current)
}

func priceOf(job *models.Job) float64 {
	if job.Price == nil {
		return 0
	}
	return *job.Price
}

func validJobStatus(s string) bool {
	switch s {
	case domain.JobPending, domain.JobNeedsVisit, domain.JobQuoted, domain.JobAccepted,
		domain.JobInProgress, domain.JobCompleted, domain.JobRejected, domain.JobCancelled,
		domain.JobDisputed:
		return true
	}
	return false
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	return page, limit
}
