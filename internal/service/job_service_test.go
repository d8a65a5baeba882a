package service

import (
	"testing"

	"github.com/michael24561/ConfiaPeBack/internal/apierr"
	"github.com/michael24561/ConfiaPeBack/internal/domain"
	"github.com/michael24561/ConfiaPeBack/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLifecycleHappyPath(t *testing.T) {
	db := setupTestDB(t)
	svc := newJobService(db, NopNotifier())

	client := seedClient(t, db, "cliente@test.pe")
	techUser, tech := seedTechnician(t, db, "tecnico@test.pe")
	clientActor := Actor{UserID: client.ID, Role: domain.RoleClient}
	techActor := Actor{UserID: techUser.ID, Role: domain.RoleTechnician}

	job, err := svc.Create(clientActor, CreateJobInput{
		TechnicianID: tech.ID,
		ServiceName:  "Instalación de ducha",
		Description:  "Ducha eléctrica en baño principal",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.JobPending, job.Status)
	assert.Nil(t, job.Price)

	job, err = svc.RequestVisit(job.ID, techActor)
	require.NoError(t, err)
	assert.Equal(t, domain.JobNeedsVisit, job.Status)

	job, err = svc.Quote(job.ID, techActor, 150.004)
	require.NoError(t, err)
	assert.Equal(t, domain.JobQuoted, job.Status)
	require.NotNil(t, job.Price)
	assert.Equal(t, 150.00, *job.Price)

	// Simulate the settlement path confirming the payment, then the
	// client accepting on return from checkout.
	require.NoError(t, db.Create(&models.Payment{
		JobID:             job.ID,
		ClientID:          client.ID,
		TechnicianID:      tech.ID,
		TotalAmount:       150,
		ExternalReference: "ref-lifecycle",
		ProviderStatus:    domain.PaymentApproved,
	}).Error)

	job, err = svc.AcceptQuote(job.ID, clientActor)
	require.NoError(t, err)
	assert.Equal(t, domain.JobAccepted, job.Status)

	job, err = svc.Start(job.ID, techActor)
	require.NoError(t, err)
	assert.Equal(t, domain.JobInProgress, job.Status)

	job, err = svc.Complete(job.ID, techActor)
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, job.Status)
	assert.NotNil(t, job.CompletedAt)

	var fresh models.Technician
	require.NoError(t, db.First(&fresh, tech.ID).Error)
	assert.Equal(t, 1, fresh.CompletedJobs)

	// Every transition left a notification for the counterpart.
	assert.Greater(t, countNotifications(t, db, client.ID), int64(0))
	assert.Greater(t, countNotifications(t, db, techUser.ID), int64(0))
}

func TestAcceptQuoteRequiresApprovedPayment(t *testing.T) {
	db := setupTestDB(t)
	svc := newJobService(db, NopNotifier())

	client := seedClient(t, db, "cliente@test.pe")
	_, tech := seedTechnician(t, db, "tecnico@test.pe")
	job := seedJob(t, db, client.ID, tech.ID, domain.JobQuoted, floatPtr(80))

	_, err := svc.AcceptQuote(job.ID, Actor{UserID: client.ID, Role: domain.RoleClient})
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindConflict))
}

func TestIllegalTransitionsConflict(t *testing.T) {
	db := setupTestDB(t)
	svc := newJobService(db, NopNotifier())

	client := seedClient(t, db, "cliente@test.pe")
	techUser, tech := seedTechnician(t, db, "tecnico@test.pe")
	techActor := Actor{UserID: techUser.ID, Role: domain.RoleTechnician}

	// Completing a PENDING job skips the whole middle of the lifecycle.
	job := seedJob(t, db, client.ID, tech.ID, domain.JobPending, nil)
	_, err := svc.Complete(job.ID, techActor)
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindConflict))

	// Terminal states are absorbing.
	for _, terminal := range domain.TerminalJobStates {
		j := seedJob(t, db, client.ID, tech.ID, terminal, nil)
		_, err := svc.Start(j.ID, techActor)
		require.Error(t, err, "start from %s", terminal)
		assert.True(t, apierr.IsKind(err, apierr.KindConflict), "start from %s", terminal)
	}
}

func TestQuoteValidation(t *testing.T) {
	db := setupTestDB(t)
	svc := newJobService(db, NopNotifier())

	client := seedClient(t, db, "cliente@test.pe")
	techUser, tech := seedTechnician(t, db, "tecnico@test.pe")
	techActor := Actor{UserID: techUser.ID, Role: domain.RoleTechnician}
	job := seedJob(t, db, client.ID, tech.ID, domain.JobPending, nil)

	_, err := svc.Quote(job.ID, techActor, 0)
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindValidation))

	_, err = svc.Quote(job.ID, techActor, -10)
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindValidation))

	// A price that rounds down to zero is still rejected.
	_, err = svc.Quote(job.ID, techActor, 0.004)
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindValidation))

	// Quoting twice fails on the source-state check.
	_, err = svc.Quote(job.ID, techActor, 100)
	require.NoError(t, err)
	_, err = svc.Quote(job.ID, techActor, 120)
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindConflict))
}

func TestRoleAuthorization(t *testing.T) {
	db := setupTestDB(t)
	svc := newJobService(db, NopNotifier())

	client := seedClient(t, db, "cliente@test.pe")
	stranger := seedClient(t, db, "otro@test.pe")
	_, tech := seedTechnician(t, db, "tecnico@test.pe")
	job := seedJob(t, db, client.ID, tech.ID, domain.JobPending, nil)

	// The client cannot quote their own job.
	_, err := svc.Quote(job.ID, Actor{UserID: client.ID, Role: domain.RoleClient}, 50)
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindForbidden))

	// A non-participant cannot act or view.
	_, err = svc.Quote(job.ID, Actor{UserID: stranger.ID, Role: domain.RoleClient}, 50)
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindForbidden))
	_, err = svc.GetByID(job.ID, Actor{UserID: stranger.ID, Role: domain.RoleClient})
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindForbidden))

	// Admins see everything.
	_, err = svc.GetByID(job.ID, Actor{UserID: 999, Role: domain.RoleAdmin})
	require.NoError(t, err)
}

func TestCreateRequiresAvailableTechnician(t *testing.T) {
	db := setupTestDB(t)
	svc := newJobService(db, NopNotifier())

	client := seedClient(t, db, "cliente@test.pe")
	_, tech := seedTechnician(t, db, "tecnico@test.pe")
	require.NoError(t, db.Model(&models.Technician{}).Where("id = ?", tech.ID).
		Update("available", false).Error)

	_, err := svc.Create(Actor{UserID: client.ID, Role: domain.RoleClient},
		CreateJobInput{TechnicianID: tech.ID, ServiceName: "Pintura"})
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindValidation))

	_, err = svc.Create(Actor{UserID: client.ID, Role: domain.RoleClient},
		CreateJobInput{TechnicianID: 9999, ServiceName: "Pintura"})
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindNotFound))
}

func TestDeleteOnlyPendingByOwner(t *testing.T) {
	db := setupTestDB(t)
	svc := newJobService(db, NopNotifier())

	client := seedClient(t, db, "cliente@test.pe")
	other := seedClient(t, db, "otro@test.pe")
	_, tech := seedTechnician(t, db, "tecnico@test.pe")

	pending := seedJob(t, db, client.ID, tech.ID, domain.JobPending, nil)
	err := svc.Delete(pending.ID, Actor{UserID: other.ID, Role: domain.RoleClient})
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindForbidden))

	require.NoError(t, svc.Delete(pending.ID, Actor{UserID: client.ID, Role: domain.RoleClient}))

	quoted := seedJob(t, db, client.ID, tech.ID, domain.JobQuoted, floatPtr(60))
	err = svc.Delete(quoted.ID, Actor{UserID: client.ID, Role: domain.RoleClient})
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindConflict))
}

func TestCancelNotifiesCounterpart(t *testing.T) {
	db := setupTestDB(t)
	capture := &captureNotifier{}
	svc := newJobService(db, capture)

	client := seedClient(t, db, "cliente@test.pe")
	techUser, tech := seedTechnician(t, db, "tecnico@test.pe")
	job := seedJob(t, db, client.ID, tech.ID, domain.JobInProgress, floatPtr(90))

	_, err := svc.Cancel(job.ID, Actor{UserID: techUser.ID, Role: domain.RoleTechnician})
	require.NoError(t, err)

	assert.Equal(t, int64(1), countNotifications(t, db, client.ID))
	assert.Equal(t, int64(0), countNotifications(t, db, techUser.ID))

	// Both parties still get the realtime status event.
	var statusEvents int
	for _, ev := range capture.events {
		if ev.Event == "job:status_updated" {
			statusEvents++
		}
	}
	assert.Equal(t, 2, statusEvents)
}

func TestListScopedByRole(t *testing.T) {
	db := setupTestDB(t)
	svc := newJobService(db, NopNotifier())

	clientA := seedClient(t, db, "a@test.pe")
	clientB := seedClient(t, db, "b@test.pe")
	techUser, tech := seedTechnician(t, db, "tecnico@test.pe")

	seedJob(t, db, clientA.ID, tech.ID, domain.JobPending, nil)
	seedJob(t, db, clientA.ID, tech.ID, domain.JobCompleted, floatPtr(40))
	seedJob(t, db, clientB.ID, tech.ID, domain.JobPending, nil)

	jobs, total, err := svc.List(Actor{UserID: clientA.ID, Role: domain.RoleClient}, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, jobs, 2)

	jobs, total, err = svc.List(Actor{UserID: clientA.ID, Role: domain.RoleClient}, domain.JobPending, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, jobs, 1)

	_, total, err = svc.List(Actor{UserID: techUser.ID, Role: domain.RoleTechnician}, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestAdminForceStatus(t *testing.T) {
	db := setupTestDB(t)
	svc := newJobService(db, NopNotifier())

	client := seedClient(t, db, "cliente@test.pe")
	techUser, tech := seedTechnician(t, db, "tecnico@test.pe")
	job := seedJob(t, db, client.ID, tech.ID, domain.JobDisputed, floatPtr(100))

	_, err := svc.AdminForceStatus(job.ID, "NOT_A_STATUS")
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindValidation))

	updated, err := svc.AdminForceStatus(job.ID, domain.JobCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.JobCancelled, updated.Status)

	assert.Equal(t, int64(1), countNotifications(t, db, client.ID))
	assert.Equal(t, int64(1), countNotifications(t, db, techUser.ID))
}

func TestCanTransitionTable(t *testing.T) {
	assert.True(t, CanTransition(domain.RoleTechnician, domain.JobPending, ActionQuote))
	assert.True(t, CanTransition(domain.RoleTechnician, domain.JobNeedsVisit, ActionQuote))
	assert.True(t, CanTransition(domain.RoleClient, domain.JobQuoted, ActionAcceptQuote))
	assert.True(t, CanTransition(domain.RoleClient, domain.JobInProgress, ActionCancel))

	assert.False(t, CanTransition(domain.RoleClient, domain.JobPending, ActionQuote))
	assert.False(t, CanTransition(domain.RoleTechnician, domain.JobQuoted, ActionAcceptQuote))
	assert.False(t, CanTransition(domain.RoleTechnician, domain.JobCompleted, ActionStart))
	assert.False(t, CanTransition(domain.RoleClient, domain.JobQuoted, "unknown_action"))
}
