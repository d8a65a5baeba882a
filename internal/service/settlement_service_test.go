package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/michael24561/ConfiaPeBack/internal/apierr"
	"github.com/michael24561/ConfiaPeBack/internal/domain"
	"github.com/michael24561/ConfiaPeBack/internal/models"
	"github.com/michael24561/ConfiaPeBack/internal/repository"
	"github.com/michael24561/ConfiaPeBack/pkg/mercadopago"
	"github.com/michael24561/ConfiaPeBack/pkg/payout"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeGateway struct {
	payments    map[string]*mercadopago.PaymentInfo
	prefErr     error
	preferences int
}

func (f *fakeGateway) CreatePreference(_ context.Context, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error) {
	if f.prefErr != nil {
		return nil, f.prefErr
	}
	f.preferences++
	return &mercadopago.Preference{
		ID:        fmt.Sprintf("pref-%d", f.preferences),
		InitPoint: "https://mp.test/checkout/" + req.ExternalReference,
	}, nil
}

func (f *fakeGateway) GetPayment(_ context.Context, id string) (*mercadopago.PaymentInfo, error) {
	info, ok := f.payments[id]
	if !ok {
		return nil, errors.New("payment not found at provider")
	}
	return info, nil
}

type countingPayouts struct {
	transfers int
	err       error
}

func (p *countingPayouts) Transfer(_ context.Context, req payout.TransferRequest) (*payout.TransferResult, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.transfers++
	return &payout.TransferResult{TransferRef: "tr-" + req.Reference, Status: "completed"}, nil
}

func newSettlement(db *gorm.DB, gw PaymentGateway, po payout.Provider) *SettlementService {
	jobs := repository.NewJobRepository(db)
	payments := repository.NewPaymentRepository(db)
	techs := repository.NewTechnicianRepository(db)
	notifs := NewNotificationService(repository.NewNotificationRepository(db), NopNotifier())
	return NewSettlementService(db, jobs, payments, techs, notifs, gw, po,
		PercentFeePolicy{Percent: 10}, "https://app.test", "https://api.test")
}

func TestPercentFeePolicySplit(t *testing.T) {
	cases := []struct {
		total, fee, tech float64
	}{
		{150, 15, 135},
		{99.99, 10, 89.99},
		{0.10, 0.01, 0.09},
		{1000, 100, 900},
	}
	policy := PercentFeePolicy{Percent: 10}
	for _, c := range cases {
		fee, tech := policy.Split(c.total)
		assert.InDelta(t, c.fee, fee, 0.001, "fee for %v", c.total)
		assert.InDelta(t, c.tech, tech, 0.001, "tech share for %v", c.total)
	}

	fee, tech := PercentFeePolicy{Percent: 100}.Split(80)
	assert.Equal(t, 80.0, fee)
	assert.Equal(t, 0.0, tech)
}

func TestCreateCheckout(t *testing.T) {
	db := setupTestDB(t)
	gw := &fakeGateway{payments: map[string]*mercadopago.PaymentInfo{}}
	svc := newSettlement(db, gw, payout.StubProvider{})

	client := seedClient(t, db, "cliente@test.pe")
	_, tech := seedTechnician(t, db, "tecnico@test.pe")
	job := seedJob(t, db, client.ID, tech.ID, domain.JobQuoted, floatPtr(150))

	session, err := svc.CreateCheckout(context.Background(), client.ID, job.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, session.PreferenceID)
	assert.NotEmpty(t, session.RedirectURL)

	var pay models.Payment
	require.NoError(t, db.Where("job_id = ?", job.ID).First(&pay).Error)
	assert.Equal(t, 150.0, pay.TotalAmount)
	assert.Equal(t, 15.0, pay.PlatformFee)
	assert.Equal(t, 135.0, pay.TechnicianAmount)
	assert.Equal(t, domain.PaymentPending, pay.ProviderStatus)
	assert.NotEmpty(t, pay.ExternalReference)

	// A retry reuses the payment row instead of duplicating it.
	_, err = svc.CreateCheckout(context.Background(), client.ID, job.ID)
	require.NoError(t, err)
	var count int64
	require.NoError(t, db.Model(&models.Payment{}).Where("job_id = ?", job.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateCheckoutPreconditions(t *testing.T) {
	db := setupTestDB(t)
	gw := &fakeGateway{payments: map[string]*mercadopago.PaymentInfo{}}
	svc := newSettlement(db, gw, payout.StubProvider{})

	client := seedClient(t, db, "cliente@test.pe")
	other := seedClient(t, db, "otro@test.pe")
	_, tech := seedTechnician(t, db, "tecnico@test.pe")

	pending := seedJob(t, db, client.ID, tech.ID, domain.JobPending, nil)
	_, err := svc.CreateCheckout(context.Background(), client.ID, pending.ID)
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindConflict))

	quoted := seedJob(t, db, client.ID, tech.ID, domain.JobQuoted, floatPtr(90))
	_, err = svc.CreateCheckout(context.Background(), other.ID, quoted.ID)
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindForbidden))

	_, err = svc.CreateCheckout(context.Background(), client.ID, 9999)
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindNotFound))
}

func TestCreateCheckoutProviderDownLeavesRetryablePayment(t *testing.T) {
	db := setupTestDB(t)
	gw := &fakeGateway{prefErr: errors.New("503 from provider")}
	svc := newSettlement(db, gw, payout.StubProvider{})

	client := seedClient(t, db, "cliente@test.pe")
	_, tech := seedTechnician(t, db, "tecnico@test.pe")
	job := seedJob(t, db, client.ID, tech.ID, domain.JobQuoted, floatPtr(60))

	_, err := svc.CreateCheckout(context.Background(), client.ID, job.ID)
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindUnavailable))

	// The PENDING payment row survives for the retry.
	var pay models.Payment
	require.NoError(t, db.Where("job_id = ?", job.ID).First(&pay).Error)
	assert.Equal(t, domain.PaymentPending, pay.ProviderStatus)

	gw.prefErr = nil
	_, err = svc.CreateCheckout(context.Background(), client.ID, job.ID)
	require.NoError(t, err)
}

func seedPaidSetup(t *testing.T, db *gorm.DB) (*models.User, *models.User, *models.Technician, *models.Job, *models.Payment) {
	t.Helper()
	client := seedClient(t, db, "cliente@test.pe")
	techUser, tech := seedTechnician(t, db, "tecnico@test.pe")
	job := seedJob(t, db, client.ID, tech.ID, domain.JobQuoted, floatPtr(150))
	pay := &models.Payment{
		JobID:             job.ID,
		ClientID:          client.ID,
		TechnicianID:      tech.ID,
		TotalAmount:       150,
		PlatformFee:       15,
		TechnicianAmount:  135,
		Currency:          "PEN",
		ExternalReference: "ext-ref-1",
		ProviderStatus:    domain.PaymentPending,
	}
	require.NoError(t, db.Create(pay).Error)
	return client, techUser, tech, job, pay
}

func TestHandleWebhookApprovesAndTransitions(t *testing.T) {
	db := setupTestDB(t)
	gw := &fakeGateway{payments: map[string]*mercadopago.PaymentInfo{
		"777": {
			ID:                "777",
			Status:            "approved",
			StatusDetail:      "accredited",
			ExternalReference: "ext-ref-1",
			PaymentMethodID:   "visa",
			Installments:      1,
		},
	}}
	svc := newSettlement(db, gw, payout.StubProvider{})
	_, techUser, _, job, pay := seedPaidSetup(t, db)

	ev := WebhookEvent{Type: "payment", DataID: "777"}
	require.NoError(t, svc.HandleWebhook(context.Background(), ev))

	var freshPay models.Payment
	require.NoError(t, db.First(&freshPay, pay.ID).Error)
	assert.Equal(t, domain.PaymentApproved, freshPay.ProviderStatus)
	assert.NotNil(t, freshPay.PaidAt)
	require.NotNil(t, freshPay.ProviderPaymentRef)
	assert.Equal(t, "777", *freshPay.ProviderPaymentRef)

	var freshJob models.Job
	require.NoError(t, db.First(&freshJob, job.ID).Error)
	assert.Equal(t, domain.JobAccepted, freshJob.Status)

	// Delivered again: a logged no-op, no second notification.
	require.NoError(t, svc.HandleWebhook(context.Background(), ev))
	assert.Equal(t, int64(1), countNotifications(t, db, techUser.ID))
}

func TestHandleWebhookNonPaymentAndUnknownReference(t *testing.T) {
	db := setupTestDB(t)
	gw := &fakeGateway{payments: map[string]*mercadopago.PaymentInfo{
		"888": {ID: "888", Status: "approved", ExternalReference: "no-such-ref"},
		"889": {ID: "889", Status: "approved"},
	}}
	svc := newSettlement(db, gw, payout.StubProvider{})
	seedPaidSetup(t, db)

	// Non-payment events are acknowledged untouched.
	require.NoError(t, svc.HandleWebhook(context.Background(), WebhookEvent{Type: "merchant_order", DataID: "x"}))

	// Unknown external reference is a reconciliation gap, logged, not an error.
	require.NoError(t, svc.HandleWebhook(context.Background(), WebhookEvent{Type: "payment", DataID: "888"}))

	// Missing external reference likewise.
	require.NoError(t, svc.HandleWebhook(context.Background(), WebhookEvent{Type: "payment", DataID: "889"}))

	// Provider unreachable is an error: the delivery must be retried.
	err := svc.HandleWebhook(context.Background(), WebhookEvent{Type: "payment", DataID: "000"})
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindUnavailable))
}

func TestHandleWebhookRejectedDoesNotTransition(t *testing.T) {
	db := setupTestDB(t)
	gw := &fakeGateway{payments: map[string]*mercadopago.PaymentInfo{
		"555": {ID: "555", Status: "rejected", StatusDetail: "cc_rejected_other_reason", ExternalReference: "ext-ref-1"},
	}}
	svc := newSettlement(db, gw, payout.StubProvider{})
	_, _, _, job, pay := seedPaidSetup(t, db)

	require.NoError(t, svc.HandleWebhook(context.Background(), WebhookEvent{Type: "payment", DataID: "555"}))

	var freshPay models.Payment
	require.NoError(t, db.First(&freshPay, pay.ID).Error)
	assert.Equal(t, domain.PaymentRejected, freshPay.ProviderStatus)
	assert.Nil(t, freshPay.PaidAt)

	var freshJob models.Job
	require.NoError(t, db.First(&freshJob, job.ID).Error)
	assert.Equal(t, domain.JobQuoted, freshJob.Status)
}

func TestMapProviderStatus(t *testing.T) {
	cases := map[string]string{
		"approved":     domain.PaymentApproved,
		"authorized":   domain.PaymentApproved,
		"in_process":   domain.PaymentInProcess,
		"in_mediation": domain.PaymentInProcess,
		"rejected":     domain.PaymentRejected,
		"cancelled":    domain.PaymentCancelled,
		"refunded":     domain.PaymentRefunded,
		"charged_back": domain.PaymentRefunded,
		"pending":      domain.PaymentPending,
		"something":    domain.PaymentPending,
	}
	for provider, want := range cases {
		assert.Equal(t, want, mapProviderStatus(provider), provider)
	}
}

func preparePayableJob(t *testing.T, db *gorm.DB) (*models.Job, *models.Payment, *models.Technician) {
	t.Helper()
	_, _, tech, job, pay := seedPaidSetup(t, db)
	require.NoError(t, db.Model(&models.Job{}).Where("id = ?", job.ID).
		Update("status", domain.JobCompleted).Error)
	require.NoError(t, db.Model(&models.Payment{}).Where("id = ?", pay.ID).
		Update("provider_status", domain.PaymentApproved).Error)
	require.NoError(t, db.Model(&models.Technician{}).Where("id = ?", tech.ID).
		Updates(map[string]interface{}{"payout_account_id": "acct_123", "payout_ready": true}).Error)
	return job, pay, tech
}

func TestCreatePayoutExactlyOnce(t *testing.T) {
	db := setupTestDB(t)
	po := &countingPayouts{}
	svc := newSettlement(db, &fakeGateway{}, po)
	job, pay, _ := preparePayableJob(t, db)

	result, err := svc.CreatePayout(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, 135.0, result.Amount)
	assert.NotEmpty(t, result.TransferRef)
	assert.Equal(t, 1, po.transfers)

	var fresh models.Payment
	require.NoError(t, db.First(&fresh, pay.ID).Error)
	assert.True(t, fresh.PayoutDone)
	assert.Equal(t, result.TransferRef, fresh.PayoutRef)
	assert.NotNil(t, fresh.PayoutAt)

	// The second attempt conflicts instead of paying twice.
	_, err = svc.CreatePayout(context.Background(), job.ID)
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindConflict))
	assert.Equal(t, 1, po.transfers)
}

func TestCreatePayoutPreconditions(t *testing.T) {
	db := setupTestDB(t)
	po := &countingPayouts{}
	svc := newSettlement(db, &fakeGateway{}, po)
	job, pay, tech := preparePayableJob(t, db)

	// Missing payout destination is a configuration problem, not retryable.
	require.NoError(t, db.Model(&models.Technician{}).Where("id = ?", tech.ID).
		Updates(map[string]interface{}{"payout_account_id": "", "payout_ready": false}).Error)
	_, err := svc.CreatePayout(context.Background(), job.ID)
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindValidation))

	require.NoError(t, db.Model(&models.Technician{}).Where("id = ?", tech.ID).
		Updates(map[string]interface{}{"payout_account_id": "acct_123", "payout_ready": true}).Error)

	// Payment not approved.
	require.NoError(t, db.Model(&models.Payment{}).Where("id = ?", pay.ID).
		Update("provider_status", domain.PaymentInProcess).Error)
	_, err = svc.CreatePayout(context.Background(), job.ID)
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindConflict))

	// Job not completed.
	require.NoError(t, db.Model(&models.Payment{}).Where("id = ?", pay.ID).
		Update("provider_status", domain.PaymentApproved).Error)
	require.NoError(t, db.Model(&models.Job{}).Where("id = ?", job.ID).
		Update("status", domain.JobInProgress).Error)
	_, err = svc.CreatePayout(context.Background(), job.ID)
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindConflict))

	assert.Equal(t, 0, po.transfers)
}

func TestCreatePayoutProviderFailure(t *testing.T) {
	db := setupTestDB(t)
	po := &countingPayouts{err: payout.ErrTransferFailed}
	svc := newSettlement(db, &fakeGateway{}, po)
	job, pay, _ := preparePayableJob(t, db)

	_, err := svc.CreatePayout(context.Background(), job.ID)
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindUnavailable))

	// Nothing was marked done; the operator can retry.
	var fresh models.Payment
	require.NoError(t, db.First(&fresh, pay.ID).Error)
	assert.False(t, fresh.PayoutDone)

	po.err = nil
	_, err = svc.CreatePayout(context.Background(), job.ID)
	require.NoError(t, err)
}

func TestGetByJobVisibility(t *testing.T) {
	db := setupTestDB(t)
	svc := newSettlement(db, &fakeGateway{}, payout.StubProvider{})
	client, techUser, _, job, _ := seedPaidSetup(t, db)
	stranger := seedClient(t, db, "extraño@test.pe")

	_, err := svc.GetByJob(job.ID, Actor{UserID: client.ID, Role: domain.RoleClient})
	require.NoError(t, err)
	_, err = svc.GetByJob(job.ID, Actor{UserID: techUser.ID, Role: domain.RoleTechnician})
	require.NoError(t, err)
	_, err = svc.GetByJob(job.ID, Actor{UserID: 42, Role: domain.RoleAdmin})
	require.NoError(t, err)

	_, err = svc.GetByJob(job.ID, Actor{UserID: stranger.ID, Role: domain.RoleClient})
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindForbidden))
}
