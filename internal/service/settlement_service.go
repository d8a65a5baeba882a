package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/michael24561/ConfiaPeBack/internal/apierr"
	"github.com/michael24561/ConfiaPeBack/internal/domain"
	"github.com/michael24561/ConfiaPeBack/internal/models"
	"github.com/michael24561/ConfiaPeBack/internal/repository"
	"github.com/michael24561/ConfiaPeBack/pkg/mercadopago"
	"github.com/michael24561/ConfiaPeBack/pkg/payout"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentGateway is the provider surface the settlement flow consumes.
// *mercadopago.Client satisfies it; tests substitute fakes.
type PaymentGateway interface {
	CreatePreference(ctx context.Context, req mercadopago.PreferenceRequest) (*mercadopago.Preference, error)
	GetPayment(ctx context.Context, providerPaymentID string) (*mercadopago.PaymentInfo, error)
}

// FeePolicy splits a job total into the platform's cut and the
// technician's share. Pluggable: the deployment picks one.
type FeePolicy interface {
	Split(total float64) (platformFee, technicianAmount float64)
}

// PercentFeePolicy keeps a percentage of the total for the platform.
// Percent=100 expresses the platform-collects-all mode with manual
// payouts.
type PercentFeePolicy struct {
	Percent float64
}

func (p PercentFeePolicy) Split(total float64) (float64, float64) {
	fee := math.Round(total*p.Percent) / 100
	return fee, math.Round((total-fee)*100) / 100
}

// WebhookEvent is the parsed body of a provider webhook delivery.
type WebhookEvent struct {
	Type   string
	DataID string
}

// CheckoutSession is what the client needs to finish paying.
type CheckoutSession struct {
	PreferenceID string `json:"preference_id"`
	RedirectURL  string `json:"redirect_url"`
}

type PayoutResult struct {
	TransferRef string  `json:"transfer_ref"`
	Amount      float64 `json:"amount"`
}

// SettlementService owns the Payment aggregate: intent creation,
// asynchronous webhook reconciliation, and the technician payout.
type SettlementService struct {
	db       *gorm.DB
	jobs     *repository.JobRepository
	payments *repository.PaymentRepository
	techs    *repository.TechnicianRepository
	notifs   *NotificationService
	gateway  PaymentGateway
	payouts  payout.Provider
	policy   FeePolicy

	frontendURL     string
	notificationURL string
}

func NewSettlementService(
	db *gorm.DB,
	jobs *repository.JobRepository,
	payments *repository.PaymentRepository,
	techs *repository.TechnicianRepository,
	notifs *NotificationService,
	gateway PaymentGateway,
	payouts payout.Provider,
	policy FeePolicy,
	frontendURL, notificationURL string,
) *SettlementService {
	if policy == nil {
		policy = PercentFeePolicy{Percent: 10}
	}
	return &SettlementService{
		db:              db,
		jobs:            jobs,
		payments:        payments,
		techs:           techs,
		notifs:          notifs,
		gateway:         gateway,
		payouts:         payouts,
		policy:          policy,
		frontendURL:     frontendURL,
		notificationURL: notificationURL,
	}
}

// CreateCheckout creates (or refreshes) the job's payment intent and
// returns the provider redirect. Idempotent per job: the payment row is
// upserted, never duplicated. Local state is only written before the
// provider call (amounts) and after it succeeds (preference id), so a
// provider failure leaves a retryable PENDING payment behind.
func (s *SettlementService) CreateCheckout(ctx context.Context, clientUserID, jobID uint) (*CheckoutSession, error) {
	if s.gateway == nil {
		return nil, apierr.Unavailable("payment provider is not configured")
	}
	job, err := s.jobs.GetByIDWithPayment(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("job not found")
		}
		return nil, err
	}
	if job.ClientID != clientUserID {
		return nil, apierr.Forbidden("you cannot pay for this job")
	}
	if job.Status != domain.JobQuoted {
		return nil, apierr.Conflict("job is in state %s, only %s jobs can be paid", job.Status, domain.JobQuoted)
	}
	if job.Price == nil {
		return nil, apierr.Conflict("job has no quoted price")
	}
	if job.Payment != nil && job.Payment.ProviderStatus == domain.PaymentApproved {
		return nil, apierr.Conflict("this job has already been paid")
	}

	total := *job.Price
	fee, techAmount := s.policy.Split(total)

	pay := job.Payment
	if pay == nil {
		pay = &models.Payment{
			JobID:             job.ID,
			ClientID:          job.ClientID,
			TechnicianID:      job.TechnicianID,
			TotalAmount:       total,
			PlatformFee:       fee,
			TechnicianAmount:  techAmount,
			Currency:          "PEN",
			ExternalReference: uuid.NewString(),
			ProviderStatus:    domain.PaymentPending,
		}
		if err := s.payments.Create(pay); err != nil {
			return nil, err
		}
	} else {
		pay.TotalAmount = total
		pay.PlatformFee = fee
		pay.TechnicianAmount = techAmount
		if err := s.payments.Update(pay); err != nil {
			return nil, err
		}
	}

	pref, err := s.gateway.CreatePreference(ctx, mercadopago.PreferenceRequest{
		ItemID:            fmt.Sprintf("job-%d", job.ID),
		Title:             job.ServiceName,
		Description:       truncate(job.Description, 100),
		UnitPrice:         total,
		CurrencyID:        pay.Currency,
		PayerName:         job.Client.Name,
		PayerEmail:        job.Client.Email,
		ExternalReference: pay.ExternalReference,
		SuccessURL:        fmt.Sprintf("%s/cliente/trabajos/%d?pago=exitoso", s.frontendURL, job.ID),
		PendingURL:        fmt.Sprintf("%s/cliente/trabajos/%d?pago=pendiente", s.frontendURL, job.ID),
		FailureURL:        fmt.Sprintf("%s/cliente/trabajos/%d?pago=cancelado", s.frontendURL, job.ID),
		NotificationURL:   s.notificationURL,
	})
	if err != nil {
		return nil, apierr.Unavailable("payment provider is unavailable").Wrap(err)
	}

	pay.PreferenceID = pref.ID
	if err := s.payments.Update(pay); err != nil {
		return nil, err
	}
	return &CheckoutSession{PreferenceID: pref.ID, RedirectURL: pref.InitPoint}, nil
}

// HandleWebhook reconciles one provider delivery. It is safe under
// provider retries: a payment already APPROVED is a logged no-op, and
// the job edge QUOTED->ACCEPTED is guarded by the conditional update.
// Errors that indicate reconciliation gaps are logged, not returned, so
// the HTTP layer can always acknowledge.
func (s *SettlementService) HandleWebhook(ctx context.Context, ev WebhookEvent) error {
	if ev.Type != "payment" {
		log.Printf("[webhook] ignoring event type %q", ev.Type)
		return nil
	}
	if s.gateway == nil {
		return apierr.Unavailable("payment provider is not configured")
	}
	info, err := s.gateway.GetPayment(ctx, ev.DataID)
	if err != nil {
		return apierr.Unavailable("could not fetch payment %s from provider", ev.DataID).Wrap(err)
	}
	if info.ExternalReference == "" {
		log.Printf("[webhook] CRITICAL: provider payment %s has no external reference", info.ID)
		return nil
	}
	pay, err := s.payments.GetByExternalReference(info.ExternalReference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Reconciliation gap: the provider knows a payment we don't.
			log.Printf("[webhook] CRITICAL: no local payment for external reference %s (provider payment %s)", info.ExternalReference, info.ID)
			return nil
		}
		return err
	}
	if pay.ProviderStatus == domain.PaymentApproved {
		log.Printf("[webhook] payment %d already approved, ignoring retry", pay.ID)
		return nil
	}

	newStatus := mapProviderStatus(info.Status)
	log.Printf("[webhook] payment %d provider status %q -> %s", pay.ID, info.Status, newStatus)

	var created *models.Notification
	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"provider_payment_ref":   info.ID,
			"provider_status":        newStatus,
			"provider_status_detail": info.StatusDetail,
			"payment_method":         info.PaymentMethodID,
		}
		if info.Installments > 0 {
			updates["installments"] = info.Installments
		}
		if newStatus == domain.PaymentApproved {
			updates["paid_at"] = time.Now()
		}
		if err := tx.Model(&models.Payment{}).Where("id = ?", pay.ID).Updates(updates).Error; err != nil {
			return err
		}
		if newStatus != domain.PaymentApproved {
			return nil
		}
		ok, err := s.jobs.UpdateStatusIf(tx, pay.JobID, domain.JobQuoted, domain.JobAccepted, nil)
		if err != nil {
			return err
		}
		if !ok {
			// Already accepted via the synchronous path, or moved on.
			log.Printf("[webhook] job %d not in %s, payment recorded without transition", pay.JobID, domain.JobQuoted)
		}
		tech, err := s.techs.GetByID(pay.TechnicianID)
		if err != nil {
			return err
		}
		n, err := s.notifs.CreateTx(tx, tech.UserID, domain.NotifPayment,
			"¡Cotización aceptada y pagada!",
			fmt.Sprintf("El cliente ha pagado tu cotización de S/ %.2f.", pay.TotalAmount),
			map[string]interface{}{"job_id": pay.JobID, "payment_id": pay.ID})
		if err != nil {
			return err
		}
		created = n
		return nil
	})
	if err != nil {
		return err
	}
	s.notifs.Dispatch(created)
	return nil
}

// CreatePayout transfers the technician's share for a completed, paid
// job. payout_done flips exactly once: a repeat call conflicts either
// on the precondition or on the conditional update.
func (s *SettlementService) CreatePayout(ctx context.Context, jobID uint) (*PayoutResult, error) {
	job, err := s.jobs.GetByIDWithPayment(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("job not found")
		}
		return nil, err
	}
	if job.Status != domain.JobCompleted {
		return nil, apierr.Conflict("job is in state %s, payouts require %s", job.Status, domain.JobCompleted)
	}
	pay := job.Payment
	if pay == nil {
		return nil, apierr.Conflict("job has no payment record")
	}
	if pay.ProviderStatus != domain.PaymentApproved {
		return nil, apierr.Conflict("payment is %s, payouts require %s", pay.ProviderStatus, domain.PaymentApproved)
	}
	if pay.PayoutDone {
		return nil, apierr.Conflict("payout for this job has already been made")
	}
	tech := &job.Technician
	if !tech.PayoutReady || tech.PayoutAccountID == "" {
		// Configuration gap, not a transient fault: do not retry.
		return nil, apierr.Validation("technician has no payout destination configured")
	}
	amount := pay.TechnicianAmount
	if amount <= 0 {
		return nil, apierr.Validation("technician amount must be greater than zero")
	}

	result, err := s.payouts.Transfer(ctx, payout.TransferRequest{
		Amount:      amount,
		Currency:    pay.Currency,
		Destination: tech.PayoutAccountID,
		Reference:   fmt.Sprintf("payout-job-%d", job.ID),
		Metadata: map[string]string{
			"job_id":        fmt.Sprintf("%d", job.ID),
			"technician_id": fmt.Sprintf("%d", tech.ID),
		},
	})
	if err != nil {
		return nil, apierr.Unavailable("payout provider transfer failed").Wrap(err)
	}

	ok, err := s.payments.MarkPayoutDone(pay.ID, result.TransferRef)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierr.Conflict("payout for this job has already been made")
	}

	_ = s.notifs.Notify(tech.UserID, domain.NotifPayment,
		"¡Pago de trabajo recibido!",
		fmt.Sprintf("Has recibido un pago de S/ %.2f por el trabajo \"%s\".", amount, job.ServiceName),
		map[string]interface{}{"job_id": job.ID, "transfer_ref": result.TransferRef})

	return &PayoutResult{TransferRef: result.TransferRef, Amount: amount}, nil
}

// GetByJob returns the payment for a job, visible to its participants
// and admins.
func (s *SettlementService) GetByJob(jobID uint, actor Actor) (*models.Payment, error) {
	pay, err := s.payments.GetByJobID(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("payment not found")
		}
		return nil, err
	}
	switch actor.Role {
	case domain.RoleAdmin:
	case domain.RoleClient:
		if pay.ClientID != actor.UserID {
			return nil, apierr.Forbidden("you cannot view this payment")
		}
	case domain.RoleTechnician:
		tech, err := s.techs.GetByUserID(actor.UserID)
		if err != nil || tech.ID != pay.TechnicianID {
			return nil, apierr.Forbidden("you cannot view this payment")
		}
	default:
		return nil, apierr.Forbidden("you cannot view this payment")
	}
	return pay, nil
}

// mapProviderStatus folds Mercado Pago statuses into ours. APPROVED
// never regresses; callers short-circuit before mapping.
func mapProviderStatus(providerStatus string) string {
	switch providerStatus {
	case "approved", "authorized":
		return domain.PaymentApproved
	case "in_process", "in_mediation":
		return domain.PaymentInProcess
	case "rejected":
		return domain.PaymentRejected
	case "cancelled":
		return domain.PaymentCancelled
	case "refunded", "charged_back":
		return domain.PaymentRefunded
	default:
		return domain.PaymentPending
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
