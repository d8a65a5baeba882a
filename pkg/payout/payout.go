// Package payout abstracts the provider transfer API that pays
// technicians their share of a settled job.
package payout

import (
	"context"
	"errors"
	"time"
)

var ErrTransferFailed = errors.New("payout transfer failed")

// TransferRequest moves money to a technician's payout destination.
type TransferRequest struct {
	Amount      float64
	Currency    string
	Destination string // provider account id on file for the technician
	Reference   string // unique per job, for provider-side idempotency
	Metadata    map[string]string
}

type TransferResult struct {
	TransferRef string
	Status      string
	CreatedAt   time.Time
}

// Provider is the transfer API. Implementations must honor the context
// deadline; callers treat any error as retryable only if no local state
// was mutated yet.
type Provider interface {
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
}
