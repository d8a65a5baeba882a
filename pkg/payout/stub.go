package payout

import (
	"context"
	"fmt"
	"time"
)

// StubProvider acknowledges every transfer without moving money; used
// in development when no payout rail is configured.
type StubProvider struct{}

func (StubProvider) Transfer(_ context.Context, req TransferRequest) (*TransferResult, error) {
	return &TransferResult{
		TransferRef: fmt.Sprintf("stub_%s_%d", req.Reference, time.Now().UnixNano()),
		Status:      "completed",
		CreatedAt:   time.Now(),
	}, nil
}
