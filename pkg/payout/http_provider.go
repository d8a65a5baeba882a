package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// HTTPProvider calls a REST transfer API (marketplace payout rail).
type HTTPProvider struct {
	BaseURL string
	APIKey  string
	client  *http.Client
}

func NewHTTPProvider(baseURL, apiKey string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type transferPayload struct {
	Amount      float64           `json:"amount"`
	Currency    string            `json:"currency"`
	Destination string            `json:"destination"`
	Reference   string            `json:"reference"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type transferResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func (p *HTTPProvider) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	body, err := json.Marshal(transferPayload{
		Amount:      req.Amount,
		Currency:    req.Currency,
		Destination: req.Destination,
		Reference:   req.Reference,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/v1/transfers", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.APIKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("transfer request: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("[payout] transfer failed status=%d body=%s", resp.StatusCode, string(raw))
		return nil, fmt.Errorf("%w: status %d", ErrTransferFailed, resp.StatusCode)
	}
	var tr transferResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return nil, fmt.Errorf("transfer response: %w", err)
	}
	created, _ := time.Parse(time.RFC3339, tr.CreatedAt)
	return &TransferResult{TransferRef: tr.ID, Status: tr.Status, CreatedAt: created}, nil
}
