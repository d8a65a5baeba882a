// Package mercadopago wraps the Mercado Pago SDK behind the small
// surface the settlement flow needs: checkout preference creation,
// payment detail lookup and webhook signature verification.
package mercadopago

import (
	"context"
	"errors"
	"log"
	"strconv"

	"github.com/mercadopago/sdk-go/pkg/config"
	mppayment "github.com/mercadopago/sdk-go/pkg/payment"
	"github.com/mercadopago/sdk-go/pkg/preference"
)

var ErrMissingAccessToken = errors.New("missing mercado pago access token")

// PreferenceRequest describes one checkout session for a job.
type PreferenceRequest struct {
	ItemID            string
	Title             string
	Description       string
	UnitPrice         float64
	CurrencyID        string
	PayerName         string
	PayerEmail        string
	ExternalReference string
	SuccessURL        string
	PendingURL        string
	FailureURL        string
	NotificationURL   string
}

// Preference is the created checkout session; InitPoint is the redirect
// target for the payer.
type Preference struct {
	ID        string
	InitPoint string
}

// PaymentInfo is the provider's view of a payment, fetched during
// webhook reconciliation.
type PaymentInfo struct {
	ID                string
	Status            string
	StatusDetail      string
	ExternalReference string
	PaymentMethodID   string
	Installments      int
}

type Client struct {
	prefs    preference.Client
	payments mppayment.Client
}

func NewClient(accessToken string) (*Client, error) {
	if accessToken == "" {
		return nil, ErrMissingAccessToken
	}
	cfg, err := config.New(accessToken)
	if err != nil {
		return nil, err
	}
	log.Printf("[mercadopago] client initialized")
	return &Client{
		prefs:    preference.NewClient(cfg),
		payments: mppayment.NewClient(cfg),
	}, nil
}

func (c *Client) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	currency := req.CurrencyID
	if currency == "" {
		currency = "PEN"
	}
	resp, err := c.prefs.Create(ctx, preference.Request{
		Items: []preference.ItemRequest{
			{
				ID:          req.ItemID,
				Title:       req.Title,
				Description: req.Description,
				Quantity:    1,
				CurrencyID:  currency,
				UnitPrice:   req.UnitPrice,
			},
		},
		Payer: &preference.PayerRequest{
			Name:  req.PayerName,
			Email: req.PayerEmail,
		},
		ExternalReference: req.ExternalReference,
		NotificationURL:   req.NotificationURL,
		BackURLs: &preference.BackURLsRequest{
			Success: req.SuccessURL,
			Pending: req.PendingURL,
			Failure: req.FailureURL,
		},
	})
	if err != nil {
		return nil, err
	}
	if resp.ID == "" || resp.InitPoint == "" {
		return nil, errors.New("mercado pago returned an incomplete preference")
	}
	return &Preference{ID: resp.ID, InitPoint: resp.InitPoint}, nil
}

func (c *Client) GetPayment(ctx context.Context, providerPaymentID string) (*PaymentInfo, error) {
	id, err := strconv.Atoi(providerPaymentID)
	if err != nil {
		return nil, errors.New("invalid provider payment id")
	}
	resp, err := c.payments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &PaymentInfo{
		ID:                strconv.Itoa(resp.ID),
		Status:            resp.Status,
		StatusDetail:      resp.StatusDetail,
		ExternalReference: resp.ExternalReference,
		PaymentMethodID:   resp.PaymentMethodID,
		Installments:      resp.Installments,
	}, nil
}
