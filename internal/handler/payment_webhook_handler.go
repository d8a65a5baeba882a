package handler

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/michael24561/ConfiaPeBack/internal/service"
	"github.com/michael24561/ConfiaPeBack/pkg/mercadopago"

	"github.com/gin-gonic/gin"
)

// PaymentWebhookHandler receives provider payment notifications. Once
// the signature checks out it always acknowledges with 200; processing
// failures are logged for manual reconciliation instead of bouncing
// the delivery, since a retry storm would not fix a bad reference.
type PaymentWebhookHandler struct {
	settlement *service.SettlementService
	secret     string
}

func NewPaymentWebhookHandler(settlement *service.SettlementService, secret string) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{settlement: settlement, secret: secret}
}

type webhookBody struct {
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (h *PaymentWebhookHandler) Handle(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unreadable body"})
		return
	}

	var body webhookBody
	if err := json.Unmarshal(raw, &body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid payload"})
		return
	}

	if h.secret != "" {
		ok := mercadopago.VerifyWebhookSignature(
			h.secret,
			c.GetHeader("x-signature"),
			c.GetHeader("x-request-id"),
			body.Data.ID,
		)
		if !ok {
			log.Printf("[webhook] signature mismatch, data.id=%s", body.Data.ID)
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "invalid signature"})
			return
		}
	}

	if err := h.settlement.HandleWebhook(c.Request.Context(), service.WebhookEvent{
		Type:   body.Type,
		DataID: body.Data.ID,
	}); err != nil {
		log.Printf("[webhook] processing failed, data.id=%s: %v", body.Data.ID, err)
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
