package handler

import (
	"strconv"

	"github.com/michael24561/ConfiaPeBack/internal/apierr"
	"github.com/michael24561/ConfiaPeBack/internal/middleware"
	"github.com/michael24561/ConfiaPeBack/internal/service"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	settlement *service.SettlementService
}

func NewPaymentHandler(settlement *service.SettlementService) *PaymentHandler {
	return &PaymentHandler{settlement: settlement}
}

// Checkout creates (or refreshes) the provider checkout session for a
// quoted job. Client only.
func (h *PaymentHandler) Checkout(c *gin.Context) {
	var req struct {
		JobID uint `json:"job_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierr.Validation("job_id is required"))
		return
	}
	session, err := h.settlement.CreateCheckout(c.Request.Context(), middleware.GetUserID(c), req.JobID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, session)
}

// Status returns the payment attached to a job, visible only to its
// participants or an admin.
func (h *PaymentHandler) Status(c *gin.Context) {
	jobID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || jobID == 0 {
		respondError(c, apierr.Validation("invalid job id"))
		return
	}
	payment, err := h.settlement.GetByJob(uint(jobID), actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, payment)
}
