package handler

import (
	"strconv"

	"github.com/michael24561/ConfiaPeBack/internal/apierr"
	"github.com/michael24561/ConfiaPeBack/internal/middleware"
	"github.com/michael24561/ConfiaPeBack/internal/repository"

	"github.com/gin-gonic/gin"
)

type TechnicianHandler struct {
	techs *repository.TechnicianRepository
}

func NewTechnicianHandler(techs *repository.TechnicianRepository) *TechnicianHandler {
	return &TechnicianHandler{techs: techs}
}

// List returns available technicians, paginated.
func (h *TechnicianHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	techs, total, err := h.techs.ListAvailable(limit, (page-1)*limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, techs, NewPagination(page, limit, total))
}

func (h *TechnicianHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, apierr.Validation("invalid technician id"))
		return
	}
	tech, err := h.techs.GetByID(uint(id))
	if err != nil {
		respondError(c, apierr.NotFound("technician not found"))
		return
	}
	respondOK(c, tech)
}

// SetAvailability flips the caller's own availability flag.
func (h *TechnicianHandler) SetAvailability(c *gin.Context) {
	var req struct {
		Available *bool `json:"available" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierr.Validation("available is required"))
		return
	}
	tech, err := h.techs.GetByUserID(middleware.GetUserID(c))
	if err != nil {
		respondError(c, apierr.NotFound("technician profile not found"))
		return
	}
	if err := h.techs.SetAvailability(tech.ID, *req.Available); err != nil {
		respondError(c, err)
		return
	}
	tech.Available = *req.Available
	respondOK(c, tech)
}

// UpdatePayoutAccount registers the destination account transfers go
// to. Payouts stay blocked until this is set.
func (h *TechnicianHandler) UpdatePayoutAccount(c *gin.Context) {
	var req struct {
		PayoutAccountID string `json:"payout_account_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierr.Validation("payout_account_id is required"))
		return
	}
	tech, err := h.techs.GetByUserID(middleware.GetUserID(c))
	if err != nil {
		respondError(c, apierr.NotFound("technician profile not found"))
		return
	}
	tech.PayoutAccountID = req.PayoutAccountID
	tech.PayoutReady = true
	if err := h.techs.Update(tech); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, tech)
}
