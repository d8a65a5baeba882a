package handler

import (
	"strconv"

	"github.com/michael24561/ConfiaPeBack/internal/apierr"
	"github.com/michael24561/ConfiaPeBack/internal/repository"
	"github.com/michael24561/ConfiaPeBack/internal/service"

	"github.com/gin-gonic/gin"
)

// AdminHandler groups the back-office operations: unrestricted job
// listing, manual status overrides, dispute resolution, payout
// triggering and rating removal.
type AdminHandler struct {
	jobs       *service.JobService
	disputes   *service.DisputeService
	settlement *service.SettlementService
	ratings    *service.RatingService
}

func NewAdminHandler(jobs *service.JobService, disputes *service.DisputeService, settlement *service.SettlementService, ratings *service.RatingService) *AdminHandler {
	return &AdminHandler{jobs: jobs, disputes: disputes, settlement: settlement, ratings: ratings}
}

func (h *AdminHandler) ListJobs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	f := repository.JobFilter{Status: c.Query("status")}
	if v, err := strconv.ParseUint(c.Query("client_id"), 10, 64); err == nil {
		f.ClientID = uint(v)
	}
	if v, err := strconv.ParseUint(c.Query("technician_id"), 10, 64); err == nil {
		f.TechnicianID = uint(v)
	}
	jobs, total, err := h.jobs.AdminList(f, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, jobs, NewPagination(page, limit, total))
}

// ForceStatus overrides a job's status without transition checks. The
// escape hatch for support cases the state machine cannot express.
func (h *AdminHandler) ForceStatus(c *gin.Context) {
	id, ok := jobIDParam(c)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierr.Validation("status is required"))
		return
	}
	job, err := h.jobs.AdminForceStatus(id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, job)
}

func (h *AdminHandler) ListDisputes(c *gin.Context) {
	jobs, err := h.disputes.ListDisputes()
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, jobs)
}

func (h *AdminHandler) ResolveDispute(c *gin.Context) {
	id, ok := jobIDParam(c)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierr.Validation("status is required"))
		return
	}
	job, err := h.disputes.Resolve(id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, job)
}

// CreatePayout releases the technician's share for a completed, paid
// job. Safe to retry: the second call conflicts instead of paying twice.
func (h *AdminHandler) CreatePayout(c *gin.Context) {
	id, ok := jobIDParam(c)
	if !ok {
		return
	}
	result, err := h.settlement.CreatePayout(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, result)
}

func (h *AdminHandler) DeleteRating(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, apierr.Validation("invalid rating id"))
		return
	}
	if err := h.ratings.Delete(uint(id)); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"deleted": true})
}
