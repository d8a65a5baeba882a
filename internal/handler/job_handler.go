package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/michael24561/ConfiaPeBack/internal/apierr"
	"github.com/michael24561/ConfiaPeBack/internal/middleware"
	"github.com/michael24561/ConfiaPeBack/internal/models"
	"github.com/michael24561/ConfiaPeBack/internal/service"

	"github.com/gin-gonic/gin"
)

type JobHandler struct {
	jobs     *service.JobService
	disputes *service.DisputeService
}

func NewJobHandler(jobs *service.JobService, disputes *service.DisputeService) *JobHandler {
	return &JobHandler{jobs: jobs, disputes: disputes}
}

func actorFrom(c *gin.Context) service.Actor {
	return service.Actor{UserID: middleware.GetUserID(c), Role: middleware.GetRole(c)}
}

func jobIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, apierr.Validation("invalid job id"))
		return 0, false
	}
	return uint(id), true
}

func (h *JobHandler) Create(c *gin.Context) {
	var req struct {
		TechnicianID uint       `json:"technician_id" binding:"required"`
		ServiceName  string     `json:"service_name" binding:"required"`
		Description  string     `json:"description"`
		Address      string     `json:"address"`
		Phone        string     `json:"phone"`
		ScheduledAt  *time.Time `json:"scheduled_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierr.Validation("%s", err.Error()))
		return
	}
	job, err := h.jobs.Create(actorFrom(c), service.CreateJobInput{
		TechnicianID: req.TechnicianID,
		ServiceName:  req.ServiceName,
		Description:  req.Description,
		Address:      req.Address,
		Phone:        req.Phone,
		ScheduledAt:  req.ScheduledAt,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, job)
}

func (h *JobHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	jobs, total, err := h.jobs.List(actorFrom(c), c.Query("status"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	respondPage(c, jobs, NewPagination(page, limit, total))
}

func (h *JobHandler) Get(c *gin.Context) {
	id, ok := jobIDParam(c)
	if !ok {
		return
	}
	job, err := h.jobs.GetByID(id, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, job)
}

func (h *JobHandler) RequestVisit(c *gin.Context) {
	h.simpleTransition(c, h.jobs.RequestVisit)
}

func (h *JobHandler) Quote(c *gin.Context) {
	id, ok := jobIDParam(c)
	if !ok {
		return
	}
	var req struct {
		Price float64 `json:"price" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierr.Validation("price is required"))
		return
	}
	job, err := h.jobs.Quote(id, actorFrom(c), req.Price)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, job)
}

func (h *JobHandler) Reject(c *gin.Context) {
	h.simpleTransition(c, h.jobs.RejectRequest)
}

func (h *JobHandler) AcceptQuote(c *gin.Context) {
	h.simpleTransition(c, h.jobs.AcceptQuote)
}

func (h *JobHandler) RejectQuote(c *gin.Context) {
	h.simpleTransition(c, h.jobs.RejectQuote)
}

func (h *JobHandler) Start(c *gin.Context) {
	h.simpleTransition(c, h.jobs.Start)
}

func (h *JobHandler) Complete(c *gin.Context) {
	h.simpleTransition(c, h.jobs.Complete)
}

func (h *JobHandler) Cancel(c *gin.Context) {
	h.simpleTransition(c, h.jobs.Cancel)
}

func (h *JobHandler) Delete(c *gin.Context) {
	id, ok := jobIDParam(c)
	if !ok {
		return
	}
	if err := h.jobs.Delete(id, actorFrom(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Report files a dispute on the job.
func (h *JobHandler) Report(c *gin.Context) {
	id, ok := jobIDParam(c)
	if !ok {
		return
	}
	var req struct {
		Reason      string `json:"reason" binding:"required"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierr.Validation("reason is required"))
		return
	}
	report, err := h.disputes.FileReport(id, actorFrom(c), service.FileReportInput{
		Reason:      req.Reason,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, report)
}

type transitionFn func(jobID uint, actor service.Actor) (*models.Job, error)

func (h *JobHandler) simpleTransition(c *gin.Context, fn transitionFn) {
	id, ok := jobIDParam(c)
	if !ok {
		return
	}
	job, err := fn(id, actorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, job)
}
