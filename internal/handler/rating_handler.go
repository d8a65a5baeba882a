package handler

import (
	"strconv"

	"github.com/michael24561/ConfiaPeBack/internal/apierr"
	"github.com/michael24561/ConfiaPeBack/internal/service"

	"github.com/gin-gonic/gin"
)

type RatingHandler struct {
	ratings *service.RatingService
}

func NewRatingHandler(ratings *service.RatingService) *RatingHandler {
	return &RatingHandler{ratings: ratings}
}

func (h *RatingHandler) Create(c *gin.Context) {
	var req struct {
		JobID   uint   `json:"job_id" binding:"required"`
		Score   int    `json:"score" binding:"required"`
		Comment string `json:"comment"`
		Public  *bool  `json:"public"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierr.Validation("%s", err.Error()))
		return
	}
	public := true
	if req.Public != nil {
		public = *req.Public
	}
	rating, err := h.ratings.Create(actorFrom(c), service.CreateRatingInput{
		JobID:   req.JobID,
		Score:   req.Score,
		Comment: req.Comment,
		Public:  public,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, rating)
}

func (h *RatingHandler) ListByTechnician(c *gin.Context) {
	techID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || techID == 0 {
		respondError(c, apierr.Validation("invalid technician id"))
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	ratings, total, err := h.ratings.ListByTechnician(uint(techID), page, limit)
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
	respondPage(c, ratings, NewPagination(page, limit, total))
}
