package handler

import (
	"errors"
	"net/http"

	"github.com/michael24561/ConfiaPeBack/internal/apierr"

	"github.com/gin-gonic/gin"
)

// Pagination is the envelope's paging block.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

func NewPagination(page, limit int, total int64) Pagination {
	pages := int(total) / limit
	if int(total)%limit != 0 {
		pages++
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": data})
}

func respondPage(c *gin.Context, data interface{}, p Pagination) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data, "pagination": p})
}

// respondError maps the error taxonomy to a status. Anything outside
// the taxonomy is a 500 with a generic message: internals never leak.
func respondError(c *gin.Context, err error) {
	status := apierr.Status(err)
	msg := "internal server error"
	var e *apierr.Error
	if errors.As(err, &e) {
		msg = e.Message
	}
	c.JSON(status, gin.H{"success": false, "error": msg})
}
