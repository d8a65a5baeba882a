package handler

import (
	"strconv"

	"github.com/michael24561/ConfiaPeBack/internal/apierr"
	"github.com/michael24561/ConfiaPeBack/internal/middleware"
	"github.com/michael24561/ConfiaPeBack/internal/repository"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifs *repository.NotificationRepository
}

func NewNotificationHandler(notifs *repository.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{notifs: notifs}
}

func (h *NotificationHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	items, err := h.notifs.ListByUserID(middleware.GetUserID(c), limit, (page-1)*limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, items)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, apierr.Validation("invalid notification id"))
		return
	}
	if err := h.notifs.MarkRead(uint(id), middleware.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"read": true})
}
