package handler

import (
	"github.com/michael24561/ConfiaPeBack/internal/apierr"
	"github.com/michael24561/ConfiaPeBack/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Name      string `json:"name" binding:"required"`
		Email     string `json:"email" binding:"required,email"`
		Password  string `json:"password" binding:"required,min=8"`
		Role      string `json:"role" binding:"required"`
		Specialty string `json:"specialty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierr.Validation("%s", err.Error()))
		return
	}
	user, tokens, err := h.auth.Register(req.Name, req.Email, req.Password, req.Role, req.Specialty)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, gin.H{"user": user, "tokens": tokens})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierr.Validation("email and password are required"))
		return
	}
	user, tokens, err := h.auth.Login(req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"user": user, "tokens": tokens})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierr.Validation("refresh_token is required"))
		return
	}
	tokens, err := h.auth.Refresh(req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, tokens)
}
