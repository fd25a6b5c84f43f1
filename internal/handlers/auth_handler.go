package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pharmacy_admin/internal/services"
)

type AuthHandler struct {
	operators services.OperatorService
}

func NewAuthHandler(operators services.OperatorService) *AuthHandler {
	return &AuthHandler{operators: operators}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	token, op, err := h.operators.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"operator": op,
	})
}
