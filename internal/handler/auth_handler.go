package handler

import (
	"net/http"

	"mkopo/config"
	"mkopo/internal/auth"
	"mkopo/internal/repository"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type AuthHandler struct {
	cfg          *config.Config
	operatorRepo *repository.OperatorRepository
}

func NewAuthHandler(cfg *config.Config, operatorRepo *repository.OperatorRepository) *AuthHandler {
	return &AuthHandler{cfg: cfg, operatorRepo: operatorRepo}
}

// Login authenticates a back-office operator and returns a JWT.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}
	op, err := h.operatorRepo.GetByEmail(req.Email)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	token, err := auth.GenerateToken(&h.cfg.JWT, op.ID, op.Email, op.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "email": op.Email, "role": op.Role})
}
