package handler

import (
	"net/http"

	"mkopo/internal/repository"

	"github.com/gin-gonic/gin"
)

const adminListLimit = 200

type AdminHandler struct {
	paymentRepo *repository.PaymentRepository
	loanRepo    *repository.LoanRepository
}

func NewAdminHandler(paymentRepo *repository.PaymentRepository, loanRepo *repository.LoanRepository) *AdminHandler {
	return &AdminHandler{paymentRepo: paymentRepo, loanRepo: loanRepo}
}

// ListPayments returns recent payment attempts for the back office.
func (h *AdminHandler) ListPayments(c *gin.Context) {
	attempts, err := h.paymentRepo.ListRecent(adminListLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch payments"})
		return
	}
	c.JSON(http.StatusOK, attempts)
}

// ListLoans returns recent loan applications for the back office.
func (h *AdminHandler) ListLoans(c *gin.Context) {
	apps, err := h.loanRepo.ListApplications(adminListLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch loan applications"})
		return
	}
	c.JSON(http.StatusOK, apps)
}
