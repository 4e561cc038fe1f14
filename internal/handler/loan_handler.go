package handler

import (
	"net/http"
	"strconv"

	"mkopo/internal/domain"
	"mkopo/internal/models"
	"mkopo/internal/repository"

	"github.com/gin-gonic/gin"
)

type LoanHandler struct {
	loanRepo *repository.LoanRepository
}

func NewLoanHandler(loanRepo *repository.LoanRepository) *LoanHandler {
	return &LoanHandler{loanRepo: loanRepo}
}

// ListProducts returns the static loan catalog the UI renders as cards.
func (h *LoanHandler) ListProducts(c *gin.Context) {
	products, err := h.loanRepo.ListProducts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch loan products"})
		return
	}
	c.JSON(http.StatusOK, products)
}

// Apply records a loan application. The processing fee is charged separately
// via the payment endpoints.
func (h *LoanHandler) Apply(c *gin.Context) {
	var req struct {
		Name           string `json:"name" binding:"required"`
		Phone          string `json:"phone" binding:"required,min=10"`
		IDNumber       string `json:"idNumber" binding:"required"`
		LoanType       string `json:"loanType" binding:"required"`
		Amount         int64  `json:"amount" binding:"required,min=1"`
		Fee            int64  `json:"fee" binding:"min=0"`
		TotalRepayment int64  `json:"totalRepayment" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	app := &models.LoanApplication{
		Name:           req.Name,
		Phone:          req.Phone,
		IDNumber:       req.IDNumber,
		LoanType:       req.LoanType,
		AmountKES:      req.Amount,
		FeeKES:         req.Fee,
		TotalRepayment: req.TotalRepayment,
		Status:         domain.LoanStatusPendingFee,
	}
	if err := h.loanRepo.CreateApplication(app); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create loan application"})
		return
	}
	c.JSON(http.StatusCreated, app)
}

// Get returns one application by id.
func (h *LoanHandler) Get(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	app, err := h.loanRepo.GetApplicationByID(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "loan application not found"})
		return
	}
	c.JSON(http.StatusOK, app)
}
