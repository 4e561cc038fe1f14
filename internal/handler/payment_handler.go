package handler

import (
	"errors"
	"net/http"

	"mkopo/internal/service"
	"mkopo/pkg/payment"

	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	svc *service.PaymentService
}

func NewPaymentHandler(svc *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{svc: svc}
}

// Initiate starts an STK push for the loan processing fee and returns the
// tracking handle the client polls with.
func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req struct {
		PhoneNumber string `json:"phoneNumber" binding:"required"`
		Amount      int64  `json:"amount" binding:"required"`
		Description string `json:"description"`
		LoanID      *uint  `json:"loanId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phoneNumber and amount are required"})
		return
	}
	res, err := h.svc.InitiatePayment(c.Request.Context(), req.PhoneNumber, req.Amount, req.Description, req.LoanID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPhone), errors.Is(err, service.ErrNoActiveLoan):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, service.ErrRateLimited):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error(), "status": "FAILED"})
		default:
			switch payment.KindOf(err) {
			case payment.KindValidation:
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			case payment.KindAuth:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "payment provider credentials not configured"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "payment could not be initiated, please try again"})
			}
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"checkoutRequestId": res.CheckoutRequestID,
		"merchantRequestId": res.MerchantRequestID,
		"externalReference": res.ExternalReference,
		"status":            res.Status,
	})
}

// CheckStatus answers the client's cadence poll for one tracking handle.
// Accepts `reference` as well as `externalReference` for older clients.
func (h *PaymentHandler) CheckStatus(c *gin.Context) {
	var req struct {
		ExternalReference string `json:"externalReference"`
		Reference         string `json:"reference"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	ref := req.ExternalReference
	if ref == "" {
		ref = req.Reference
	}
	if ref == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing transaction reference (externalReference or reference expected)"})
		return
	}
	res, err := h.svc.CheckStatus(c.Request.Context(), ref)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownReference):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case payment.KindOf(err) == payment.KindAuth:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "payment provider credentials not configured"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not check payment status, please try again"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":            res.Success,
		"status":             res.Status,
		"mpesaReceiptNumber": res.ReceiptNumber,
		"amount":             res.Amount,
		"isFinal":            res.IsFinal,
	})
}

// Get returns the stored attempt for a reference.
func (h *PaymentHandler) Get(c *gin.Context) {
	a, err := h.svc.GetAttempt(c.Param("reference"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
		return
	}
	c.JSON(http.StatusOK, a)
}
