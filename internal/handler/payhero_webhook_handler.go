package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"mkopo/internal/service"
	"mkopo/pkg/payment"

	"github.com/gin-gonic/gin"
)

// PayHeroCallback is the webhook payload PayHero pushes on payment resolution.
type PayHeroCallback struct {
	ExternalReference  string  `json:"external_reference"`
	CheckoutRequestID  string  `json:"checkout_request_id"`
	MerchantRequestID  string  `json:"merchant_request_id"`
	Status             string  `json:"status"`
	MpesaReceiptNumber string  `json:"mpesa_receipt_number"`
	Amount             float64 `json:"amount"`
	PhoneNumber        string  `json:"phone_number"`
	Timestamp          string  `json:"timestamp"`
}

type PayHeroWebhookHandler struct {
	svc    *service.PaymentService
	secret string
}

func NewPayHeroWebhookHandler(svc *service.PaymentService, secret string) *PayHeroWebhookHandler {
	return &PayHeroWebhookHandler{svc: svc, secret: secret}
}

// Handle processes the provider-pushed terminal notification. The provider
// retries on anything but 200, so internal processing errors are logged and
// acknowledged; only an enforced signature mismatch is rejected.
func (h *PayHeroWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Printf("[WEBHOOK] read body: %v", err)
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}
	if h.secret != "" {
		sig := c.GetHeader("X-Payhero-Signature")
		if !h.verifySignature(body, sig) {
			log.Printf("[WEBHOOK] signature mismatch external ip=%s", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
	}
	var payload PayHeroCallback
	if err := json.Unmarshal(body, &payload); err != nil {
		log.Printf("[WEBHOOK] invalid json: %v", err)
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}
	if payload.ExternalReference == "" {
		log.Printf("[WEBHOOK] payload without external_reference, acknowledging")
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}
	log.Printf("[WEBHOOK] external_reference=%s status=%s receipt=%s",
		payload.ExternalReference, payload.Status, payload.MpesaReceiptNumber)

	switch payment.ProviderState(payload.Status) {
	case payment.StateSuccess:
		h.svc.ApplyProviderResult(payload.ExternalReference, payment.StateSuccess, payload.MpesaReceiptNumber)
	case payment.StateFailed:
		h.svc.ApplyProviderResult(payload.ExternalReference, payment.StateFailed, "")
	default:
		// QUEUED or unknown: nothing to reconcile.
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *PayHeroWebhookHandler) verifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}
