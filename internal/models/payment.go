package models

import "time"

// PaymentAttempt is one STK push attempt. The external reference is the
// canonical correlation key; checkout/merchant request ids are provider-side
// identifiers stored for the UI and for support lookups.
type PaymentAttempt struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	ExternalReference string     `gorm:"size:64;uniqueIndex;not null" json:"external_reference"`
	CheckoutRequestID string     `gorm:"size:128" json:"checkout_request_id"`
	MerchantRequestID string     `gorm:"size:128" json:"merchant_request_id"`
	PhoneNumber       string     `gorm:"size:16;index;not null" json:"phone_number"`
	AmountKES         int64      `gorm:"not null" json:"amount_kes"`
	Narration         string     `gorm:"size:255" json:"narration"`
	Status            string     `gorm:"size:20;not null;index" json:"status"` // PENDING, COMPLETED, FAILED
	ReceiptNumber     string     `gorm:"size:64" json:"receipt_number"`
	ErrorMessage      string     `gorm:"size:512" json:"error_message"`
	LoanApplicationID *uint      `gorm:"index" json:"loan_application_id"`
	CompletedAt       *time.Time `json:"completed_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (PaymentAttempt) TableName() string {
	return "payment_attempts"
}
