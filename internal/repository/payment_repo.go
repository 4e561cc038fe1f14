package repository

import (
	"time"

	"mkopo/internal/domain"
	"mkopo/internal/models"

	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(p *models.PaymentAttempt) error {
	return r.db.Create(p).Error
}

func (r *PaymentRepository) GetByExternalReference(ref string) (*models.PaymentAttempt, error) {
	var p models.PaymentAttempt
	err := r.db.Where("external_reference = ?", ref).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// AttachProviderIDs stores the provider-assigned half of the tracking handle.
func (r *PaymentRepository) AttachProviderIDs(ref, checkoutRequestID, merchantRequestID string) error {
	return r.db.Model(&models.PaymentAttempt{}).
		Where("external_reference = ?", ref).
		Updates(map[string]interface{}{
			"checkout_request_id": checkoutRequestID,
			"merchant_request_id": merchantRequestID,
		}).Error
}

// MarkTerminal moves a PENDING attempt to a terminal status. The WHERE clause
// doubles as the compare-and-swap guard: once an attempt is terminal, further
// writes match zero rows and the call reports updated=false. Poller and
// webhook race through here safely without locks.
func (r *PaymentRepository) MarkTerminal(ref, status, receipt, errMsg string) (bool, error) {
	updates := map[string]interface{}{
		"status":         status,
		"receipt_number": receipt,
		"error_message":  errMsg,
	}
	if status == domain.PaymentStatusCompleted {
		now := time.Now()
		updates["completed_at"] = &now
	}
	res := r.db.Model(&models.PaymentAttempt{}).
		Where("external_reference = ? AND status = ?", ref, domain.PaymentStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *PaymentRepository) ListRecent(limit int) ([]models.PaymentAttempt, error) {
	var out []models.PaymentAttempt
	err := r.db.Order("id DESC").Limit(limit).Find(&out).Error
	return out, err
}
