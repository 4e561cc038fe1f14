package repository

import (
	"mkopo/internal/domain"
	"mkopo/internal/models"

	"gorm.io/gorm"
)

type LoanRepository struct {
	db *gorm.DB
}

func NewLoanRepository(db *gorm.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

func (r *LoanRepository) ListProducts() ([]models.LoanProduct, error) {
	var out []models.LoanProduct
	err := r.db.Order("amount_kes ASC").Find(&out).Error
	return out, err
}

func (r *LoanRepository) CreateApplication(a *models.LoanApplication) error {
	return r.db.Create(a).Error
}

func (r *LoanRepository) GetApplicationByID(id uint) (*models.LoanApplication, error) {
	var a models.LoanApplication
	err := r.db.First(&a, id).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *LoanRepository) ListApplications(limit int) ([]models.LoanApplication, error) {
	var out []models.LoanApplication
	err := r.db.Order("id DESC").Limit(limit).Find(&out).Error
	return out, err
}

// MarkFeePaid flips a PENDING_FEE application to FEE_PAID. Idempotent.
func (r *LoanRepository) MarkFeePaid(id uint) error {
	return r.db.Model(&models.LoanApplication{}).
		Where("id = ? AND status = ?", id, domain.LoanStatusPendingFee).
		Update("status", domain.LoanStatusFeePaid).Error
}

// SetIDDocumentURL records the uploaded KYC document location.
func (r *LoanRepository) SetIDDocumentURL(id uint, url string) error {
	return r.db.Model(&models.LoanApplication{}).
		Where("id = ?", id).
		Update("id_document_url", url).Error
}
