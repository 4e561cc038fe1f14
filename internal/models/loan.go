package models

import "time"

// LoanProduct is one tier of the static loan catalog.
type LoanProduct struct {
	ID             uint  `gorm:"primaryKey" json:"id"`
	AmountKES      int64 `gorm:"not null;uniqueIndex" json:"amount"`
	FeeKES         int64 `gorm:"not null" json:"fee"`
	TotalRepayment int64 `gorm:"not null" json:"totalRepayment"`
}

func (LoanProduct) TableName() string {
	return "loan_products"
}

// LoanApplication is an applicant's submission. The processing fee is charged
// separately through the payment engine; a completed fee payment flips the
// status to FEE_PAID.
type LoanApplication struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"size:120;not null" json:"name"`
	Phone          string    `gorm:"size:16;not null;index" json:"phone"`
	IDNumber       string    `gorm:"size:20;not null" json:"idNumber"`
	LoanType       string    `gorm:"size:50;not null" json:"loanType"`
	AmountKES      int64     `gorm:"not null" json:"amount"`
	FeeKES         int64     `gorm:"not null" json:"fee"`
	TotalRepayment int64     `gorm:"not null" json:"totalRepayment"`
	Status         string    `gorm:"size:20;not null;default:'PENDING_FEE'" json:"status"`
	IDDocumentURL  string    `gorm:"size:512" json:"idDocumentUrl"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"-"`
}

func (LoanApplication) TableName() string {
	return "loan_applications"
}
