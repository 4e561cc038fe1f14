package repository

import (
	"mkopo/internal/models"

	"gorm.io/gorm"
)

type OperatorRepository struct {
	db *gorm.DB
}

func NewOperatorRepository(db *gorm.DB) *OperatorRepository {
	return &OperatorRepository{db: db}
}

func (r *OperatorRepository) GetByEmail(email string) (*models.Operator, error) {
	var o models.Operator
	err := r.db.Where("email = ?", email).First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OperatorRepository) Create(o *models.Operator) error {
	return r.db.Create(o).Error
}
