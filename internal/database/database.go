package database

import (
	"errors"
	"log"

	"mkopo/config"
	"mkopo/internal/domain"
	"mkopo/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// AutoMigrate runs Gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Operator{},
		&models.LoanProduct{},
		&models.LoanApplication{},
		&models.PaymentAttempt{},
	)
}

// loanCatalog is the static amount/fee table the UI renders. Amounts in KES.
var loanCatalog = []models.LoanProduct{
	{AmountKES: 5500, FeeKES: 50, TotalRepayment: 5550},
	{AmountKES: 6800, FeeKES: 80, TotalRepayment: 6880},
	{AmountKES: 7800, FeeKES: 120, TotalRepayment: 7920},
	{AmountKES: 9800, FeeKES: 140, TotalRepayment: 9940},
	{AmountKES: 11200, FeeKES: 180, TotalRepayment: 11380},
	{AmountKES: 16800, FeeKES: 200, TotalRepayment: 17000},
	{AmountKES: 21200, FeeKES: 220, TotalRepayment: 21420},
	{AmountKES: 25600, FeeKES: 350, TotalRepayment: 25950},
	{AmountKES: 30000, FeeKES: 420, TotalRepayment: 30420},
	{AmountKES: 35400, FeeKES: 540, TotalRepayment: 35940},
	{AmountKES: 39800, FeeKES: 680, TotalRepayment: 40480},
	{AmountKES: 44200, FeeKES: 960, TotalRepayment: 45160},
	{AmountKES: 48600, FeeKES: 1550, TotalRepayment: 50150},
	{AmountKES: 60600, FeeKES: 2000, TotalRepayment: 62600},
}

// SeedLoanProducts inserts any catalog tiers not already present.
func SeedLoanProducts(db *gorm.DB) {
	for _, p := range loanCatalog {
		var existing models.LoanProduct
		err := db.Where("amount_kes = ?", p.AmountKES).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.Create(&p).Error; err != nil {
				log.Printf("[SEED] loan product %d: %v", p.AmountKES, err)
			}
		}
	}
}

// SeedOperator creates the configured back-office account if missing.
func SeedOperator(db *gorm.DB, cfg *config.AdminConfig) {
	var existing models.Operator
	err := db.Where("email = ?", cfg.Email).First(&existing).Error
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("[SEED] operator hash: %v", err)
		return
	}
	op := &models.Operator{
		Email:        cfg.Email,
		PasswordHash: string(hash),
		Role:         domain.RoleOperator,
	}
	if err := db.Create(op).Error; err != nil {
		log.Printf("[SEED] operator: %v", err)
	}
}
