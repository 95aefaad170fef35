package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"oneclick/internal/models"
)

type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	FindByID(ctx context.Context, id uint) (*models.Transaction, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.Transaction, error)
	ListByStatus(ctx context.Context, status models.TransactionStatus) ([]models.Transaction, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Transaction, error)
	// Review moves a pending transaction to status and, when credit is
	// positive, adds it to the owner's balance in the same database
	// transaction. applied is false when the row was no longer pending.
	Review(ctx context.Context, id uint, status models.TransactionStatus, credit int) (tx *models.Transaction, applied bool, err error)
}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *transactionRepository) FindByID(ctx context.Context, id uint) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.WithContext(ctx).First(&tx, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

func (r *transactionRepository) FindByExternalID(ctx context.Context, externalID string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.WithContext(ctx).Where("external_tx_id = ?", externalID).Take(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

func (r *transactionRepository) ListByStatus(ctx context.Context, status models.TransactionStatus) ([]models.Transaction, error) {
	var txs []models.Transaction
	if err := r.db.WithContext(ctx).Where("status = ?", status).Order("created_at DESC, id DESC").Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *transactionRepository) ListByUser(ctx context.Context, userID uint) ([]models.Transaction, error) {
	var txs []models.Transaction
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *transactionRepository) Review(ctx context.Context, id uint, status models.TransactionStatus, credit int) (*models.Transaction, bool, error) {
	var (
		out     models.Transaction
		applied bool
	)
	err := r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		now := time.Now()
		res := db.Model(&models.Transaction{}).
			Where("id = ? AND status = ?", id, models.TransactionPending).
			Updates(map[string]any{"status": status, "reviewed_at": now})
		if res.Error != nil {
			return res.Error
		}
		applied = res.RowsAffected == 1

		if err := db.First(&out, id).Error; err != nil {
			return err
		}
		if !applied || credit <= 0 {
			return nil
		}
		credited := db.Model(&models.User{}).
			Where("id = ?", out.UserID).
			UpdateColumn("tokens", gorm.Expr("tokens + ?", credit))
		if credited.Error != nil {
			return credited.Error
		}
		if credited.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &out, applied, nil
}
