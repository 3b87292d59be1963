package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yusufpr/akrab_bot/internal/models"
	"gorm.io/gorm"
)

var terminalOutcomes = []string{
	string(models.StatusSuccess),
	string(models.StatusFailed),
	string(models.StatusCancelled),
}

func (r *Repository) CreateTransaction(ctx context.Context, trx *models.Transaction) error {
	if err := r.db.WithContext(ctx).Create(trx).Error; err != nil {
		return fmt.Errorf("failed to create transaction %s: %w", trx.ReffID, err)
	}
	return nil
}

func (r *Repository) GetTransactionByRef(ctx context.Context, reffID string) (*models.Transaction, error) {
	var trx models.Transaction
	err := r.db.WithContext(ctx).Where("reff_id = ?", reffID).First(&trx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %s: %w", reffID, err)
	}
	return &trx, nil
}

// SettleTransaction applies a status transition to a transaction record,
// guarded so that a record already in a terminal outcome is never touched
// again. The guard and the optional compensating credit run in one DB
// transaction; the returned bool reports whether this caller won the
// transition.
func (r *Repository) SettleTransaction(
	ctx context.Context,
	reffID string,
	statusText string,
	outcome models.TxStatus,
	remark string,
	refundUserID int64,
	refundAmount int64,
) (bool, error) {
	tx, err := r.beginTransaction(ctx)
	if err != nil {
		return false, err
	}

	res := tx.Model(&models.Transaction{}).
		Where("reff_id = ? AND outcome NOT IN ?", reffID, terminalOutcomes).
		Updates(map[string]interface{}{
			"status_text": statusText,
			"outcome":     string(outcome),
			"remark":      remark,
		})
	if res.Error != nil {
		r.rollback(tx)
		return false, fmt.Errorf("failed to update transaction %s: %w", reffID, res.Error)
	}
	if res.RowsAffected == 0 {
		r.rollback(tx)
		return false, nil
	}

	if refundAmount > 0 {
		if err := r.creditBalance(tx, refundUserID, refundAmount); err != nil {
			r.rollback(tx)
			return false, err
		}
	}

	if err := r.commit(tx); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repository) ListTransactionsByUser(ctx context.Context, userID int64, limit int) ([]models.Transaction, error) {
	var trxs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&trxs).Error
	if err != nil {
		return nil, err
	}
	return trxs, nil
}

func (r *Repository) ListAllTransactions(ctx context.Context, limit int) ([]models.Transaction, error) {
	var trxs []models.Transaction
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&trxs).Error
	if err != nil {
		return nil, err
	}
	return trxs, nil
}

func (r *Repository) CountTransactionsByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// ListStalePending returns non-terminal transactions created before the
// cutoff, for the reconciliation sweep.
func (r *Repository) ListStalePending(ctx context.Context, before time.Time) ([]models.Transaction, error) {
	var trxs []models.Transaction
	err := r.db.WithContext(ctx).
		Where("outcome NOT IN ? AND created_at < ?", terminalOutcomes, before).
		Order("created_at ASC").
		Find(&trxs).Error
	if err != nil {
		return nil, err
	}
	return trxs, nil
}
