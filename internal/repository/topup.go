package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yusufpr/akrab_bot/internal/models"
	"gorm.io/gorm"
)

func (r *Repository) CreateTopup(ctx context.Context, topup *models.TopupRequest) error {
	if err := r.db.WithContext(ctx).Create(topup).Error; err != nil {
		return fmt.Errorf("failed to create topup %s: %w", topup.ID, err)
	}
	return nil
}

func (r *Repository) GetTopupByID(ctx context.Context, id string) (*models.TopupRequest, error) {
	var topup models.TopupRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&topup).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get topup %s: %w", id, err)
	}
	return &topup, nil
}

func (r *Repository) AttachTopupProof(ctx context.Context, id, fileID, caption string) error {
	res := r.db.WithContext(ctx).
		Model(&models.TopupRequest{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"proof_file_id": fileID,
			"proof_caption": caption,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to attach proof to topup %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("topup %s not found", id)
	}
	return nil
}

// SettleTopup moves a pending topup to approved or rejected exactly once.
// When credit is true the (surcharged) amount is credited to the owner in
// the same DB transaction as the status change, so re-approving a settled
// request can never double-credit.
func (r *Repository) SettleTopup(ctx context.Context, id, status string, credit bool) (bool, error) {
	tx, err := r.beginTransaction(ctx)
	if err != nil {
		return false, err
	}

	var topup models.TopupRequest
	if err := tx.Where("id = ?", id).First(&topup).Error; err != nil {
		r.rollback(tx)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get topup %s: %w", id, err)
	}

	res := tx.Model(&models.TopupRequest{}).
		Where("id = ? AND status = ?", id, models.TopupPending).
		Update("status", status)
	if res.Error != nil {
		r.rollback(tx)
		return false, fmt.Errorf("failed to settle topup %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		r.rollback(tx)
		return false, nil
	}

	if credit {
		if err := r.creditBalance(tx, topup.UserID, topup.Amount); err != nil {
			r.rollback(tx)
			return false, err
		}
	}

	if err := r.commit(tx); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repository) ListTopupsByUser(ctx context.Context, userID int64, limit int) ([]models.TopupRequest, error) {
	var topups []models.TopupRequest
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&topups).Error
	if err != nil {
		return nil, err
	}
	return topups, nil
}

func (r *Repository) ListPendingTopups(ctx context.Context, limit int) ([]models.TopupRequest, error) {
	var topups []models.TopupRequest
	err := r.db.WithContext(ctx).
		Where("status = ?", models.TopupPending).
		Order("created_at DESC").
		Limit(limit).
		Find(&topups).Error
	if err != nil {
		return nil, err
	}
	return topups, nil
}
