package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yusufpr/akrab_bot/internal/models"
	"gorm.io/gorm"
)

func (r *Repository) CreateRedeemCode(ctx context.Context, code *models.RedeemCode) error {
	if err := r.db.WithContext(ctx).Create(code).Error; err != nil {
		return fmt.Errorf("failed to create redeem code %s: %w", code.Code, err)
	}
	return nil
}

func (r *Repository) GetRedeemCode(ctx context.Context, code string) (*models.RedeemCode, error) {
	var rc models.RedeemCode
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&rc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get redeem code %s: %w", code, err)
	}
	return &rc, nil
}

// ConsumeRedeemCode marks the code used and credits its amount to the
// redeeming user in one DB transaction. The used flag is flipped with a
// conditional single-statement update, so two concurrent redemptions of
// the same code credit at most once. Returns the credited amount and
// whether this caller won the consumption.
func (r *Repository) ConsumeRedeemCode(ctx context.Context, code string, userID int64) (int64, bool, error) {
	tx, err := r.beginTransaction(ctx)
	if err != nil {
		return 0, false, err
	}

	var rc models.RedeemCode
	if err := tx.Where("code = ?", code).First(&rc).Error; err != nil {
		r.rollback(tx)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get redeem code %s: %w", code, err)
	}

	now := time.Now()
	res := tx.Model(&models.RedeemCode{}).
		Where("code = ? AND used = ?", code, false).
		Updates(map[string]interface{}{
			"used":    true,
			"used_by": userID,
			"used_at": now,
		})
	if res.Error != nil {
		r.rollback(tx)
		return 0, false, fmt.Errorf("failed to consume redeem code %s: %w", code, res.Error)
	}
	if res.RowsAffected == 0 {
		r.rollback(tx)
		return 0, false, nil
	}

	if err := r.creditBalance(tx, userID, rc.Amount); err != nil {
		r.rollback(tx)
		return 0, false, err
	}

	if err := r.commit(tx); err != nil {
		return 0, false, err
	}
	return rc.Amount, true, nil
}

func (r *Repository) ListRedeemCodesByIssuer(ctx context.Context, issuedBy int64, limit int) ([]models.RedeemCode, error) {
	var codes []models.RedeemCode
	err := r.db.WithContext(ctx).
		Where("issued_by = ?", issuedBy).
		Order("created_at DESC").
		Limit(limit).
		Find(&codes).Error
	if err != nil {
		return nil, err
	}
	return codes, nil
}
