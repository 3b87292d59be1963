package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yusufpr/akrab_bot/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Balance mutations are phrased as relative single-statement updates so
// concurrent actors (bot flow, webhook, sweep) never lose increments.

func (r *Repository) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var balance int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("telegram_id = ?", userID).
		Select("balance").
		Scan(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance for user %d: %w", userID, err)
	}
	return balance, nil
}

func (r *Repository) CreditBalance(ctx context.Context, userID int64, amount int64) error {
	return r.creditBalance(r.db.WithContext(ctx), userID, amount)
}

func (r *Repository) DebitBalance(ctx context.Context, userID int64, amount int64) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("telegram_id = ?", userID).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return fmt.Errorf("failed to debit balance for user %d: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %d not found for debit", userID)
	}
	return nil
}

// creditBalance runs on the given handle so settlements can credit
// inside their own DB transaction. A missing row is created at zero
// before the increment.
func (r *Repository) creditBalance(db *gorm.DB, userID int64, amount int64) error {
	err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.User{TelegramID: userID}).Error
	if err != nil {
		return fmt.Errorf("failed to ensure balance row for user %d: %w", userID, err)
	}

	res := db.Model(&models.User{}).
		Where("telegram_id = ?", userID).
		Update("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return fmt.Errorf("failed to credit balance for user %d: %w", userID, res.Error)
	}
	return nil
}
