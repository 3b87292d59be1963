package repository

import (
	"context"

	"gorm.io/gorm"
)

func (r *Repository) beginTransaction(ctx context.Context) (*gorm.DB, error) {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		r.logger.Errorf("Failed to start transaction: %v", tx.Error)
		return nil, tx.Error
	}
	return tx, nil
}

func (r *Repository) commit(tx *gorm.DB) error {
	if err := tx.Commit().Error; err != nil {
		r.logger.Errorf("Failed to commit transaction: %v", err)
		return err
	}
	return nil
}

func (r *Repository) rollback(tx *gorm.DB) {
	_ = tx.Rollback().Error
}
