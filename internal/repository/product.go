package repository

import (
	"context"
	"errors"

	"github.com/yusufpr/akrab_bot/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *Repository) GetOverride(ctx context.Context, code string) (*models.ProductOverride, error) {
	var override models.ProductOverride
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&override).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &override, nil
}

func (r *Repository) SetOverridePrice(ctx context.Context, code string, price int64) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"price"}),
	}).Create(&models.ProductOverride{Code: code, Price: price}).Error
}

func (r *Repository) SetOverrideDescription(ctx context.Context, code string, description string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"description"}),
	}).Create(&models.ProductOverride{Code: code, Description: description}).Error
}

func (r *Repository) ListOverrides(ctx context.Context) ([]models.ProductOverride, error) {
	var overrides []models.ProductOverride
	err := r.db.WithContext(ctx).Find(&overrides).Error
	if err != nil {
		return nil, err
	}
	return overrides, nil
}
