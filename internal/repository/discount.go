package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/declared-as-ala/backend/internal/model"
)

type DiscountRepository interface {
	// FindActiveByCode returns (nil, nil) when the code is unknown,
	// inactive or expired.
	FindActiveByCode(ctx context.Context, code string) (*model.Discount, error)
}

type discountRepoImpl struct {
	db *gorm.DB
}

func NewDiscountRepository(db *gorm.DB) DiscountRepository {
	return &discountRepoImpl{
		db: db,
	}
}

func (r *discountRepoImpl) FindActiveByCode(ctx context.Context, code string) (*model.Discount, error) {
	var discount model.Discount
	err := r.db.WithContext(ctx).
		Where("code = ? AND active = ?", code, true).
		First(&discount).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if discount.ExpiresAt != nil && discount.ExpiresAt.Before(time.Now()) {
		return nil, nil
	}

	return &discount, nil
}
