package repository

import (
	"context"
	"errors"

	"github.com/barterbridge/backend/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReviewRepository interface {
	Create(ctx context.Context, rv *model.Review) error
	Exists(ctx context.Context, dealID uuid.UUID, reviewerUID string, reviewedServiceID uuid.UUID) (bool, error)
	ListByDeal(ctx context.Context, dealID uuid.UUID) ([]model.Review, error)
	ListByService(ctx context.Context, serviceID uuid.UUID) ([]model.Review, error)
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, rv *model.Review) error {
	return r.db.WithContext(ctx).Create(rv).Error
}

func (r *reviewRepository) Exists(ctx context.Context, dealID uuid.UUID, reviewerUID string, reviewedServiceID uuid.UUID) (bool, error) {
	var rv model.Review
	err := r.db.WithContext(ctx).
		Where("deal_id = ? AND reviewer_uid = ? AND reviewed_service_id = ?", dealID, reviewerUID, reviewedServiceID).
		First(&rv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *reviewRepository) ListByDeal(ctx context.Context, dealID uuid.UUID) ([]model.Review, error) {
	var list []model.Review
	if err := r.db.WithContext(ctx).
		Where("deal_id = ?", dealID).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *reviewRepository) ListByService(ctx context.Context, serviceID uuid.UUID) ([]model.Review, error) {
	var list []model.Review
	if err := r.db.WithContext(ctx).
		Where("reviewed_service_id = ?", serviceID).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
