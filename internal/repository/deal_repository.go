package repository

import (
	"context"
	"time"

	"github.com/barterbridge/backend/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DealRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.ActiveDeal, error)
	Update(ctx context.Context, deal *model.ActiveDeal) error
	ListByCompany(ctx context.Context, companyID uuid.UUID, status model.DealStatus) ([]model.ActiveDeal, error)
	CountByCompanyAfter(ctx context.Context, companyID uuid.UUID, status model.DealStatus, after time.Time) (int64, error)
}

type dealRepository struct {
	db *gorm.DB
}

func NewDealRepository(db *gorm.DB) DealRepository {
	return &dealRepository{db: db}
}

func (r *dealRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ActiveDeal, error) {
	var deal model.ActiveDeal
	if err := r.db.WithContext(ctx).First(&deal, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &deal, nil
}

func (r *dealRepository) Update(ctx context.Context, deal *model.ActiveDeal) error {
	return r.db.WithContext(ctx).Save(deal).Error
}

func (r *dealRepository) ListByCompany(ctx context.Context, companyID uuid.UUID, status model.DealStatus) ([]model.ActiveDeal, error) {
	var list []model.ActiveDeal
	if err := r.db.WithContext(ctx).
		Select("active_deals.*").
		Joins("JOIN deal_proposals ON deal_proposals.id = active_deals.proposal_id").
		Where("deal_proposals.from_company_id = ? OR deal_proposals.to_company_id = ?", companyID, companyID).
		Where("active_deals.status = ?", status).
		Order("active_deals.created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *dealRepository) CountByCompanyAfter(ctx context.Context, companyID uuid.UUID, status model.DealStatus, after time.Time) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&model.ActiveDeal{}).
		Joins("JOIN deal_proposals ON deal_proposals.id = active_deals.proposal_id").
		Where("deal_proposals.from_company_id = ? OR deal_proposals.to_company_id = ?", companyID, companyID).
		Where("active_deals.status = ? AND active_deals.created_at > ?", status, after).
		Count(&cnt).Error
	return cnt, err
}
