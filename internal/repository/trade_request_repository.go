package repository

import (
	"context"
	"time"

	"github.com/barterbridge/backend/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TradeRequestRepository interface {
	Create(ctx context.Context, req *model.TradeRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.TradeRequest, error)
	Archive(ctx context.Context, id uuid.UUID, at time.Time) error
	ListIncoming(ctx context.Context, companyID uuid.UUID) ([]model.TradeRequest, error)
	ListByRequester(ctx context.Context, companyID uuid.UUID) ([]model.TradeRequest, error)
	ListArchived(ctx context.Context, companyID uuid.UUID) ([]model.TradeRequest, error)
	CountIncomingAfter(ctx context.Context, companyID uuid.UUID, after time.Time) (int64, error)
	CountRequestedAfter(ctx context.Context, companyID uuid.UUID, after time.Time) (int64, error)
	CountArchivedAfter(ctx context.Context, companyID uuid.UUID, after time.Time) (int64, error)
}

type tradeRequestRepository struct {
	db *gorm.DB
}

func NewTradeRequestRepository(db *gorm.DB) TradeRequestRepository {
	return &tradeRequestRepository{db: db}
}

func (r *tradeRequestRepository) Create(ctx context.Context, req *model.TradeRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *tradeRequestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.TradeRequest, error) {
	var req model.TradeRequest
	if err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *tradeRequestRepository) Archive(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.TradeRequest{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      model.TradeRequestStatusArchived,
			"archived_at": at,
		}).Error
}

// ListIncoming returns active requests targeting any of the company's
// services.
func (r *tradeRequestRepository) ListIncoming(ctx context.Context, companyID uuid.UUID) ([]model.TradeRequest, error) {
	var list []model.TradeRequest
	if err := r.db.WithContext(ctx).
		Select("trade_requests.*").
		Joins("JOIN services ON services.id = trade_requests.requested_service_id").
		Where("services.company_id = ? AND trade_requests.status = ?", companyID, model.TradeRequestStatusActive).
		Order("trade_requests.created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *tradeRequestRepository) ListByRequester(ctx context.Context, companyID uuid.UUID) ([]model.TradeRequest, error) {
	var list []model.TradeRequest
	if err := r.db.WithContext(ctx).
		Where("requesting_company_id = ? AND status = ?", companyID, model.TradeRequestStatusActive).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// ListArchived covers both directions: requests the company sent and requests
// that targeted its services.
func (r *tradeRequestRepository) ListArchived(ctx context.Context, companyID uuid.UUID) ([]model.TradeRequest, error) {
	var list []model.TradeRequest
	if err := r.db.WithContext(ctx).
		Select("trade_requests.*").
		Joins("JOIN services ON services.id = trade_requests.requested_service_id").
		Where("trade_requests.status = ?", model.TradeRequestStatusArchived).
		Where("trade_requests.requesting_company_id = ? OR services.company_id = ?", companyID, companyID).
		Order("trade_requests.archived_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *tradeRequestRepository) CountIncomingAfter(ctx context.Context, companyID uuid.UUID, after time.Time) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&model.TradeRequest{}).
		Joins("JOIN services ON services.id = trade_requests.requested_service_id").
		Where("services.company_id = ? AND trade_requests.status = ? AND trade_requests.created_at > ?",
			companyID, model.TradeRequestStatusActive, after).
		Count(&cnt).Error
	return cnt, err
}

func (r *tradeRequestRepository) CountRequestedAfter(ctx context.Context, companyID uuid.UUID, after time.Time) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&model.TradeRequest{}).
		Where("requesting_company_id = ? AND status = ? AND created_at > ?",
			companyID, model.TradeRequestStatusActive, after).
		Count(&cnt).Error
	return cnt, err
}

// CountArchivedAfter falls back to created_at for rows archived before the
// archived_at column existed.
func (r *tradeRequestRepository) CountArchivedAfter(ctx context.Context, companyID uuid.UUID, after time.Time) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&model.TradeRequest{}).
		Joins("JOIN services ON services.id = trade_requests.requested_service_id").
		Where("trade_requests.status = ?", model.TradeRequestStatusArchived).
		Where("trade_requests.requesting_company_id = ? OR services.company_id = ?", companyID, companyID).
		Where("COALESCE(trade_requests.archived_at, trade_requests.created_at) > ?", after).
		Count(&cnt).Error
	return cnt, err
}
