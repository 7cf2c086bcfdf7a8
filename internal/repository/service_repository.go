package repository

import (
	"context"

	"github.com/barterbridge/backend/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ServiceRepository interface {
	Create(ctx context.Context, svc *model.Service) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Service, error)
	Update(ctx context.Context, svc *model.Service) error
	List(ctx context.Context, category string, limit, offset int) ([]model.Service, int64, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]model.Service, error)
	HasOpenProposal(ctx context.Context, serviceID uuid.UUID) (bool, error)
}

type serviceRepository struct {
	db *gorm.DB
}

func NewServiceRepository(db *gorm.DB) ServiceRepository {
	return &serviceRepository{db: db}
}

func (r *serviceRepository) Create(ctx context.Context, svc *model.Service) error {
	return r.db.WithContext(ctx).Create(svc).Error
}

func (r *serviceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Service, error) {
	var svc model.Service
	if err := r.db.WithContext(ctx).First(&svc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *serviceRepository) Update(ctx context.Context, svc *model.Service) error {
	return r.db.WithContext(ctx).Save(svc).Error
}

func (r *serviceRepository) List(ctx context.Context, category string, limit, offset int) ([]model.Service, int64, error) {
	var (
		list  []model.Service
		total int64
	)
	q := r.db.WithContext(ctx).Model(&model.Service{}).Where("active = ?", true)
	if category != "" {
		q = q.Where("category LIKE ?", "%"+category+"%")
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *serviceRepository) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]model.Service, error) {
	var list []model.Service
	if err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// HasOpenProposal reports whether the service sits on either side of a
// matched or pending proposal; such services stay immutable.
func (r *serviceRepository) HasOpenProposal(ctx context.Context, serviceID uuid.UUID) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.DealProposal{}).
		Where("status IN ?", []model.ProposalStatus{model.ProposalStatusMatched, model.ProposalStatusPending}).
		Where("from_service_id = ? OR to_service_id = ?", serviceID, serviceID).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}
