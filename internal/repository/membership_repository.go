package repository

import (
	"context"
	"errors"

	"github.com/barterbridge/backend/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MembershipRepository interface {
	Find(ctx context.Context, companyID uuid.UUID, userUID string) (*model.CompanyMember, error)
	IsMember(ctx context.Context, companyID uuid.UUID, userUID string) (bool, error)
}

type membershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

func (r *membershipRepository) Find(ctx context.Context, companyID uuid.UUID, userUID string) (*model.CompanyMember, error) {
	var m model.CompanyMember
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND user_uid = ?", companyID, userUID).
		First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *membershipRepository) IsMember(ctx context.Context, companyID uuid.UUID, userUID string) (bool, error) {
	_, err := r.Find(ctx, companyID, userUID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
