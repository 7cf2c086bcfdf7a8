package repository

import (
	"context"
	"time"

	"github.com/barterbridge/backend/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TradeflowViewRepository interface {
	MarkViewed(ctx context.Context, companyID uuid.UUID, userUID, section string, at time.Time) error
	LastViewedTimes(ctx context.Context, companyID uuid.UUID, userUID string) (map[string]time.Time, error)
}

type tradeflowViewRepository struct {
	db *gorm.DB
}

func NewTradeflowViewRepository(db *gorm.DB) TradeflowViewRepository {
	return &tradeflowViewRepository{db: db}
}

func (r *tradeflowViewRepository) MarkViewed(ctx context.Context, companyID uuid.UUID, userUID, section string, at time.Time) error {
	view := model.TradeflowView{
		ID:           uuid.New(),
		CompanyID:    companyID,
		UserUID:      userUID,
		Section:      section,
		LastViewedAt: at,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "company_id"}, {Name: "user_uid"}, {Name: "section"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"last_viewed_at": at}),
		}).
		Create(&view).Error
}

func (r *tradeflowViewRepository) LastViewedTimes(ctx context.Context, companyID uuid.UUID, userUID string) (map[string]time.Time, error) {
	var views []model.TradeflowView
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND user_uid = ?", companyID, userUID).
		Find(&views).Error; err != nil {
		return nil, err
	}
	out := make(map[string]time.Time, len(views))
	for _, v := range views {
		out[v.Section] = v.LastViewedAt
	}
	return out, nil
}
