package repository

import (
	"context"

	"github.com/barterbridge/backend/internal/model"
	"gorm.io/gorm"
)

type ViewEventRepository interface {
	Create(ctx context.Context, ev *model.ServiceViewEvent) error
}

type viewEventRepository struct {
	db *gorm.DB
}

func NewViewEventRepository(db *gorm.DB) ViewEventRepository {
	return &viewEventRepository{db: db}
}

func (r *viewEventRepository) Create(ctx context.Context, ev *model.ServiceViewEvent) error {
	return r.db.WithContext(ctx).Create(ev).Error
}
