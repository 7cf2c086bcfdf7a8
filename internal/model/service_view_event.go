package model

import (
	"time"

	"github.com/google/uuid"
)

// ServiceViewEvent is one row per marketplace detail-page visit. Append-only;
// feeds the demand signal of the fairness engine.
type ServiceViewEvent struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	ServiceID uuid.UUID `gorm:"type:char(36);index;not null"`
	ViewedAt  time.Time `gorm:"not null"`
}

func (ServiceViewEvent) TableName() string {
	return "service_view_events"
}
