package model

import (
	"time"

	"github.com/google/uuid"
)

type TradeRequestStatus string

const (
	TradeRequestStatusActive   TradeRequestStatus = "active"
	TradeRequestStatusArchived TradeRequestStatus = "archived"
)

// TradeRequest is a company expressing interest in another company's service.
// ExpiresAt is informational: expired rows are not swept to archived.
type TradeRequest struct {
	ID                  uuid.UUID          `gorm:"type:char(36);primaryKey"`
	RequestingCompanyID uuid.UUID          `gorm:"type:char(36);index;not null"`
	RequestedServiceID  uuid.UUID          `gorm:"type:char(36);index;not null"`
	ValidityDays        int                `gorm:"not null"`
	Status              TradeRequestStatus `gorm:"size:16;index;not null"`
	CreatedAt           time.Time          `gorm:"not null"`
	ExpiresAt           time.Time          `gorm:"not null"`
	ArchivedAt          *time.Time
}

func (TradeRequest) TableName() string {
	return "trade_requests"
}
