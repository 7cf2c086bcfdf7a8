package model

import (
	"time"

	"github.com/google/uuid"
)

type DealStatus string

const (
	DealStatusInProgress DealStatus = "in_progress"
	DealStatusCompleted  DealStatus = "completed"
)

// ActiveDeal is the execution record spawned by an accepted proposal, exactly
// one per proposal. It completes only once both parties confirmed delivery,
// and never reverts.
type ActiveDeal struct {
	ID                   uuid.UUID  `gorm:"type:char(36);primaryKey"`
	ProposalID           uuid.UUID  `gorm:"type:char(36);uniqueIndex;not null"`
	FromCompanyCompleted bool       `gorm:"not null;default:false"`
	ToCompanyCompleted   bool       `gorm:"not null;default:false"`
	Status               DealStatus `gorm:"size:16;index;not null"`
	CreatedAt            time.Time  `gorm:"not null"`
	CompletedAt          *time.Time
}

func (ActiveDeal) TableName() string {
	return "active_deals"
}
