package model

import (
	"time"

	"github.com/google/uuid"
)

// Tradeflow section tags used for unread badges.
const (
	SectionIncoming           = "incoming"
	SectionYouRequested       = "you_requested"
	SectionArchived           = "archived"
	SectionMatches            = "matches"
	SectionAwaitingSignature  = "awaiting_signature"
	SectionAwaitingOtherParty = "awaiting_other_party"
	SectionOngoing            = "ongoing"
	SectionCompleted          = "completed"
)

// TradeflowView marks when a user last opened a tradeflow section for a
// company. Pure read-marker; not part of the negotiation logic.
type TradeflowView struct {
	ID           uuid.UUID `gorm:"type:char(36);primaryKey"`
	CompanyID    uuid.UUID `gorm:"type:char(36);index:idx_view_company_user_section,unique;not null"`
	UserUID      string    `gorm:"size:128;index:idx_view_company_user_section,unique;not null"`
	Section      string    `gorm:"size:32;index:idx_view_company_user_section,unique;not null"`
	LastViewedAt time.Time `gorm:"not null"`
}

func (TradeflowView) TableName() string {
	return "tradeflow_views"
}
