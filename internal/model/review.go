package model

import (
	"time"

	"github.com/google/uuid"
)

// Review of the service received in a completed deal. The unique index makes
// the one-review-per-(deal, reviewer, service) rule a storage guarantee, not
// just an application check.
type Review struct {
	ID                uuid.UUID `gorm:"type:char(36);primaryKey"`
	DealID            uuid.UUID `gorm:"type:char(36);index:idx_review_once,unique;not null"`
	ReviewerUID       string    `gorm:"size:128;index:idx_review_once,unique;not null"`
	ReviewedServiceID uuid.UUID `gorm:"type:char(36);index:idx_review_once,unique;not null"`
	ReviewedCompanyID uuid.UUID `gorm:"type:char(36);index;not null"`
	Rating            int       `gorm:"not null"`
	Comment           *string   `gorm:"type:text"`
	CreatedAt         time.Time `gorm:"not null"`
}

func (Review) TableName() string {
	return "reviews"
}
