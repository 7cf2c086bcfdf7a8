package model

import (
	"time"

	"github.com/google/uuid"
)

type CompanyMember struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	CompanyID uuid.UUID `gorm:"type:char(36);index:idx_member_company_user,unique;not null"`
	UserUID   string    `gorm:"size:128;index:idx_member_company_user,unique;not null"`
	Role      string    `gorm:"size:64"`
	IsAdmin   bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (CompanyMember) TableName() string {
	return "company_members"
}
