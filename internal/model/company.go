package model

import (
	"time"

	"github.com/google/uuid"
)

type Company struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	Name      string    `gorm:"size:120;not null"`
	JoinCode  *string   `gorm:"size:32;uniqueIndex"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Company) TableName() string {
	return "companies"
}
