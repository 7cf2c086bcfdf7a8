package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Service is an offering listed on the marketplace. DurationHours is the
// effort proxy used by the fairness engine; Category holds comma-joined tags.
type Service struct {
	ID            uuid.UUID `gorm:"type:char(36);primaryKey"`
	CompanyID     uuid.UUID `gorm:"type:char(36);index;not null"`
	Title         string    `gorm:"size:200;not null"`
	Description   string    `gorm:"type:text"`
	Category      string    `gorm:"size:255"`
	DurationHours float64   `gorm:"not null"`
	Active        bool      `gorm:"not null;default:true"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

func (Service) TableName() string {
	return "services"
}

// CategoryTags splits the stored comma-joined category string into a clean
// tag slice; empty segments are dropped.
func (s Service) CategoryTags() []string {
	if s.Category == "" {
		return nil
	}
	parts := strings.Split(s.Category, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
