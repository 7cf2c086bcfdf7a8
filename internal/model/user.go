package model

import "time"

type User struct {
	UID       string    `gorm:"primaryKey;size:128"`
	Username  string    `gorm:"size:120;not null;uniqueIndex"`
	Email     string    `gorm:"size:255"`
	JobTitle  string    `gorm:"size:255"`
	Location  string    `gorm:"size:255"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
