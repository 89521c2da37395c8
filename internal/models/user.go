package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a player account. CharacterName is what other members see.
type User struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Username      string         `gorm:"uniqueIndex;size:100;not null" json:"username"`
	CharacterName string         `gorm:"size:200" json:"character_name"`
	CharacterID   *int64         `gorm:"index" json:"character_id"`
	Role          string         `gorm:"size:50;default:user" json:"role"` // admin, user
	IsActive      bool           `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }
