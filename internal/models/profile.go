package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Profile struct {
	gorm.Model

	UserID   uint   `gorm:"not null;uniqueIndex"`
	Email    string `gorm:"not null;index"`
	FullName string `gorm:"not null"`
	Role     string `gorm:"not null"` // "admin", "project_manager", "contractor", "worker"
	Company  string
	Phone    string

	// {"push": bool, "email": bool}; missing keys mean enabled
	NotificationPreferences datatypes.JSON `gorm:"type:jsonb"`

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
