package models

import "gorm.io/gorm"

type Notification struct {
	gorm.Model

	UserID    uint   `gorm:"not null;index"`
	Type      string `gorm:"not null"` // "project_invite", "task_assigned", "project_updated", "task_updated", "deadline_reminder"
	Title     string `gorm:"not null"`
	Message   string
	Link      string
	ProjectID *uint `gorm:"index"`
	TaskID    *uint
	Read      bool `gorm:"not null;default:false"`

	// Relationships
	User User `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
