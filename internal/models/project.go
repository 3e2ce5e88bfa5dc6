package models

import (
	"time"

	"gorm.io/gorm"
)

type Project struct {
	gorm.Model

	Name             string `gorm:"not null"`
	Description      string
	Location         string `gorm:"not null"`
	Address          string
	Budget           *float64
	StartDate        *time.Time
	EstimatedEndDate *time.Time
	ActualEndDate    *time.Time
	Status           string `gorm:"not null;default:planning"` // "planning", "active", "on_hold", "completed", "cancelled"
	CreatedBy        uint   `gorm:"not null;index"`

	// Relationships
	Creator User            `gorm:"foreignKey:CreatedBy;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Members []ProjectMember `gorm:"foreignKey:ProjectID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Tasks   []Task          `gorm:"foreignKey:ProjectID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
