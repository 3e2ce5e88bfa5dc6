package models

import (
	"time"

	"gorm.io/gorm"
)

type Task struct {
	gorm.Model

	ProjectID      uint   `gorm:"not null;index"`
	Title          string `gorm:"not null"`
	Description    string
	Status         string `gorm:"not null;default:todo"`   // "todo", "in_progress", "completed"
	Priority       string `gorm:"not null;default:medium"` // "low", "medium", "high", "urgent"
	AssignedTo     *uint  `gorm:"index"`
	DueDate        *time.Time
	EstimatedHours *float64
	ActualHours    *float64
	DependsOn      *uint
	Location       string
	CreatedBy      uint `gorm:"not null"`
	CompletedAt    *time.Time

	// Relationships
	Project  Project `gorm:"foreignKey:ProjectID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Assignee *User   `gorm:"foreignKey:AssignedTo;constraint:OnUpdate:Cascade,OnDelete:SET NULL"`
	Creator  User    `gorm:"foreignKey:CreatedBy;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Blocker  *Task   `gorm:"foreignKey:DependsOn;constraint:OnUpdate:Cascade,OnDelete:SET NULL"`
}
