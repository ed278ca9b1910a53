package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "Pending"
	TaskStatusInProgress TaskStatus = "In Progress"
	TaskStatusCompleted  TaskStatus = "Completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "Low"
	TaskPriorityMedium TaskPriority = "Medium"
	TaskPriorityHigh   TaskPriority = "High"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

type Task struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	Title        string         `gorm:"type:varchar(200);not null" json:"title"`
	Description  string         `gorm:"type:text" json:"description"`
	DueDate      time.Time      `gorm:"not null;index" json:"due_date"`
	Priority     TaskPriority   `gorm:"type:varchar(10);not null;default:'Medium';index" json:"priority"`
	Status       TaskStatus     `gorm:"type:varchar(20);not null;default:'Pending';index" json:"status"`
	CreatedByID  uint64         `gorm:"not null;index" json:"created_by"`
	AssignedToID uint64         `gorm:"not null;index" json:"assigned_to"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Creator  User `gorm:"foreignKey:CreatedByID" json:"creator,omitempty"`
	Assignee User `gorm:"foreignKey:AssignedToID" json:"assignee,omitempty"`
}
