package model

import "time"

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// Valid reports whether the status is one of the known states.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// TaskPriority represents the priority of a task.
type TaskPriority int

const (
	TaskPriorityLow    TaskPriority = 1
	TaskPriorityMedium TaskPriority = 2
	TaskPriorityHigh   TaskPriority = 3
)

// Valid reports whether the priority is one of the known levels.
func (p TaskPriority) Valid() bool {
	return p >= TaskPriorityLow && p <= TaskPriorityHigh
}

// Task represents a single task owned by a user.
type Task struct {
	ID          uint         `json:"id" gorm:"primaryKey"`
	Title       string       `json:"title" gorm:"size:200;not null"`
	Description string       `json:"description,omitempty" gorm:"type:text"`
	Category    string       `json:"category,omitempty" gorm:"size:50"`
	Status      TaskStatus   `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	Priority    TaskPriority `json:"priority" gorm:"not null;default:2;index"`
	IsCompleted bool         `json:"is_completed" gorm:"not null;default:false;index"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`

	UserID uint `json:"user_id" gorm:"not null;index"`

	// Relations
	Owner User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}
