package models

import (
	"time"

	"gorm.io/gorm"
)

// Task status values
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "inprogress"
	TaskStatusCompleted  = "completed"
)

// Task priority values
const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
)

// Task represents a unit of work assigned to one or more users
type Task struct {
	gorm.Model

	// Task details
	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	Status      string     `gorm:"default:'todo'" json:"status"`     // todo, inprogress, completed
	Priority    string     `gorm:"default:'medium'" json:"priority"` // low, medium, high

	// CreatedByID is immutable; the creator authorizes deletion and
	// destructive edits.
	CreatedByID uint  `gorm:"not null;index" json:"created_by_id"`
	TeamID      *uint `gorm:"index" json:"team_id,omitempty"`

	// Relations
	CreatedBy   User             `json:"created_by,omitempty"`
	Team        *Team            `json:"team,omitempty"`
	Assignees   []TaskAssignee   `gorm:"foreignKey:TaskID" json:"assignees,omitempty"`
	Comments    []TaskComment    `gorm:"foreignKey:TaskID" json:"comments,omitempty"`
	Attachments []TaskAttachment `gorm:"foreignKey:TaskID" json:"attachments,omitempty"`
}

// TaskAssignee links a task to one assigned user. Every task keeps at
// least one of these rows.
type TaskAssignee struct {
	gorm.Model
	TaskID uint `gorm:"not null;index" json:"task_id"`
	UserID uint `gorm:"not null;index" json:"user_id"`

	// Relations
	User User `json:"user,omitempty"`
}

// TaskComment is an append-only comment on a task, deletable only by
// its author
type TaskComment struct {
	gorm.Model
	TaskID      uint   `gorm:"not null;index" json:"task_id"`
	Text        string `gorm:"not null" json:"text"`
	CreatedByID uint   `gorm:"not null" json:"created_by_id"`

	// Relations
	CreatedBy User `json:"created_by,omitempty"`
}

// TaskAttachment holds an opaque file reference attached to a task
type TaskAttachment struct {
	gorm.Model
	TaskID   uint   `gorm:"not null;index" json:"task_id"`
	FileName string `json:"file_name"`
	FileURL  string `gorm:"not null" json:"file_url"`
}

// IsAssignee reports whether userID is in the task's assignee set.
// Assignees must be preloaded.
func (t *Task) IsAssignee(userID uint) bool {
	for _, a := range t.Assignees {
		if a.UserID == userID {
			return true
		}
	}
	return false
}

// AssigneeIDs returns the user ids in the assignee set. Assignees must
// be preloaded.
func (t *Task) AssigneeIDs() []uint {
	ids := make([]uint, 0, len(t.Assignees))
	for _, a := range t.Assignees {
		ids = append(ids, a.UserID)
	}
	return ids
}

// ValidTaskStatus reports whether s is a recognized status value.
func ValidTaskStatus(s string) bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// ValidTaskPriority reports whether p is a recognized priority value.
func ValidTaskPriority(p string) bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}
