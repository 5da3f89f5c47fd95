package models

import "gorm.io/gorm"

// Notification types
const (
	NotificationTaskAssigned      = "TASK_ASSIGNED"
	NotificationTaskStatusUpdated = "TASK_STATUS_UPDATED"
	NotificationTaskUpdate        = "TASK_UPDATE"
	NotificationTeamUpdate        = "TEAM_UPDATE"
	NotificationMemberAdded       = "MEMBER_ADDED"
	NotificationMemberRemoved     = "MEMBER_REMOVED"
)

// Notification is a per-recipient record produced by the fan-out
// dispatcher as a side effect of task and team mutations. It is only
// ever mutated to flip IsRead, and can be deleted by its recipient once
// read.
type Notification struct {
	gorm.Model
	RecipientID uint  `gorm:"not null;index" json:"recipient_id"`
	SenderID    uint  `gorm:"not null" json:"sender_id"`
	TeamID      *uint `json:"team_id,omitempty"`

	Type    string `gorm:"not null" json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	IsRead  bool   `gorm:"default:false" json:"is_read"`

	// Relations
	Sender User `json:"sender,omitempty"`
}
