package models

import (
	"time"

	"gorm.io/gorm"
)

// Roles a TeamMember can hold
const (
	TeamRoleMember = "member"
	TeamRoleAdmin  = "admin"
)

// Team represents a collaboration group owned by its leader
type Team struct {
	gorm.Model
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	AvatarURL   string `json:"avatar_url,omitempty"`

	// LeaderID is set at creation and never changes. Leadership and
	// membership are independent facts: leader checks must read this
	// field, never the members list.
	LeaderID uint   `gorm:"not null;index" json:"leader_id"`
	TeamCode string `gorm:"uniqueIndex;not null" json:"team_code"`
	IsActive bool   `gorm:"default:true" json:"is_active"`

	// Relations
	Leader  User         `json:"leader,omitempty"`
	Members []TeamMember `gorm:"foreignKey:TeamID" json:"members,omitempty"`
}

// TeamMember represents team members and their roles
type TeamMember struct {
	gorm.Model
	TeamID   uint      `gorm:"not null;index" json:"team_id"`
	UserID   uint      `gorm:"not null;index" json:"user_id"`
	Role     string    `gorm:"default:'member'" json:"role"` // member, admin
	JoinedAt time.Time `json:"joined_at"`

	// Relations
	User User `json:"user,omitempty"`
}

// IsLeader reports whether userID is the team leader.
func (t *Team) IsLeader(userID uint) bool {
	return t.LeaderID == userID
}

// MemberRole returns the role userID holds in the members list, if any.
// Members must be preloaded.
func (t *Team) MemberRole(userID uint) (string, bool) {
	for _, m := range t.Members {
		if m.UserID == userID {
			return m.Role, true
		}
	}
	return "", false
}

// IsAdmin reports whether userID holds role=admin in the members list.
func (t *Team) IsAdmin(userID uint) bool {
	role, ok := t.MemberRole(userID)
	return ok && role == TeamRoleAdmin
}

// MemberIDs returns the user ids of every member. Members must be
// preloaded.
func (t *Team) MemberIDs() []uint {
	ids := make([]uint, 0, len(t.Members))
	for _, m := range t.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}
