package models

import "gorm.io/gorm"

// Dashboard layout values
const (
	DashboardLayoutGrid = "grid"
	DashboardLayoutList = "list"
)

// Dashboard widget types
const (
	WidgetTasks    = "tasks"
	WidgetCalendar = "calendar"
	WidgetTeams    = "teams"
	WidgetActivity = "activity"
)

// Dashboard holds per-user presentation state, auto-created with
// defaults on first access
type Dashboard struct {
	gorm.Model
	UserID uint   `gorm:"uniqueIndex;not null" json:"user_id"`
	Layout string `gorm:"default:'grid'" json:"layout"` // grid, list
	Theme  string `gorm:"default:'light'" json:"theme"` // light, dark

	Filters map[string]interface{} `gorm:"type:jsonb;serializer:json" json:"filters"`

	// Relations
	Widgets []DashboardWidget `gorm:"foreignKey:DashboardID" json:"widgets,omitempty"`
}

// DashboardWidget is one widget placed on a dashboard grid
type DashboardWidget struct {
	gorm.Model
	DashboardID uint   `gorm:"not null;index" json:"dashboard_id"`
	Type        string `gorm:"not null" json:"type"` // tasks, calendar, teams, activity

	// Grid position and size
	X int `gorm:"default:0" json:"x"`
	Y int `gorm:"default:0" json:"y"`
	W int `gorm:"default:1" json:"w"`
	H int `gorm:"default:1" json:"h"`

	Settings map[string]interface{} `gorm:"type:jsonb;serializer:json" json:"settings"`
}

// DefaultWidgets returns the widget layout a fresh dashboard starts
// with.
func DefaultWidgets() []DashboardWidget {
	return []DashboardWidget{
		{Type: WidgetTasks, X: 0, Y: 0, W: 2, H: 2},
		{Type: WidgetCalendar, X: 2, Y: 0, W: 2, H: 2},
	}
}
