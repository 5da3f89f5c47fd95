package controller

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"taskhive/models"
	"taskhive/utils"
)

type DashboardController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewDashboardController(db *gorm.DB, logger *log.Logger) *DashboardController {
	return &DashboardController{
		DB:     db,
		Logger: logger,
	}
}

type WidgetInput struct {
	Type     string                 `json:"type" validate:"required,oneof=tasks calendar teams activity"`
	X        int                    `json:"x" validate:"min=0"`
	Y        int                    `json:"y" validate:"min=0"`
	W        int                    `json:"w" validate:"min=1"`
	H        int                    `json:"h" validate:"min=1"`
	Settings map[string]interface{} `json:"settings"`
}

type UpdateDashboardRequest struct {
	Layout  *string                `json:"layout" validate:"omitempty,oneof=grid list"`
	Theme   *string                `json:"theme" validate:"omitempty,oneof=light dark"`
	Filters map[string]interface{} `json:"filters"`
	Widgets []WidgetInput          `json:"widgets" validate:"omitempty,dive"`
}

type DashboardSummary struct {
	TasksByStatus   map[string]int64 `json:"tasks_by_status"`
	TasksByPriority map[string]int64 `json:"tasks_by_priority"`
	UpcomingTasks   []models.Task    `json:"upcoming_tasks"`
	Teams           []models.Team    `json:"teams"`
}

// GetDashboard returns the actor's dashboard, creating it with the
// default widget layout on first access.
func (dc *DashboardController) GetDashboard(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	dashboard, err := dc.getOrCreate(user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load dashboard", nil)
	}

	return c.JSON(utils.SuccessResponse(dashboard))
}

// UpdateDashboard partially merges layout, theme, filters, and widgets.
func (dc *DashboardController) UpdateDashboard(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req UpdateDashboardRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	dashboard, err := dc.getOrCreate(user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load dashboard", nil)
	}

	updates := map[string]interface{}{}
	if req.Layout != nil {
		updates["layout"] = *req.Layout
	}
	if req.Theme != nil {
		updates["theme"] = *req.Theme
	}
	if req.Filters != nil {
		dashboard.Filters = req.Filters
		if err := dc.DB.Model(dashboard).Update("filters", dashboard.Filters).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update dashboard", nil)
		}
	}
	if len(updates) > 0 {
		if err := dc.DB.Model(dashboard).Updates(updates).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update dashboard", nil)
		}
	}

	if req.Widgets != nil {
		if err := dc.DB.Unscoped().Where("dashboard_id = ?", dashboard.ID).Delete(&models.DashboardWidget{}).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update widgets", nil)
		}
		for _, w := range req.Widgets {
			widget := models.DashboardWidget{
				DashboardID: dashboard.ID,
				Type:        w.Type,
				X:           w.X,
				Y:           w.Y,
				W:           w.W,
				H:           w.H,
				Settings:    w.Settings,
			}
			if err := dc.DB.Create(&widget).Error; err != nil {
				return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update widgets", nil)
			}
		}
	}

	dashboard, err = dc.getOrCreate(user.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load dashboard", nil)
	}
	return c.JSON(utils.SuccessResponse(dashboard))
}

// GetSummary computes read-only aggregates over the actor's tasks and
// teams. The result is a point-in-time snapshot, not transactional.
func (dc *DashboardController) GetSummary(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	assignedSub := dc.DB.Model(&models.TaskAssignee{}).
		Select("task_id").
		Where("user_id = ?", user.ID)

	summary := DashboardSummary{
		TasksByStatus:   make(map[string]int64),
		TasksByPriority: make(map[string]int64),
	}

	// Task counts by status, for tasks where the actor is assignee or
	// creator
	var statusRows []struct {
		Status string
		Count  int64
	}
	if err := dc.DB.Model(&models.Task{}).
		Select("status, COUNT(*) as count").
		Where("created_by_id = ? OR id IN (?)", user.ID, assignedSub).
		Group("status").
		Scan(&statusRows).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to aggregate tasks", nil)
	}
	for _, row := range statusRows {
		summary.TasksByStatus[row.Status] = row.Count
	}

	// Task counts by priority, assignee only
	var priorityRows []struct {
		Priority string
		Count    int64
	}
	if err := dc.DB.Model(&models.Task{}).
		Select("priority, COUNT(*) as count").
		Where("id IN (?)", assignedSub).
		Group("priority").
		Scan(&priorityRows).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to aggregate tasks", nil)
	}
	for _, row := range priorityRows {
		summary.TasksByPriority[row.Priority] = row.Count
	}

	// Tasks assigned to the actor due within the next 7 days
	now := time.Now()
	if err := dc.DB.Model(&models.Task{}).
		Where("id IN (?) AND due_date IS NOT NULL AND due_date BETWEEN ? AND ?",
			dc.DB.Model(&models.TaskAssignee{}).Select("task_id").Where("user_id = ?", user.ID),
			now, now.Add(7*24*time.Hour)).
		Order("due_date ASC").
		Limit(5).
		Find(&summary.UpcomingTasks).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load upcoming tasks", nil)
	}

	// Teams the actor belongs to
	if err := dc.DB.
		Joins("JOIN team_members ON team_members.team_id = teams.id").
		Where("team_members.user_id = ?", user.ID).
		Find(&summary.Teams).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load teams", nil)
	}

	return c.JSON(utils.SuccessResponse(summary))
}

func (dc *DashboardController) getOrCreate(userID uint) (*models.Dashboard, error) {
	var dashboard models.Dashboard
	err := dc.DB.Preload("Widgets").Where("user_id = ?", userID).First(&dashboard).Error
	if err == nil {
		return &dashboard, nil
	}
	if !errIsNotFound(err) {
		return nil, err
	}

	dashboard = models.Dashboard{
		UserID:  userID,
		Layout:  models.DashboardLayoutGrid,
		Theme:   "light",
		Widgets: models.DefaultWidgets(),
	}
	if err := dc.DB.Create(&dashboard).Error; err != nil {
		return nil, err
	}
	return &dashboard, nil
}
