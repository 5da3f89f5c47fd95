package controller

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"taskhive/models"
	"taskhive/utils"
)

type TaskController struct {
	DB       *gorm.DB
	Logger   *log.Logger
	Notifier *utils.Notifier
}

func NewTaskController(db *gorm.DB, logger *log.Logger) *TaskController {
	return &TaskController{
		DB:       db,
		Logger:   logger,
		Notifier: utils.NewNotifier(db),
	}
}

type AttachmentInput struct {
	FileName string `json:"file_name" validate:"omitempty,max=255"`
	FileURL  string `json:"file_url" validate:"required,url"`
}

type CreateTaskRequest struct {
	Title       string            `json:"title" validate:"required,min=1,max=200"`
	Description string            `json:"description" validate:"omitempty,max=2000"`
	DueDate     *time.Time        `json:"due_date"`
	TeamID      *uint             `json:"team_id"`
	AssignedTo  []uint            `json:"assigned_to" validate:"required,min=1"`
	Priority    string            `json:"priority" validate:"omitempty,oneof=low medium high"`
	Status      string            `json:"status" validate:"omitempty,oneof=todo inprogress completed"`
	Attachments []AttachmentInput `json:"attachments" validate:"omitempty,dive"`
}

type UpdateTaskRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	DueDate     *time.Time `json:"due_date"`
	Priority    *string    `json:"priority" validate:"omitempty,oneof=low medium high"`
	Status      *string    `json:"status" validate:"omitempty,oneof=todo inprogress completed"`
	AssignedTo  []uint     `json:"assigned_to"`
}

type UpdateTaskStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=todo inprogress completed"`
}

type AddCommentRequest struct {
	Text string `json:"text" validate:"required"`
}

// CreateTask persists a task and fans out TASK_ASSIGNED to every
// assignee.
func (tc *TaskController) CreateTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	// Task creation within a team requires admin rights or leadership
	if req.TeamID != nil {
		var team models.Team
		if err := tc.DB.Preload("Members").First(&team, *req.TeamID).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
		}
		if !team.IsAdmin(user.ID) && !team.IsLeader(user.ID) {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Only team admins can create tasks", nil)
		}
	}

	assigneeIDs, err := tc.validAssignees(req.AssignedTo)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	status := req.Status
	if status == "" {
		status = models.TaskStatusTodo
	}
	priority := req.Priority
	if priority == "" {
		priority = models.TaskPriorityMedium
	}

	task := models.Task{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Status:      status,
		Priority:    priority,
		CreatedByID: user.ID,
		TeamID:      req.TeamID,
	}
	for _, id := range assigneeIDs {
		task.Assignees = append(task.Assignees, models.TaskAssignee{UserID: id})
	}
	for _, a := range req.Attachments {
		task.Attachments = append(task.Attachments, models.TaskAttachment{
			FileName: a.FileName,
			FileURL:  a.FileURL,
		})
	}

	if err := tc.DB.Create(&task).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create task", nil)
	}

	var pending []utils.PendingNotification
	for _, id := range assigneeIDs {
		pending = append(pending, utils.PendingNotification{
			RecipientID: id,
			SenderID:    user.ID,
			TeamID:      task.TeamID,
			Type:        models.NotificationTaskAssigned,
			Title:       "New task assigned",
			Message:     fmt.Sprintf("%s assigned you the task %q", user.Username, task.Title),
		})
	}
	tc.Notifier.Dispatch(pending)

	loaded, err := tc.loadTask(task.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load task", nil)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(loaded))
}

// GetTasks lists tasks where the actor is creator or assignee, with
// optional status and priority filters.
func (tc *TaskController) GetTasks(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	assignedSub := tc.DB.Model(&models.TaskAssignee{}).
		Select("task_id").
		Where("user_id = ?", user.ID)

	query := tc.DB.Model(&models.Task{}).
		Where("created_by_id = ? OR id IN (?)", user.ID, assignedSub)

	if status := c.Query("status"); status != "" {
		if !models.ValidTaskStatus(status) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid status filter", nil)
		}
		query = query.Where("status = ?", status)
	}
	if priority := c.Query("priority"); priority != "" {
		if !models.ValidTaskPriority(priority) {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid priority filter", nil)
		}
		query = query.Where("priority = ?", priority)
	}

	var tasks []models.Task
	if err := query.
		Preload("Assignees.User").
		Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list tasks", nil)
	}

	return c.JSON(utils.SuccessResponse(tasks))
}

// GetTask returns a task if the actor is its creator, an assignee, or a
// member of its team.
func (tc *TaskController) GetTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	task, err := tc.loadTask(utils.ParseUint(c.Params("id")))
	if err != nil {
		if errIsNotFound(err) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Task not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load task", nil)
	}

	if !tc.canView(task, user.ID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "You do not have access to this task", nil)
	}

	return c.JSON(utils.SuccessResponse(task))
}

// UpdateTaskStatus moves the task to a new status. Creator or assignee
// only. The creator and every assignee are notified, except the actor.
func (tc *TaskController) UpdateTaskStatus(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req UpdateTaskStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	task, err := tc.loadTask(utils.ParseUint(c.Params("id")))
	if err != nil {
		if errIsNotFound(err) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Task not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load task", nil)
	}

	if task.CreatedByID != user.ID && !task.IsAssignee(user.ID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Only the creator or an assignee can update the task status", nil)
	}

	oldStatus := task.Status
	if err := tc.DB.Model(task).Update("status", req.Status).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update status", nil)
	}

	recipients := map[uint]struct{}{task.CreatedByID: {}}
	for _, id := range task.AssigneeIDs() {
		recipients[id] = struct{}{}
	}
	var pending []utils.PendingNotification
	for id := range recipients {
		pending = append(pending, utils.PendingNotification{
			RecipientID: id,
			SenderID:    user.ID,
			TeamID:      task.TeamID,
			Type:        models.NotificationTaskStatusUpdated,
			Title:       "Task status updated",
			Message:     fmt.Sprintf("%s moved %q from %s to %s", user.Username, task.Title, oldStatus, req.Status),
		})
	}
	tc.Notifier.Dispatch(pending)

	return c.JSON(utils.SuccessResponse(task))
}

// UpdateTask applies general field edits. Two fan-out cases: the
// creator changing non-status fields notifies the assignees with the
// changed field names, and a status change notifies assignees plus the
// creator. A status-only change never produces the field-change
// notification.
func (tc *TaskController) UpdateTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	task, err := tc.loadTask(utils.ParseUint(c.Params("id")))
	if err != nil {
		if errIsNotFound(err) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Task not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load task", nil)
	}

	if task.CreatedByID != user.ID && !task.IsAssignee(user.ID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Only the creator or an assignee can update the task", nil)
	}

	updates := map[string]interface{}{}
	var changedFields []string
	if req.Title != nil && *req.Title != task.Title {
		updates["title"] = *req.Title
		changedFields = append(changedFields, "title")
	}
	if req.Description != nil && *req.Description != task.Description {
		updates["description"] = *req.Description
		changedFields = append(changedFields, "description")
	}
	if req.Priority != nil && *req.Priority != task.Priority {
		updates["priority"] = *req.Priority
		changedFields = append(changedFields, "priority")
	}
	if req.DueDate != nil && (task.DueDate == nil || !req.DueDate.Equal(*task.DueDate)) {
		updates["due_date"] = *req.DueDate
		changedFields = append(changedFields, "due date")
	}

	oldStatus := task.Status
	statusChanged := req.Status != nil && *req.Status != task.Status
	if statusChanged {
		updates["status"] = *req.Status
	}

	// Recipients are computed from the assignee set before replacement
	assigneeIDs := task.AssigneeIDs()

	if req.AssignedTo != nil {
		if len(req.AssignedTo) == 0 {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "assigned_to cannot be empty", nil)
		}
		newIDs, err := tc.validAssignees(req.AssignedTo)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
		}
		if err := tc.DB.Unscoped().Where("task_id = ?", task.ID).Delete(&models.TaskAssignee{}).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update assignees", nil)
		}
		for _, id := range newIDs {
			if err := tc.DB.Create(&models.TaskAssignee{TaskID: task.ID, UserID: id}).Error; err != nil {
				return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update assignees", nil)
			}
		}
	}

	if len(updates) > 0 {
		if err := tc.DB.Model(task).Updates(updates).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update task", nil)
		}
	}

	var pending []utils.PendingNotification
	if user.ID == task.CreatedByID && len(changedFields) > 0 {
		message := fmt.Sprintf("%s updated %s on task %q", user.Username, strings.Join(changedFields, ", "), task.Title)
		for _, id := range assigneeIDs {
			pending = append(pending, utils.PendingNotification{
				RecipientID: id,
				SenderID:    user.ID,
				TeamID:      task.TeamID,
				Type:        models.NotificationTaskUpdate,
				Title:       "Task updated",
				Message:     message,
			})
		}
	}
	if statusChanged {
		recipients := map[uint]struct{}{task.CreatedByID: {}}
		for _, id := range assigneeIDs {
			recipients[id] = struct{}{}
		}
		for id := range recipients {
			pending = append(pending, utils.PendingNotification{
				RecipientID: id,
				SenderID:    user.ID,
				TeamID:      task.TeamID,
				Type:        models.NotificationTaskStatusUpdated,
				Title:       "Task status updated",
				Message:     fmt.Sprintf("%s moved %q from %s to %s", user.Username, task.Title, oldStatus, *req.Status),
			})
		}
	}
	tc.Notifier.Dispatch(pending)

	loaded, err := tc.loadTask(task.ID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load task", nil)
	}
	return c.JSON(utils.SuccessResponse(loaded))
}

// AddComment appends a comment. Creator or assignee only; no fan-out.
func (tc *TaskController) AddComment(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req AddCommentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if strings.TrimSpace(req.Text) == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Comment text cannot be blank", nil)
	}

	task, err := tc.loadTask(utils.ParseUint(c.Params("id")))
	if err != nil {
		if errIsNotFound(err) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Task not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load task", nil)
	}

	if task.CreatedByID != user.ID && !task.IsAssignee(user.ID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Only the creator or an assignee can comment on the task", nil)
	}

	comment := models.TaskComment{
		TaskID:      task.ID,
		Text:        req.Text,
		CreatedByID: user.ID,
	}
	if err := tc.DB.Create(&comment).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to add comment", nil)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(comment))
}

// DeleteComment removes a comment. Strictly author-only: creator or
// assignee status is irrelevant here.
func (tc *TaskController) DeleteComment(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	taskID := utils.ParseUint(c.Params("id"))
	commentID := utils.ParseUint(c.Params("commentId"))

	var comment models.TaskComment
	if err := tc.DB.Where("task_id = ?", taskID).First(&comment, commentID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Comment not found", nil)
	}

	if comment.CreatedByID != user.ID {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Only the comment author can delete a comment", nil)
	}

	if err := tc.DB.Unscoped().Delete(&comment).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete comment", nil)
	}

	return c.JSON(utils.MessageResponse("Comment deleted"))
}

// DeleteTask hard-deletes a task with its comments, assignees, and
// attachments. Creator only.
func (tc *TaskController) DeleteTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	task, err := tc.loadTask(utils.ParseUint(c.Params("id")))
	if err != nil {
		if errIsNotFound(err) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Task not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load task", nil)
	}

	if task.CreatedByID != user.ID {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Only the task creator can delete the task", nil)
	}

	if err := tc.DB.Unscoped().Where("task_id = ?", task.ID).Delete(&models.TaskComment{}).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete task comments", nil)
	}
	if err := tc.DB.Unscoped().Where("task_id = ?", task.ID).Delete(&models.TaskAssignee{}).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete task assignees", nil)
	}
	if err := tc.DB.Unscoped().Where("task_id = ?", task.ID).Delete(&models.TaskAttachment{}).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete task attachments", nil)
	}
	if err := tc.DB.Unscoped().Delete(task).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete task", nil)
	}

	return c.JSON(utils.MessageResponse("Task deleted"))
}

// validAssignees deduplicates ids and verifies every referenced user
// exists.
func (tc *TaskController) validAssignees(ids []uint) ([]uint, error) {
	seen := make(map[uint]struct{}, len(ids))
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	var count int64
	if err := tc.DB.Model(&models.User{}).Where("id IN ?", unique).Count(&count).Error; err != nil {
		return nil, err
	}
	if count != int64(len(unique)) {
		return nil, fmt.Errorf("one or more assignees do not exist")
	}
	return unique, nil
}

// canView implements the three-way read check: creator, assignee, or
// member of the task's team.
func (tc *TaskController) canView(task *models.Task, userID uint) bool {
	if task.CreatedByID == userID || task.IsAssignee(userID) {
		return true
	}
	if task.TeamID == nil {
		return false
	}

	var team models.Team
	if err := tc.DB.Preload("Members").First(&team, *task.TeamID).Error; err != nil {
		// Orphaned team reference (team deleted): fall back to
		// creator/assignee access only
		return false
	}
	_, isMember := team.MemberRole(userID)
	return isMember || team.IsLeader(userID)
}

func (tc *TaskController) loadTask(id uint) (*models.Task, error) {
	var task models.Task
	if err := tc.DB.
		Preload("Assignees.User").
		Preload("Comments.CreatedBy").
		Preload("Attachments").
		Preload("CreatedBy").
		First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}
