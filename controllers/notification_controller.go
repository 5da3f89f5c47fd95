package controller

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"taskhive/models"
	"taskhive/utils"
)

type NotificationController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewNotificationController(db *gorm.DB, logger *log.Logger) *NotificationController {
	return &NotificationController{
		DB:     db,
		Logger: logger,
	}
}

type NotificationPage struct {
	Notifications []models.Notification `json:"notifications"`
	Page          int                   `json:"page"`
	TotalPages    int                   `json:"total_pages"`
	UnreadCount   int64                 `json:"unread_count"`
}

// GetNotifications returns the actor's notifications newest-first with
// the unread count.
func (nc *NotificationController) GetNotifications(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var total int64
	if err := nc.DB.Model(&models.Notification{}).
		Where("recipient_id = ?", user.ID).
		Count(&total).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count notifications", nil)
	}

	var unread int64
	if err := nc.DB.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", user.ID, false).
		Count(&unread).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to count notifications", nil)
	}

	var notifications []models.Notification
	if err := nc.DB.
		Where("recipient_id = ?", user.ID).
		Preload("Sender").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&notifications).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list notifications", nil)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	return c.JSON(utils.SuccessResponse(NotificationPage{
		Notifications: notifications,
		Page:          page,
		TotalPages:    totalPages,
		UnreadCount:   unread,
	}))
}

// MarkRead flips a notification to read. Idempotent; only the recipient
// can see or touch it.
func (nc *NotificationController) MarkRead(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id := utils.ParseUint(c.Params("id"))

	var notification models.Notification
	if err := nc.DB.Where("recipient_id = ?", user.ID).First(&notification, id).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Notification not found", nil)
	}

	if !notification.IsRead {
		if err := nc.DB.Model(&notification).Update("is_read", true).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update notification", nil)
		}
	}

	return c.JSON(utils.SuccessResponse(notification))
}

// MarkAllRead flips every unread notification of the actor. Idempotent.
func (nc *NotificationController) MarkAllRead(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	if err := nc.DB.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", user.ID, false).
		Update("is_read", true).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update notifications", nil)
	}

	return c.JSON(utils.MessageResponse("All notifications marked as read"))
}

// DeleteNotification removes a read notification. Unread notifications
// cannot be deleted.
func (nc *NotificationController) DeleteNotification(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	id := utils.ParseUint(c.Params("id"))

	var notification models.Notification
	if err := nc.DB.Where("recipient_id = ?", user.ID).First(&notification, id).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Notification not found", nil)
	}

	if !notification.IsRead {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Unread notifications cannot be deleted", nil)
	}

	if err := nc.DB.Unscoped().Delete(&notification).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete notification", nil)
	}

	return c.JSON(utils.MessageResponse("Notification deleted"))
}
