package controller

import (
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"taskhive/models"
	"taskhive/utils"
)

type TeamController struct {
	DB       *gorm.DB
	Logger   *log.Logger
	Notifier *utils.Notifier
}

func NewTeamController(db *gorm.DB, logger *log.Logger) *TeamController {
	return &TeamController{
		DB:       db,
		Logger:   logger,
		Notifier: utils.NewNotifier(db),
	}
}

type CreateTeamRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"omitempty,max=500"`
	AvatarURL   string `json:"avatar_url" validate:"omitempty,url"`
}

type UpdateTeamRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	AvatarURL   *string `json:"avatar_url" validate:"omitempty,url"`
}

type AddMemberRequest struct {
	UserID uint   `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"omitempty,oneof=member admin"`
}

type JoinTeamRequest struct {
	TeamCode string `json:"team_code" validate:"required"`
}

// CreateTeam creates a team with the actor as leader and sole initial
// admin member.
func (tc *TeamController) CreateTeam(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req CreateTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	code, err := tc.uniqueTeamCode()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate team code", nil)
	}

	team := models.Team{
		Name:        req.Name,
		Description: req.Description,
		AvatarURL:   req.AvatarURL,
		LeaderID:    user.ID,
		TeamCode:    code,
		IsActive:    true,
		Members: []models.TeamMember{
			{UserID: user.ID, Role: models.TeamRoleAdmin, JoinedAt: time.Now()},
		},
	}

	if err := tc.DB.Create(&team).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create team", nil)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(team))
}

// uniqueTeamCode generates a join code and retries on collision with
// the unique index.
func (tc *TeamController) uniqueTeamCode() (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := utils.GenerateTeamCode()
		if err != nil {
			return "", err
		}

		var count int64
		if err := tc.DB.Model(&models.Team{}).Where("team_code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique team code")
}

// GetTeams lists the teams the actor is a member of.
func (tc *TeamController) GetTeams(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var teams []models.Team
	if err := tc.DB.
		Joins("JOIN team_members ON team_members.team_id = teams.id").
		Where("team_members.user_id = ?", user.ID).
		Preload("Members.User").
		Preload("Leader").
		Find(&teams).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list teams", nil)
	}

	return c.JSON(utils.SuccessResponse(teams))
}

// GetTeam returns a team by id. Reads are not membership-checked: any
// authenticated user who knows the id can read the team.
func (tc *TeamController) GetTeam(c *fiber.Ctx) error {
	team, err := tc.loadTeam(c.Params("id"))
	if err != nil {
		if errIsNotFound(err) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load team", nil)
	}

	return c.JSON(utils.SuccessResponse(team))
}

// GetMembers returns the member list of a team.
func (tc *TeamController) GetMembers(c *fiber.Ctx) error {
	team, err := tc.loadTeam(c.Params("id"))
	if err != nil {
		if errIsNotFound(err) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load team", nil)
	}

	return c.JSON(utils.SuccessResponse(team.Members))
}

// UpdateTeam applies leader-only field edits and fans out one
// TEAM_UPDATE per changed field to every member except the actor.
func (tc *TeamController) UpdateTeam(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req UpdateTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	team, err := tc.loadTeam(c.Params("id"))
	if err != nil {
		if errIsNotFound(err) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load team", nil)
	}

	if !team.IsLeader(user.ID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Only the team leader can update the team", nil)
	}

	updates := map[string]interface{}{}
	var changedFields []string
	if req.Name != nil && *req.Name != team.Name {
		updates["name"] = *req.Name
		changedFields = append(changedFields, "name")
	}
	if req.Description != nil && *req.Description != team.Description {
		updates["description"] = *req.Description
		changedFields = append(changedFields, "description")
	}
	if req.AvatarURL != nil && *req.AvatarURL != team.AvatarURL {
		updates["avatar_url"] = *req.AvatarURL
		changedFields = append(changedFields, "avatar")
	}

	if len(updates) > 0 {
		if err := tc.DB.Model(team).Updates(updates).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update team", nil)
		}
	}

	var pending []utils.PendingNotification
	for _, field := range changedFields {
		for _, memberID := range team.MemberIDs() {
			pending = append(pending, utils.PendingNotification{
				RecipientID: memberID,
				SenderID:    user.ID,
				TeamID:      utils.Pointer(team.ID),
				Type:        models.NotificationTeamUpdate,
				Title:       "Team updated",
				Message:     fmt.Sprintf("%s updated the %s of team %s", user.Username, field, team.Name),
			})
		}
	}
	tc.Notifier.Dispatch(pending)

	return c.JSON(utils.SuccessResponse(team))
}

// DeleteTeam hard-deletes the team and its membership rows. Tasks that
// reference the team are left in place.
func (tc *TeamController) DeleteTeam(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	team, err := tc.loadTeam(c.Params("id"))
	if err != nil {
		if errIsNotFound(err) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load team", nil)
	}

	if !team.IsLeader(user.ID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Only the team leader can delete the team", nil)
	}

	if err := tc.DB.Unscoped().Where("team_id = ?", team.ID).Delete(&models.TeamMember{}).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete team members", nil)
	}
	if err := tc.DB.Unscoped().Delete(team).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete team", nil)
	}

	return c.JSON(utils.MessageResponse("Team deleted"))
}

// AddMember appends a user to the team. Only admin members may add.
func (tc *TeamController) AddMember(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req AddMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	team, err := tc.loadTeam(c.Params("id"))
	if err != nil {
		if errIsNotFound(err) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load team", nil)
	}

	if !team.IsAdmin(user.ID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Only team admins can add members", nil)
	}

	var target models.User
	if err := tc.DB.First(&target, req.UserID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "User not found", nil)
	}

	if _, ok := team.MemberRole(target.ID); ok {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "User is already a member of this team", nil)
	}

	role := req.Role
	if role == "" {
		role = models.TeamRoleMember
	}

	member := models.TeamMember{
		TeamID:   team.ID,
		UserID:   target.ID,
		Role:     role,
		JoinedAt: time.Now(),
	}
	if err := tc.DB.Create(&member).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to add member", nil)
	}

	tc.Notifier.Dispatch([]utils.PendingNotification{{
		RecipientID: target.ID,
		SenderID:    user.ID,
		TeamID:      utils.Pointer(team.ID),
		Type:        models.NotificationMemberAdded,
		Title:       "Added to team",
		Message:     fmt.Sprintf("%s added you to team %s", user.Username, team.Name),
	}})

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(member))
}

// RemoveMember removes a member. Leader-only; the leader cannot be
// removed.
func (tc *TeamController) RemoveMember(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	targetID := utils.ParseUint(c.Params("userId"))

	team, err := tc.loadTeam(c.Params("id"))
	if err != nil {
		if errIsNotFound(err) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load team", nil)
	}

	if !team.IsLeader(user.ID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Only the team leader can remove members", nil)
	}
	if team.IsLeader(targetID) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "The team leader cannot be removed", nil)
	}

	var member models.TeamMember
	if err := tc.DB.Where("team_id = ? AND user_id = ?", team.ID, targetID).First(&member).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "User is not a member of this team", nil)
	}

	if err := tc.DB.Unscoped().Delete(&member).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to remove member", nil)
	}

	tc.Notifier.Dispatch([]utils.PendingNotification{{
		RecipientID: targetID,
		SenderID:    user.ID,
		TeamID:      utils.Pointer(team.ID),
		Type:        models.NotificationMemberRemoved,
		Title:       "Removed from team",
		Message:     fmt.Sprintf("%s removed you from team %s", user.Username, team.Name),
	}})

	return c.JSON(utils.MessageResponse("Member removed"))
}

// LeaveTeam removes the actor from the team and notifies the leader.
// The leader cannot leave.
func (tc *TeamController) LeaveTeam(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	team, err := tc.loadTeam(c.Params("id"))
	if err != nil {
		if errIsNotFound(err) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Team not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load team", nil)
	}

	if team.IsLeader(user.ID) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "The team leader cannot leave the team; delete it instead", nil)
	}

	var member models.TeamMember
	if err := tc.DB.Where("team_id = ? AND user_id = ?", team.ID, user.ID).First(&member).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "You are not a member of this team", nil)
	}

	if err := tc.DB.Unscoped().Delete(&member).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to leave team", nil)
	}

	tc.Notifier.Dispatch([]utils.PendingNotification{{
		RecipientID: team.LeaderID,
		SenderID:    user.ID,
		TeamID:      utils.Pointer(team.ID),
		Type:        models.NotificationMemberRemoved,
		Title:       "Member left team",
		Message:     fmt.Sprintf("%s left team %s", user.Username, team.Name),
	}})

	return c.JSON(utils.MessageResponse("Left team"))
}

// JoinByCode adds the actor as a member of the team with the given join
// code and notifies the leader.
func (tc *TeamController) JoinByCode(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var req JoinTeamRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", nil)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), nil)
	}

	var team models.Team
	if err := tc.DB.Preload("Members").Where("team_code = ?", req.TeamCode).First(&team).Error; err != nil {
		if errIsNotFound(err) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "No team found with that code", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to load team", nil)
	}

	if _, ok := team.MemberRole(user.ID); ok {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "You are already a member of this team", nil)
	}

	member := models.TeamMember{
		TeamID:   team.ID,
		UserID:   user.ID,
		Role:     models.TeamRoleMember,
		JoinedAt: time.Now(),
	}
	if err := tc.DB.Create(&member).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to join team", nil)
	}

	tc.Notifier.Dispatch([]utils.PendingNotification{{
		RecipientID: team.LeaderID,
		SenderID:    user.ID,
		TeamID:      utils.Pointer(team.ID),
		Type:        models.NotificationMemberAdded,
		Title:       "New team member",
		Message:     fmt.Sprintf("%s joined team %s", user.Username, team.Name),
	}})

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(team))
}

func (tc *TeamController) loadTeam(id string) (*models.Team, error) {
	var team models.Team
	if err := tc.DB.Preload("Members.User").Preload("Leader").First(&team, utils.ParseUint(id)).Error; err != nil {
		return nil, err
	}
	return &team, nil
}
