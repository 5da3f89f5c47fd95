package controller_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"taskhive/config"
	"taskhive/models"
	"taskhive/routes"
	"taskhive/utils"
)

const testPassword = "password123!"

// setupTest builds a fresh in-memory database and a fiber app with the
// full route tree mounted.
func setupTest(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	dbName := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", dbName)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// Notification fan-out writes concurrently; a single connection
	// serializes them for sqlite
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.MigrateDB(db))

	config.DB = db
	config.AppConfig.EncryptionKey = "test-encryption-key"
	config.AppConfig.RateLimitAuth = 1000
	config.AppConfig.Redis.Enabled = false
	utils.Codes = utils.NewMemoryCodeStore()

	app := fiber.New()
	routes.SetupRoutes(app, db)
	return app, db
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		Role:         "user",
		IsActive:     true,
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func authToken(t *testing.T, user *models.User) string {
	t.Helper()

	token, _, err := utils.GenerateJWTToken(user)
	require.NoError(t, err)
	return token
}

func createTeam(t *testing.T, db *gorm.DB, leader *models.User) *models.Team {
	t.Helper()

	code, err := utils.GenerateTeamCode()
	require.NoError(t, err)

	team := models.Team{
		Name:     leader.Username + "'s team",
		LeaderID: leader.ID,
		TeamCode: code,
		IsActive: true,
		Members: []models.TeamMember{
			{UserID: leader.ID, Role: models.TeamRoleAdmin, JoinedAt: time.Now()},
		},
	}
	require.NoError(t, db.Create(&team).Error)
	return &team
}

func addMember(t *testing.T, db *gorm.DB, team *models.Team, user *models.User, role string) {
	t.Helper()

	member := models.TeamMember{
		TeamID:   team.ID,
		UserID:   user.ID,
		Role:     role,
		JoinedAt: time.Now(),
	}
	require.NoError(t, db.Create(&member).Error)
}

func createTask(t *testing.T, db *gorm.DB, creator *models.User, team *models.Team, assignees ...*models.User) *models.Task {
	t.Helper()

	task := models.Task{
		Title:       "test task",
		Status:      models.TaskStatusTodo,
		Priority:    models.TaskPriorityMedium,
		CreatedByID: creator.ID,
	}
	if team != nil {
		task.TeamID = &team.ID
	}
	for _, a := range assignees {
		task.Assignees = append(task.Assignees, models.TaskAssignee{UserID: a.ID})
	}
	require.NoError(t, db.Create(&task).Error)
	return &task
}

func notificationCount(t *testing.T, db *gorm.DB, recipientID uint, notificationType string) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).
		Where("recipient_id = ? AND type = ?", recipientID, notificationType).
		Count(&count).Error)
	return count
}

func doRequest(t *testing.T, app *fiber.App, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// dataField digs the "data" object out of a success envelope.
func dataField(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()

	data, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "response has no data object: %v", body)
	return data
}
