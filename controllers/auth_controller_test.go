package controller_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhive/models"
	"taskhive/utils"
)

func TestRegisterAndLogin(t *testing.T) {
	app, _ := setupTest(t)

	resp := doRequest(t, app, "POST", "/auth/register", "", map[string]interface{}{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "password123!",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.NotEmpty(t, body["access_token"])
	assert.NotEmpty(t, body["refresh_token"])

	// Duplicate registration conflicts
	resp = doRequest(t, app, "POST", "/auth/register", "", map[string]interface{}{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "password123!",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = doRequest(t, app, "POST", "/auth/login", "", map[string]interface{}{
		"email":    "alice@example.com",
		"password": "password123!",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, app, "POST", "/auth/login", "", map[string]interface{}{
		"email":    "alice@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterValidation(t *testing.T) {
	app, _ := setupTest(t)

	resp := doRequest(t, app, "POST", "/auth/register", "", map[string]interface{}{
		"username": "bo",
		"email":    "not-an-email",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app, _ := setupTest(t)

	resp := doRequest(t, app, "GET", "/api/v1/teams/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, app, "GET", "/auth/me", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestEmailVerificationFlow(t *testing.T) {
	app, db := setupTest(t)
	user := createUser(t, db, "carol")
	token := authToken(t, user)

	resp := doRequest(t, app, "POST", "/auth/send-verification", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Immediate resend is throttled by the cooldown key
	resp = doRequest(t, app, "POST", "/auth/send-verification", token, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	code, err := utils.Codes.Get(context.Background(), fmt.Sprintf("verify:code:%d", user.ID))
	require.NoError(t, err)

	// A wrong code is rejected and leaves the stored one intact
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	resp = doRequest(t, app, "POST", "/auth/verify-email", token, map[string]interface{}{
		"code": wrong,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doRequest(t, app, "POST", "/auth/verify-email", token, map[string]interface{}{
		"code": code,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, user.ID).Error)
	assert.True(t, reloaded.EmailVerified)
}

func TestChangePasswordInvalidatesTokens(t *testing.T) {
	app, db := setupTest(t)
	user := createUser(t, db, "dave")
	token := authToken(t, user)

	resp := doRequest(t, app, "POST", "/auth/change-password", token, map[string]interface{}{
		"current_password": testPassword,
		"new_password":     "even-better-password",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The old token carries a stale token version
	resp = doRequest(t, app, "GET", "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
