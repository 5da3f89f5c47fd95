package controller_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskhive/models"
)

func TestCreateTeamMakesActorLeaderAndAdminMember(t *testing.T) {
	app, db := setupTest(t)
	user := createUser(t, db, "leader")
	token := authToken(t, user)

	resp := doRequest(t, app, "POST", "/api/v1/teams", token, map[string]interface{}{
		"name":        "platform",
		"description": "platform crew",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := dataField(t, decodeBody(t, resp))

	assert.Equal(t, float64(user.ID), data["leader_id"])
	assert.Len(t, data["team_code"], 8)

	members, ok := data["members"].([]interface{})
	require.True(t, ok)
	require.Len(t, members, 1)
	member := members[0].(map[string]interface{})
	assert.Equal(t, float64(user.ID), member["user_id"])
	assert.Equal(t, models.TeamRoleAdmin, member["role"])
}

func TestAddMemberRequiresAdmin(t *testing.T) {
	app, db := setupTest(t)
	leader := createUser(t, db, "leader")
	plain := createUser(t, db, "plain")
	target := createUser(t, db, "target")
	team := createTeam(t, db, leader)
	addMember(t, db, team, plain, models.TeamRoleMember)

	path := fmt.Sprintf("/api/v1/teams/%d/members", team.ID)

	// A non-admin member cannot add
	resp := doRequest(t, app, "POST", path, authToken(t, plain), map[string]interface{}{
		"user_id": target.ID,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// An admin member can
	resp = doRequest(t, app, "POST", path, authToken(t, leader), map[string]interface{}{
		"user_id": target.ID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var count int64
	require.NoError(t, db.Model(&models.TeamMember{}).
		Where("team_id = ? AND user_id = ?", team.ID, target.ID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// Adding the same user again conflicts
	resp = doRequest(t, app, "POST", path, authToken(t, leader), map[string]interface{}{
		"user_id": target.ID,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// The new member was notified once
	assert.Equal(t, int64(1), notificationCount(t, db, target.ID, models.NotificationMemberAdded))
}

func TestAddMemberUnknownUser(t *testing.T) {
	app, db := setupTest(t)
	leader := createUser(t, db, "leader")
	team := createTeam(t, db, leader)

	resp := doRequest(t, app, "POST", fmt.Sprintf("/api/v1/teams/%d/members", team.ID),
		authToken(t, leader), map[string]interface{}{"user_id": 99999})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRemoveMemberLeaderOnly(t *testing.T) {
	app, db := setupTest(t)
	leader := createUser(t, db, "leader")
	admin := createUser(t, db, "admin")
	victim := createUser(t, db, "victim")
	team := createTeam(t, db, leader)
	addMember(t, db, team, admin, models.TeamRoleAdmin)
	addMember(t, db, team, victim, models.TeamRoleMember)

	// Even an admin member cannot remove; only the leader can
	resp := doRequest(t, app, "DELETE",
		fmt.Sprintf("/api/v1/teams/%d/members/%d", team.ID, victim.ID), authToken(t, admin), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doRequest(t, app, "DELETE",
		fmt.Sprintf("/api/v1/teams/%d/members/%d", team.ID, victim.ID), authToken(t, leader), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var count int64
	require.NoError(t, db.Model(&models.TeamMember{}).
		Where("team_id = ? AND user_id = ?", team.ID, victim.ID).
		Count(&count).Error)
	assert.Equal(t, int64(0), count)
	assert.Equal(t, int64(1), notificationCount(t, db, victim.ID, models.NotificationMemberRemoved))

	// Removing a non-member is a 404
	resp = doRequest(t, app, "DELETE",
		fmt.Sprintf("/api/v1/teams/%d/members/%d", team.ID, victim.ID), authToken(t, leader), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// The leader cannot be removed through this path
	resp = doRequest(t, app, "DELETE",
		fmt.Sprintf("/api/v1/teams/%d/members/%d", team.ID, leader.ID), authToken(t, leader), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLeaveTeam(t *testing.T) {
	app, db := setupTest(t)
	leader := createUser(t, db, "leader")
	member := createUser(t, db, "member")
	outsider := createUser(t, db, "outsider")
	team := createTeam(t, db, leader)
	addMember(t, db, team, member, models.TeamRoleMember)

	path := fmt.Sprintf("/api/v1/teams/%d/leave", team.ID)

	// The leader cannot leave
	resp := doRequest(t, app, "POST", path, authToken(t, leader), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// A non-member gets a 404
	resp = doRequest(t, app, "POST", path, authToken(t, outsider), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// A member leaves and the leader is notified exactly once
	resp = doRequest(t, app, "POST", path, authToken(t, member), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(1), notificationCount(t, db, leader.ID, models.NotificationMemberRemoved))

	var count int64
	require.NoError(t, db.Model(&models.TeamMember{}).
		Where("team_id = ? AND user_id = ?", team.ID, member.ID).
		Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestJoinByCode(t *testing.T) {
	app, db := setupTest(t)
	leader := createUser(t, db, "leader")
	joiner := createUser(t, db, "joiner")
	team := createTeam(t, db, leader)

	resp := doRequest(t, app, "POST", "/api/v1/teams/join", authToken(t, joiner), map[string]interface{}{
		"team_code": "NOSUCHCD",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doRequest(t, app, "POST", "/api/v1/teams/join", authToken(t, joiner), map[string]interface{}{
		"team_code": team.TeamCode,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, int64(1), notificationCount(t, db, leader.ID, models.NotificationMemberAdded))

	var member models.TeamMember
	require.NoError(t, db.Where("team_id = ? AND user_id = ?", team.ID, joiner.ID).First(&member).Error)
	assert.Equal(t, models.TeamRoleMember, member.Role)

	// Joining twice is rejected
	resp = doRequest(t, app, "POST", "/api/v1/teams/join", authToken(t, joiner), map[string]interface{}{
		"team_code": team.TeamCode,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateTeamLeaderOnlyWithFanout(t *testing.T) {
	app, db := setupTest(t)
	leader := createUser(t, db, "leader")
	m1 := createUser(t, db, "m1")
	m2 := createUser(t, db, "m2")
	team := createTeam(t, db, leader)
	addMember(t, db, team, m1, models.TeamRoleMember)
	addMember(t, db, team, m2, models.TeamRoleMember)

	path := fmt.Sprintf("/api/v1/teams/%d", team.ID)

	resp := doRequest(t, app, "PUT", path, authToken(t, m1), map[string]interface{}{
		"name": "hijacked",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Two changed fields fan out one notification per field per member
	resp = doRequest(t, app, "PUT", path, authToken(t, leader), map[string]interface{}{
		"name":        "renamed",
		"description": "new description",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, int64(2), notificationCount(t, db, m1.ID, models.NotificationTeamUpdate))
	assert.Equal(t, int64(2), notificationCount(t, db, m2.ID, models.NotificationTeamUpdate))
	assert.Equal(t, int64(0), notificationCount(t, db, leader.ID, models.NotificationTeamUpdate))

	var reloaded models.Team
	require.NoError(t, db.First(&reloaded, team.ID).Error)
	assert.Equal(t, "renamed", reloaded.Name)
	assert.Equal(t, "new description", reloaded.Description)
}

func TestDeleteTeamLeaderOnlyAndDoesNotCascadeTasks(t *testing.T) {
	app, db := setupTest(t)
	leader := createUser(t, db, "leader")
	admin := createUser(t, db, "admin")
	team := createTeam(t, db, leader)
	addMember(t, db, team, admin, models.TeamRoleAdmin)
	task := createTask(t, db, leader, team, admin)

	path := fmt.Sprintf("/api/v1/teams/%d", team.ID)

	resp := doRequest(t, app, "DELETE", path, authToken(t, admin), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doRequest(t, app, "DELETE", path, authToken(t, leader), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, app, "GET", path, authToken(t, leader), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Tasks referencing the deleted team are left in place
	var count int64
	require.NoError(t, db.Model(&models.Task{}).Where("id = ?", task.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

// Team reads are intentionally permissive: any authenticated user who
// knows the id can fetch the team, membership is not checked.
func TestGetTeamDoesNotRequireMembership(t *testing.T) {
	app, db := setupTest(t)
	leader := createUser(t, db, "leader")
	outsider := createUser(t, db, "outsider")
	team := createTeam(t, db, leader)

	resp := doRequest(t, app, "GET", fmt.Sprintf("/api/v1/teams/%d", team.ID), authToken(t, outsider), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetTeamsListsOnlyMemberships(t *testing.T) {
	app, db := setupTest(t)
	leader := createUser(t, db, "leader")
	other := createUser(t, db, "other")
	createTeam(t, db, leader)
	createTeam(t, db, other)

	resp := doRequest(t, app, "GET", "/api/v1/teams", authToken(t, leader), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	teams, ok := body["data"].([]interface{})
	require.True(t, ok)
	assert.Len(t, teams, 1)
}
