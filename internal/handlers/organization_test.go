package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/dto"
	apierrors "github.com/n1kh11p/blokt-sub000/internal/errors"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/n1kh11p/blokt-sub000/internal/services"
	"github.com/n1kh11p/blokt-sub000/internal/testutil"
)

func (suite *HandlerTestSuite) TestRemoveMember_ScrubsProjectsAndTasks() {
	task := testutil.CreateTask(suite.T(), suite.db, suite.project, "Tie rebar", &suite.worker.ID)
	c, w := suite.createAuthContext(http.MethodDelete, "/", nil, suite.pm)
	withParams(c, "user_id", suite.worker.ID.String())

	suite.team.RemoveMember(c)

	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	project := testutil.Reload[models.Project](suite.T(), suite.db, suite.project.ID)
	suite.False(project.HasMember(suite.worker.ID))
	suite.Nil(testutil.Reload[models.Task](suite.T(), suite.db, task.ID).AssigneeID)
}

func (suite *HandlerTestSuite) TestRemoveMember_SelfIs409() {
	c, w := suite.createAuthContext(http.MethodDelete, "/", nil, suite.pm)
	withParams(c, "user_id", suite.pm.ID.String())

	suite.team.RemoveMember(c)

	suite.Equal(http.StatusConflict, w.Code)
	suite.Equal(apierrors.ErrCodeInvalidOperation, suite.errorCode(w))
}

func (suite *HandlerTestSuite) TestCreateMember_AndList() {
	c, w := suite.createAuthContext(http.MethodPost, "/api/team", map[string]any{
		"email":       "new.hire@example.com",
		"name":        "New Hire",
		"role":        "foreman",
		"password":    "temporary-pass",
		"project_ids": []uuid.UUID{suite.project.ID},
	}, suite.exec)
	suite.team.CreateMember(c)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var created dto.TeamMemberDTO
	suite.decode(w, &created)
	suite.Equal([]uuid.UUID{suite.project.ID}, created.ProjectIDs)

	c, w = suite.createAuthContext(http.MethodGet, "/api/team", nil, suite.worker)
	suite.team.ListMembers(c)
	suite.Require().Equal(http.StatusOK, w.Code)
	var resp struct {
		Members []dto.TeamMemberDTO `json:"members"`
	}
	suite.decode(w, &resp)
	suite.Len(resp.Members, 6)
}

func (suite *HandlerTestSuite) TestUpdateProfile_PasswordChange() {
	c, w := suite.createAuthContext(http.MethodPatch, "/", map[string]any{
		"new_password": "another-secret",
	}, suite.worker)
	suite.team.UpdateProfile(c)
	suite.Equal(http.StatusUnauthorized, w.Code)

	c, w = suite.createAuthContext(http.MethodPatch, "/", map[string]any{
		"name":             "Renamed Worker",
		"current_password": testutil.Password,
		"new_password":     "another-secret",
	}, suite.worker)
	suite.team.UpdateProfile(c)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var user dto.UserDTO
	suite.decode(w, &user)
	suite.Equal("Renamed Worker", user.Name)
}

func (suite *HandlerTestSuite) TestOrganizationSettings() {
	c, w := suite.createAuthContext(http.MethodPost, "/", nil, suite.exec)
	suite.team.RegenerateInviteCode(c)
	suite.Require().Equal(http.StatusOK, w.Code)
	var org dto.OrganizationDTO
	suite.decode(w, &org)
	suite.NotEqual(suite.org.InviteCode, org.InviteCode)

	c, w = suite.createAuthContext(http.MethodPatch, "/", map[string]any{"name": "Summit Builders"}, suite.exec)
	suite.team.UpdateOrganization(c)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &org)
	suite.Equal("Summit Builders", org.Name)

	c, w = suite.createAuthContext(http.MethodGet, "/", nil, suite.foreman)
	suite.team.GetOrganization(c)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(w, &org)
	suite.Empty(org.InviteCode)
}

func (suite *HandlerTestSuite) TestProcore_ConnectSyncDisconnect() {
	c, w := suite.createAuthContext(http.MethodPost, "/", nil, suite.pm)
	suite.procore.SyncProcore(c)
	suite.Equal(http.StatusConflict, w.Code)

	c, w = suite.createAuthContext(http.MethodPost, "/", nil, suite.pm)
	suite.procore.ConnectProcore(c)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var first services.SyncReport
	suite.decode(w, &first)
	suite.NotZero(first.Projects.Created)

	c, w = suite.createAuthContext(http.MethodPost, "/", nil, suite.pm)
	suite.procore.SyncProcore(c)
	suite.Require().Equal(http.StatusOK, w.Code)
	var second services.SyncReport
	suite.decode(w, &second)
	suite.Zero(second.Projects.Created)
	suite.Equal(first.Projects.Created, second.Projects.Updated)

	c, w = suite.createAuthContext(http.MethodDelete, "/", nil, suite.pm)
	suite.procore.DisconnectProcore(c)
	suite.Require().Equal(http.StatusOK, w.Code)

	c, w = suite.createAuthContext(http.MethodGet, "/", nil, suite.pm)
	suite.procore.ProcoreStatus(c)
	suite.Require().Equal(http.StatusOK, w.Code)
	var status services.ProcoreStatus
	suite.decode(w, &status)
	suite.False(status.Connected)
}

func (suite *HandlerTestSuite) TestProcore_ConnectWithCompanyID() {
	c, w := suite.createAuthContext(http.MethodPost, "/", map[string]any{"company_id": "42"}, suite.exec)

	suite.procore.ConnectProcore(c)

	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var report services.SyncReport
	suite.decode(w, &report)
	suite.Equal("42", report.CompanyID)
}

func (suite *HandlerTestSuite) TestDashboard_RolePayload() {
	c, w := suite.createAuthContext(http.MethodGet, "/api/dashboard", nil, suite.worker)
	suite.dashboard.Dashboard(c)
	suite.Require().Equal(http.StatusOK, w.Code)
	var resp map[string]any
	suite.decode(w, &resp)
	suite.Contains(resp, "field_worker")
	suite.NotContains(resp, "executive")
}

func (suite *HandlerTestSuite) TestAnalytics() {
	c, w := suite.createAuthContext(http.MethodGet, "/api/analytics?weeks=4", nil, suite.safetyMgr)
	suite.dashboard.Analytics(c)
	suite.Require().Equal(http.StatusOK, w.Code)
	var resp services.Analytics
	suite.decode(w, &resp)
	suite.Len(resp.Weeks, 4)

	c, w = suite.createAuthContext(http.MethodGet, "/api/analytics?weeks=abc", nil, suite.safetyMgr)
	suite.dashboard.Analytics(c)
	suite.Equal(http.StatusBadRequest, w.Code)

	c, w = suite.createAuthContext(http.MethodGet, "/api/analytics?weeks=60", nil, suite.safetyMgr)
	suite.dashboard.Analytics(c)
	suite.Equal(http.StatusBadRequest, w.Code)
}
