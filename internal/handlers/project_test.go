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

func (suite *HandlerTestSuite) TestUpdateProject_ValidNameUpdatesRow() {
	c, w := suite.createAuthContext(http.MethodPatch, "/api/projects/"+suite.project.ID.String(),
		map[string]any{"name": "Harbor View Phase 2", "start_date": "2025-08-01"}, suite.pm)
	withParams(c, "id", suite.project.ID.String())

	suite.projects.UpdateProject(c)

	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var resp services.ProjectProgress
	suite.decode(w, &resp)
	suite.Equal("Harbor View Phase 2", resp.Name)

	stored := testutil.Reload[models.Project](suite.T(), suite.db, suite.project.ID)
	suite.Equal("Harbor View Phase 2", stored.Name)
	suite.Require().NotNil(stored.StartDate)
	suite.Equal(2025, stored.StartDate.Year())
}

func (suite *HandlerTestSuite) TestUpdateProject_NullClearsDate() {
	c, w := suite.createAuthContext(http.MethodPatch, "/", map[string]any{"start_date": "2025-08-01"}, suite.pm)
	withParams(c, "id", suite.project.ID.String())
	suite.projects.UpdateProject(c)
	suite.Require().Equal(http.StatusOK, w.Code)

	c, w = suite.createAuthContext(http.MethodPatch, "/", map[string]any{"start_date": nil}, suite.pm)
	withParams(c, "id", suite.project.ID.String())
	suite.projects.UpdateProject(c)
	suite.Require().Equal(http.StatusOK, w.Code)

	stored := testutil.Reload[models.Project](suite.T(), suite.db, suite.project.ID)
	suite.Nil(stored.StartDate)
}

func (suite *HandlerTestSuite) TestUpdateProject_EmptyNameIs400() {
	c, w := suite.createAuthContext(http.MethodPatch, "/", map[string]any{"name": "  "}, suite.pm)
	withParams(c, "id", suite.project.ID.String())

	suite.projects.UpdateProject(c)

	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal(apierrors.ErrCodeInvalidInput, suite.errorCode(w))
}

func (suite *HandlerTestSuite) TestCreateProject_FieldWorkerForbidden() {
	c, w := suite.createAuthContext(http.MethodPost, "/api/projects", map[string]any{"name": "Nope"}, suite.worker)

	suite.projects.CreateProject(c)

	suite.Equal(http.StatusForbidden, w.Code)
	suite.Equal(apierrors.ErrCodeInsufficientPermissions, suite.errorCode(w))
}

func (suite *HandlerTestSuite) TestCreateProject_Success() {
	c, w := suite.createAuthContext(http.MethodPost, "/api/projects", map[string]any{
		"name":     "Westgate Tower",
		"location": "Denver, CO",
		"budget":   1250000.5,
		"user_ids": []uuid.UUID{suite.foreman.ID},
	}, suite.pm)

	suite.projects.CreateProject(c)

	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var resp services.ProjectProgress
	suite.decode(w, &resp)
	suite.Equal(models.ProjectStatusActive, resp.Status)
	suite.Contains([]uuid.UUID(resp.UserIDs), suite.pm.ID)
	suite.Contains([]uuid.UUID(resp.UserIDs), suite.foreman.ID)
}

func (suite *HandlerTestSuite) TestGetProject_HiddenFromNonMembers() {
	hidden := testutil.CreateProject(suite.T(), suite.db, suite.org.ID, "Hidden")
	c, w := suite.createAuthContext(http.MethodGet, "/", nil, suite.worker)
	withParams(c, "id", hidden.ID.String())

	suite.projects.GetProject(c)

	suite.Equal(http.StatusNotFound, w.Code)
}

func (suite *HandlerTestSuite) TestGetProject_InvalidID() {
	c, w := suite.createAuthContext(http.MethodGet, "/", nil, suite.pm)
	withParams(c, "id", "42")

	suite.projects.GetProject(c)

	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestListProjects_Pagination() {
	testutil.CreateProject(suite.T(), suite.db, suite.org.ID, "Second")
	c, w := suite.createAuthContext(http.MethodGet, "/api/projects?limit=1", nil, suite.exec)

	suite.projects.ListProjects(c)

	suite.Require().Equal(http.StatusOK, w.Code)
	var resp dto.ProjectListResponse
	suite.decode(w, &resp)
	suite.Len(resp.Projects, 1)
	suite.EqualValues(2, resp.Pagination.Total)
	suite.Equal(1, resp.Pagination.Limit)
}

func (suite *HandlerTestSuite) TestListProjects_BadStatus() {
	c, w := suite.createAuthContext(http.MethodGet, "/api/projects?status=paused", nil, suite.exec)

	suite.projects.ListProjects(c)

	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestProjectMembers() {
	c, w := suite.createAuthContext(http.MethodPost, "/", map[string]any{"user_ids": []uuid.UUID{suite.safetyMgr.ID}}, suite.pm)
	withParams(c, "id", suite.project.ID.String())
	suite.projects.AddMembers(c)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	c, w = suite.createAuthContext(http.MethodDelete, "/", nil, suite.pm)
	withParams(c, "id", suite.project.ID.String(), "user_id", suite.worker.ID.String())
	suite.projects.RemoveMember(c)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	stored := testutil.Reload[models.Project](suite.T(), suite.db, suite.project.ID)
	suite.True(stored.HasMember(suite.safetyMgr.ID))
	suite.False(stored.HasMember(suite.worker.ID))
}
