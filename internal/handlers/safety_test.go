package handlers

import (
	"net/http"

	"github.com/n1kh11p/blokt-sub000/internal/dto"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/n1kh11p/blokt-sub000/internal/testutil"
)

func (suite *HandlerTestSuite) TestReportAlert_AnyRole() {
	c, w := suite.createAuthContext(http.MethodPost, "/api/safety", map[string]any{
		"project_id": suite.project.ID,
		"title":      "Unguarded floor opening",
		"severity":   "high",
		"osha_code":  "1926.501",
	}, suite.worker)

	suite.safety.ReportAlert(c)

	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var alert models.SafetyAlert
	suite.decode(w, &alert)
	suite.Equal(suite.worker.ID, alert.ReportedBy)
	suite.Equal(models.SeverityHigh, alert.Severity)
}

func (suite *HandlerTestSuite) TestReportAlert_UnknownSeverity() {
	c, w := suite.createAuthContext(http.MethodPost, "/api/safety", map[string]any{
		"title": "Spill", "severity": "apocalyptic",
	}, suite.worker)

	suite.safety.ReportAlert(c)

	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestResolveAlert_TwiceIs409() {
	alert := testutil.CreateAlert(suite.T(), suite.db, suite.org.ID, &suite.project.ID, suite.worker.ID, models.SeverityMedium)

	c, w := suite.createAuthContext(http.MethodPost, "/", nil, suite.safetyMgr)
	withParams(c, "id", alert.ID.String())
	suite.safety.ResolveAlert(c)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	c, w = suite.createAuthContext(http.MethodPost, "/", nil, suite.safetyMgr)
	withParams(c, "id", alert.ID.String())
	suite.safety.ResolveAlert(c)
	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *HandlerTestSuite) TestListAlerts_Filters() {
	testutil.CreateAlert(suite.T(), suite.db, suite.org.ID, &suite.project.ID, suite.worker.ID, models.SeverityLow)
	testutil.CreateAlert(suite.T(), suite.db, suite.org.ID, &suite.project.ID, suite.worker.ID, models.SeverityCritical)

	c, w := suite.createAuthContext(http.MethodGet, "/api/safety?severity=critical&resolved=false", nil, suite.foreman)
	suite.safety.ListAlerts(c)

	suite.Require().Equal(http.StatusOK, w.Code)
	var resp dto.SafetyListResponse
	suite.decode(w, &resp)
	suite.Require().Len(resp.Alerts, 1)
	suite.Equal(models.SeverityCritical, resp.Alerts[0].Severity)

	c, w = suite.createAuthContext(http.MethodGet, "/api/safety?resolved=maybe", nil, suite.foreman)
	suite.safety.ListAlerts(c)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestDeleteAlert_WorkerForbidden() {
	alert := testutil.CreateAlert(suite.T(), suite.db, suite.org.ID, &suite.project.ID, suite.worker.ID, models.SeverityLow)
	c, w := suite.createAuthContext(http.MethodDelete, "/", nil, suite.worker)
	withParams(c, "id", alert.ID.String())

	suite.safety.DeleteAlert(c)

	suite.Equal(http.StatusForbidden, w.Code)
}
