package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/n1kh11p/blokt-sub000/internal/logger"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/n1kh11p/blokt-sub000/internal/notify"
	"github.com/n1kh11p/blokt-sub000/internal/testutil"
)

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []notify.Alert
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, alert notify.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return n.err
}

func (n *recordingNotifier) Close() {}

func (s *ServiceSuite) newSafetyService(n notify.Notifier) *SafetyService {
	svc := NewSafetyService(s.store, s.cache, n, time.Second, nil, logger.Discard())
	svc.now = s.fixedClock
	return svc
}

func (s *ServiceSuite) TestReport_UrgentAlertsNotify() {
	n := &recordingNotifier{}
	svc := s.newSafetyService(n)

	_, err := svc.Report(context.Background(), s.worker, ReportAlertInput{
		ProjectID: &s.project.ID, Title: "Loose scaffold plank", Severity: models.SeverityLow,
	})
	s.Require().NoError(err)
	s.Empty(n.alerts)

	alert, err := svc.Report(context.Background(), s.worker, ReportAlertInput{
		ProjectID: &s.project.ID, Title: "Open trench unguarded", Severity: models.SeverityCritical, OSHACode: "1926.651",
	})
	s.Require().NoError(err)
	s.Require().Len(n.alerts, 1)
	s.Equal(alert.ID, n.alerts[0].ID)
	s.Equal(s.worker.Name, n.alerts[0].ReportedBy)
}

func (s *ServiceSuite) TestReport_NotifierFailureDoesNotFailRequest() {
	svc := s.newSafetyService(&recordingNotifier{err: errors.New("broker down")})

	_, err := svc.Report(context.Background(), s.worker, ReportAlertInput{
		ProjectID: &s.project.ID, Title: "Fall hazard", Severity: models.SeverityHigh,
	})
	s.NoError(err)
}

func (s *ServiceSuite) TestReport_TaskImpliesProjectAndLinksAreChecked() {
	svc := s.newSafetyService(nil)
	task := testutil.CreateTask(s.T(), s.db, s.project, "Frame walls", nil)

	alert, err := svc.Report(context.Background(), s.foreman, ReportAlertInput{
		TaskID: &task.ID, Title: "No hard hats", Severity: models.SeverityMedium,
	})
	s.Require().NoError(err)
	s.Require().NotNil(alert.ProjectID)
	s.Equal(s.project.ID, *alert.ProjectID)

	_, err = svc.Report(context.Background(), s.foreman, ReportAlertInput{
		UserID: &s.outsider.ID, Title: "x", Severity: models.SeverityLow,
	})
	s.ErrorIs(err, ErrValidation)

	_, err = svc.Report(context.Background(), s.foreman, ReportAlertInput{Title: "x", Severity: "extreme"})
	s.ErrorIs(err, ErrValidation)
}

func (s *ServiceSuite) TestUpdate_EscalationNotifiesOnce() {
	n := &recordingNotifier{}
	svc := s.newSafetyService(n)
	alert := testutil.CreateAlert(s.T(), s.db, s.org.ID, &s.project.ID, s.worker.ID, models.SeverityLow)

	high := models.SeverityHigh
	_, err := svc.Update(context.Background(), s.safetyMgr, alert.ID, UpdateAlertInput{Severity: &high})
	s.Require().NoError(err)
	critical := models.SeverityCritical
	_, err = svc.Update(context.Background(), s.safetyMgr, alert.ID, UpdateAlertInput{Severity: &critical})
	s.Require().NoError(err)

	s.Len(n.alerts, 1)
}

func (s *ServiceSuite) TestResolve() {
	svc := s.newSafetyService(nil)
	alert := testutil.CreateAlert(s.T(), s.db, s.org.ID, &s.project.ID, s.worker.ID, models.SeverityMedium)

	_, err := svc.Resolve(s.worker, alert.ID)
	s.ErrorIs(err, ErrPermissionDenied)

	resolved, err := svc.Resolve(s.safetyMgr, alert.ID)
	s.Require().NoError(err)
	s.True(resolved.Resolved)
	s.Equal(s.safetyMgr.ID, *resolved.ResolvedBy)
	s.True(resolved.ResolvedAt.Equal(s.fixedTime))

	_, err = svc.Resolve(s.safetyMgr, alert.ID)
	s.ErrorIs(err, ErrAlreadyResolved)
}

func (s *ServiceSuite) TestListAlerts_Visibility() {
	svc := s.newSafetyService(nil)
	hidden := testutil.CreateProject(s.T(), s.db, s.org.ID, "Hidden")
	testutil.CreateAlert(s.T(), s.db, s.org.ID, &s.project.ID, s.pm.ID, models.SeverityLow)
	testutil.CreateAlert(s.T(), s.db, s.org.ID, &hidden.ID, s.pm.ID, models.SeverityLow)
	testutil.CreateAlert(s.T(), s.db, s.org.ID, nil, s.pm.ID, models.SeverityLow)

	_, total, err := svc.List(s.worker, ListAlertsInput{})
	s.Require().NoError(err)
	s.EqualValues(1, total)

	_, total, err = svc.List(s.safetyMgr, ListAlertsInput{})
	s.Require().NoError(err)
	s.EqualValues(3, total)
}
