package services

import (
	"time"

	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/n1kh11p/blokt-sub000/internal/testutil"
)

func (s *ServiceSuite) newDashboardService() *DashboardService {
	svc := NewDashboardService(s.store, time.Minute, nil)
	svc.now = s.fixedClock
	return svc
}

func (s *ServiceSuite) TestDashboard_RoleSections() {
	svc := s.newDashboardService()
	testutil.CreateTask(s.T(), s.db, s.project, "Frame walls", &s.worker.ID)
	testutil.CreateAlert(s.T(), s.db, s.org.ID, &s.project.ID, s.worker.ID, models.SeverityHigh)

	worker, err := svc.Get(s.worker)
	s.Require().NoError(err)
	s.Require().NotNil(worker.FieldWorker)
	s.Nil(worker.Executive)
	s.Len(worker.FieldWorker.MyOpenTasks, 1)
	s.Len(worker.FieldWorker.OpenAlerts, 1)

	foreman, err := svc.Get(s.foreman)
	s.Require().NoError(err)
	s.Require().NotNil(foreman.Foreman)
	s.EqualValues(1, foreman.Foreman.TaskCounts[models.TaskStatusPending])
	s.EqualValues(1, foreman.Foreman.OpenAlertCnt)

	safety, err := svc.Get(s.safetyMgr)
	s.Require().NoError(err)
	s.Require().NotNil(safety.SafetyManager)
	s.EqualValues(1, safety.SafetyManager.OpenBySeverity[models.SeverityHigh])
	s.EqualValues(0, safety.SafetyManager.OpenBySeverity[models.SeverityCritical])

	exec, err := svc.Get(s.exec)
	s.Require().NoError(err)
	s.Require().NotNil(exec.Executive)
	s.EqualValues(1, exec.Executive.ProjectsByStatus[models.ProjectStatusActive])
	s.EqualValues(1, exec.Executive.TaskCount)
	s.Zero(exec.Executive.CompletionRate)

	pm, err := svc.Get(s.pm)
	s.Require().NoError(err)
	s.Require().NotNil(pm.ProjectManager)
	s.Len(pm.ProjectManager.Projects, 1)
}

func (s *ServiceSuite) TestDashboard_CachedUntilInvalidated() {
	svc := s.newDashboardService()

	first, err := svc.Get(s.exec)
	s.Require().NoError(err)
	testutil.CreateProject(s.T(), s.db, s.org.ID, "Westgate")

	cached, err := svc.Get(s.exec)
	s.Require().NoError(err)
	s.Same(first, cached)

	svc.Invalidate(s.otherOrg.ID)
	cached, err = svc.Get(s.exec)
	s.Require().NoError(err)
	s.Same(first, cached)

	svc.Invalidate(s.org.ID)
	fresh, err := svc.Get(s.exec)
	s.Require().NoError(err)
	s.EqualValues(2, fresh.Executive.ProjectsByStatus[models.ProjectStatusActive])
}

func (s *ServiceSuite) TestDashboard_InvalidatedByServiceWrites() {
	dash := s.newDashboardService()
	tasks := NewTaskService(s.store, dash)

	before, err := dash.Get(s.foreman)
	s.Require().NoError(err)
	_, err = tasks.CreateTask(s.foreman, CreateTaskInput{ProjectID: s.project.ID, Name: "Pour slab"})
	s.Require().NoError(err)

	after, err := dash.Get(s.foreman)
	s.Require().NoError(err)
	s.NotSame(before, after)
	s.EqualValues(1, after.Foreman.TaskCounts[models.TaskStatusPending])
}
