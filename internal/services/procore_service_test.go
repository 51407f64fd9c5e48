package services

import (
	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/logger"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/n1kh11p/blokt-sub000/internal/procore"
	"github.com/n1kh11p/blokt-sub000/internal/repository"
	"github.com/n1kh11p/blokt-sub000/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func (s *ServiceSuite) newProcoreService() *ProcoreService {
	svc := NewProcoreService(s.store, s.cache, nil, logger.Discard())
	svc.now = s.fixedClock
	return svc
}

func (s *ServiceSuite) TestProcoreConnect_ImportsFixture() {
	svc := s.newProcoreService()
	fixture, err := procore.Load()
	s.Require().NoError(err)

	report, err := svc.Connect(s.pm, "")
	s.Require().NoError(err)
	s.Equal(fixture.Company.ID, report.CompanyID)
	s.Equal(len(fixture.Users), report.Users.Created)
	s.Equal(len(fixture.Projects), report.Projects.Created)
	s.Equal(len(fixture.Tasks), report.Tasks.Created)
	s.Equal(len(fixture.Observations), report.Safety.Created)

	status, err := svc.Status(s.pm)
	s.Require().NoError(err)
	s.True(status.Connected)

	imported, err := s.store.Projects.FindByProcoreID(s.org.ID, fixture.Projects[0].ID)
	s.Require().NoError(err)
	s.Len(imported.UserIDs, len(fixture.Projects[0].Members))
	tasks, err := s.store.Tasks.FindByIDs(s.org.ID, imported.TaskIDs)
	s.Require().NoError(err)
	s.Len(tasks, len(imported.TaskIDs))
	for _, t := range tasks {
		s.Equal(imported.ID, t.ProjectID)
	}

	user, err := s.store.Users.FindByProcoreID(s.org.ID, fixture.Users[0].ID)
	s.Require().NoError(err)
	s.Error(bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("")))
}

func (s *ServiceSuite) TestProcoreSync_Idempotent() {
	svc := s.newProcoreService()

	first, err := svc.Connect(s.exec, "")
	s.Require().NoError(err)
	snapshot := map[uuid.UUID][]uuid.UUID{}
	projects, _, err := s.store.Projects.List(repository.ProjectFilter{OrganizationID: s.org.ID})
	s.Require().NoError(err)
	for _, p := range projects {
		snapshot[p.ID] = p.TaskIDs
	}

	second, err := svc.Resync(s.exec)
	s.Require().NoError(err)
	s.Zero(second.Users.Created)
	s.Zero(second.Projects.Created)
	s.Zero(second.Tasks.Created)
	s.Zero(second.Safety.Created)
	s.Equal(first.Users.Created, second.Users.Updated)
	s.Equal(first.Projects.Created, second.Projects.Updated)
	s.Equal(first.Tasks.Created, second.Tasks.Updated)
	s.Equal(first.Safety.Created, second.Safety.Updated)

	projects, _, err = s.store.Projects.List(repository.ProjectFilter{OrganizationID: s.org.ID})
	s.Require().NoError(err)
	for _, p := range projects {
		s.Equal(len(utils.UniqueIDs(p.TaskIDs)), len(p.TaskIDs))
		s.Equal(len(utils.UniqueIDs(p.UserIDs)), len(p.UserIDs))
		s.Equal(snapshot[p.ID], []uuid.UUID(p.TaskIDs))
	}
}

func (s *ServiceSuite) TestProcoreSync_TwoOrganizations() {
	svc := s.newProcoreService()

	_, err := svc.SyncOrganization(s.org.ID, "")
	s.Require().NoError(err)
	report, err := svc.SyncOrganization(s.otherOrg.ID, "")
	s.Require().NoError(err)
	s.NotZero(report.Users.Created)
}

func (s *ServiceSuite) TestProcore_PermissionsAndDisconnect() {
	svc := s.newProcoreService()

	_, err := svc.Connect(s.foreman, "")
	s.ErrorIs(err, ErrPermissionDenied)

	_, err = svc.Resync(s.pm)
	s.ErrorIs(err, ErrProcoreNotConnected)
	s.ErrorIs(svc.Disconnect(s.pm), ErrProcoreNotConnected)

	_, err = svc.Connect(s.pm, "42")
	s.Require().NoError(err)
	s.Require().NoError(svc.Disconnect(s.pm))

	status, err := svc.Status(s.pm)
	s.Require().NoError(err)
	s.False(status.Connected)

	var alerts int64
	s.Require().NoError(s.db.Model(&models.SafetyAlert{}).Where("organization_id = ?", s.org.ID).Count(&alerts).Error)
	s.NotZero(alerts)
}

func (s *ServiceSuite) TestProcoreResync_SkipsLocallyDeletedRecords() {
	svc := s.newProcoreService()
	_, err := svc.Connect(s.exec, "")
	s.Require().NoError(err)

	retail, err := s.store.Projects.FindByProcoreID(s.org.ID, "310483")
	s.Require().NoError(err)
	windows, err := s.store.Tasks.FindByProcoreID(s.org.ID, "91006")
	s.Require().NoError(err)
	hannah, err := s.store.Users.FindByProcoreID(s.org.ID, "7005")
	s.Require().NoError(err)

	s.Require().NoError(NewProjectService(s.store, s.cache).Delete(s.exec, retail.ID))
	s.Require().NoError(NewTaskService(s.store, s.cache).DeleteTask(s.exec, windows.ID))
	s.Require().NoError(NewOrganizationService(s.store, s.cache).RemoveMember(s.exec, hannah.ID))

	report, err := svc.Resync(s.exec)
	s.Require().NoError(err)
	s.Equal(SyncCounts{Updated: 4, Skipped: 1}, report.Users)
	s.Equal(SyncCounts{Updated: 2, Skipped: 1}, report.Projects)
	s.Equal(SyncCounts{Updated: 5, Skipped: 2}, report.Tasks)

	_, err = s.store.Projects.FindByID(s.org.ID, retail.ID)
	s.ErrorIs(err, gorm.ErrRecordNotFound, "deleted projects stay deleted")
	_, err = s.store.Tasks.FindByID(s.org.ID, windows.ID)
	s.ErrorIs(err, gorm.ErrRecordNotFound)

	projects, _, err := s.store.Projects.List(repository.ProjectFilter{OrganizationID: s.org.ID})
	s.Require().NoError(err)
	for _, p := range projects {
		s.False(p.HasMember(hannah.ID), p.Name)
		s.NotContains([]uuid.UUID(p.TaskIDs), windows.ID, p.Name)
	}
	tasks, _, err := s.store.Tasks.List(repository.TaskFilter{OrganizationID: s.org.ID, AssigneeID: &hannah.ID})
	s.Require().NoError(err)
	s.Empty(tasks)
}
