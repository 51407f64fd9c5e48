package services

import (
	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/n1kh11p/blokt-sub000/internal/testutil"
)

func (s *ServiceSuite) TestRemoveMember_ScrubsProjectsAndTasks() {
	svc := NewOrganizationService(s.store, s.cache)
	second := testutil.CreateProject(s.T(), s.db, s.org.ID, "Westgate", s.worker.ID, s.pm.ID)
	task := testutil.CreateTask(s.T(), s.db, s.project, "Pour slab", &s.worker.ID)
	other := testutil.CreateTask(s.T(), s.db, second, "Windows", &s.worker.ID)

	s.Require().NoError(svc.RemoveMember(s.exec, s.worker.ID))

	s.False(s.reloadProject(s.project.ID).HasMember(s.worker.ID))
	s.Equal([]uuid.UUID{s.pm.ID}, []uuid.UUID(s.reloadProject(second.ID).UserIDs))
	s.Nil(s.reloadTask(task.ID).AssigneeID)
	s.Nil(s.reloadTask(other.ID).AssigneeID)

	_, err := s.store.Users.FindByID(s.worker.ID)
	s.Error(err)
}

func (s *ServiceSuite) TestRemoveMember_ReleasesEmail() {
	svc := NewOrganizationService(s.store, s.cache)
	email := s.worker.Email

	s.Require().NoError(svc.RemoveMember(s.exec, s.worker.ID))

	_, err := svc.CreateMember(s.exec, CreateMemberInput{
		Email:    email,
		Name:     "Rehired",
		Role:     models.RoleFieldWorker,
		Password: "temporary-pass",
	})
	s.NoError(err)
}

func (s *ServiceSuite) TestRemoveMember_Guards() {
	svc := NewOrganizationService(s.store, s.cache)

	s.ErrorIs(svc.RemoveMember(s.exec, s.exec.ID), ErrCannotRemoveYourself)
	s.ErrorIs(svc.RemoveMember(s.foreman, s.worker.ID), ErrPermissionDenied)
	s.ErrorIs(svc.RemoveMember(s.exec, s.outsider.ID), ErrUserNotFound)
}

func (s *ServiceSuite) TestCreateMember_WithProjects() {
	svc := NewOrganizationService(s.store, s.cache)

	member, err := svc.CreateMember(s.pm, CreateMemberInput{
		Email:      "New.Hire@Example.com",
		Name:       "New Hire",
		Role:       models.RoleForeman,
		Password:   "temporary-pass",
		ProjectIDs: []uuid.UUID{s.project.ID},
	})
	s.Require().NoError(err)
	s.Equal("new.hire@example.com", member.Email)
	s.True(s.reloadProject(s.project.ID).HasMember(member.ID))

	_, err = svc.CreateMember(s.pm, CreateMemberInput{
		Email:    "new.hire@example.com",
		Name:     "Duplicate",
		Role:     models.RoleForeman,
		Password: "temporary-pass",
	})
	s.ErrorIs(err, ErrEmailTaken)
}

func (s *ServiceSuite) TestCreateMember_UnknownProjectRollsBack() {
	svc := NewOrganizationService(s.store, s.cache)

	_, err := svc.CreateMember(s.pm, CreateMemberInput{
		Email:      "ghost@example.com",
		Name:       "Ghost",
		Role:       models.RoleForeman,
		Password:   "temporary-pass",
		ProjectIDs: []uuid.UUID{uuid.New()},
	})
	s.ErrorIs(err, ErrValidation)

	_, err = s.store.Users.FindByEmail("ghost@example.com")
	s.Error(err)
}

func (s *ServiceSuite) TestUpdateMember_CannotChangeOwnRole() {
	svc := NewOrganizationService(s.store, s.cache)
	role := models.RoleForeman

	_, err := svc.UpdateMember(s.exec, s.exec.ID, UpdateMemberInput{Role: &role})
	s.ErrorIs(err, ErrValidation)

	updated, err := svc.UpdateMember(s.exec, s.worker.ID, UpdateMemberInput{Role: &role})
	s.Require().NoError(err)
	s.Equal(models.RoleForeman, updated.Role)
}

func (s *ServiceSuite) TestListMembers_IncludesProjects() {
	svc := NewOrganizationService(s.store, s.cache)

	members, err := svc.ListMembers(s.worker)
	s.Require().NoError(err)
	s.Len(members, 5)
	for _, m := range members {
		if m.ID == s.worker.ID {
			s.Equal([]uuid.UUID{s.project.ID}, m.ProjectIDs)
		}
	}
}

func (s *ServiceSuite) TestOrganizationSettings() {
	svc := NewOrganizationService(s.store, s.cache)

	org, err := svc.GetOrganization(s.worker)
	s.Require().NoError(err)
	s.Empty(org.InviteCode)

	before := s.org.InviteCode
	org, err = svc.RegenerateInviteCode(s.exec)
	s.Require().NoError(err)
	s.NotEqual(before, org.InviteCode)

	org, err = svc.UpdateOrganizationName(s.pm, " Summit Ridge ")
	s.Require().NoError(err)
	s.Equal("Summit Ridge", org.Name)

	_, err = svc.UpdateOrganizationName(s.foreman, "Nope")
	s.ErrorIs(err, ErrPermissionDenied)
}
