package services

import (
	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/n1kh11p/blokt-sub000/internal/repository"
	"github.com/n1kh11p/blokt-sub000/internal/testutil"
)

func (s *ServiceSuite) TestProjectCreate_AddsCreatorAsMember() {
	svc := NewProjectService(s.store, s.cache)

	created, err := svc.Create(s.pm, CreateProjectInput{
		Name:      "  Westgate  ",
		MemberIDs: []uuid.UUID{s.foreman.ID},
	})
	s.Require().NoError(err)
	s.Equal("Westgate", created.Name)
	s.Equal(models.ProjectStatusActive, created.Status)
	s.ElementsMatch([]uuid.UUID{s.pm.ID, s.foreman.ID}, []uuid.UUID(created.UserIDs))
	s.Equal(1, s.cache.calls[s.org.ID])
}

func (s *ServiceSuite) TestProjectCreate_FieldWorkerForbidden() {
	svc := NewProjectService(s.store, s.cache)

	_, err := svc.Create(s.worker, CreateProjectInput{Name: "Nope"})
	s.ErrorIs(err, ErrPermissionDenied)
}

func (s *ServiceSuite) TestProjectCreate_RejectsForeignMembers() {
	svc := NewProjectService(s.store, s.cache)

	_, err := svc.Create(s.pm, CreateProjectInput{Name: "P", MemberIDs: []uuid.UUID{s.outsider.ID}})
	s.ErrorIs(err, ErrValidation)
}

func (s *ServiceSuite) TestProjectUpdate_ValidNameUpdatesRow() {
	svc := NewProjectService(s.store, s.cache)
	name := "Harbor View Phase 2"

	updated, err := svc.Update(s.exec, s.project.ID, UpdateProjectInput{Name: &name})
	s.Require().NoError(err)
	s.Equal(name, updated.Name)
	s.Equal(name, s.reloadProject(s.project.ID).Name)
}

func (s *ServiceSuite) TestProjectUpdate_EmptyNameRejected() {
	svc := NewProjectService(s.store, s.cache)
	blank := "   "

	_, err := svc.Update(s.exec, s.project.ID, UpdateProjectInput{Name: &blank})
	s.ErrorIs(err, ErrValidation)
}

func (s *ServiceSuite) TestProjectVisibility() {
	svc := NewProjectService(s.store, s.cache)
	hidden := testutil.CreateProject(s.T(), s.db, s.org.ID, "Hidden")

	_, err := svc.Get(s.worker, hidden.ID)
	s.ErrorIs(err, ErrProjectNotFound)

	_, err = svc.Get(s.safetyMgr, hidden.ID)
	s.NoError(err)

	_, err = svc.Get(s.outsider, s.project.ID)
	s.ErrorIs(err, ErrProjectNotFound)

	list, total, err := svc.List(s.worker, ListProjectsInput{})
	s.Require().NoError(err)
	s.EqualValues(1, total)
	s.Equal(s.project.ID, list[0].ID)
}

func (s *ServiceSuite) TestProjectGet_ReportsProgress() {
	svc := NewProjectService(s.store, s.cache)
	done := testutil.CreateTask(s.T(), s.db, s.project, "Pour slab", nil)
	testutil.CreateTask(s.T(), s.db, s.project, "Frame walls", nil)
	s.Require().NoError(s.db.Model(done).Update("status", models.TaskStatusCompleted).Error)

	progress, err := svc.Get(s.exec, s.project.ID)
	s.Require().NoError(err)
	s.EqualValues(2, progress.TaskCount)
	s.EqualValues(1, progress.CompletedTaskCount)
}

func (s *ServiceSuite) TestProjectDelete_Cascades() {
	svc := NewProjectService(s.store, s.cache)
	task := testutil.CreateTask(s.T(), s.db, s.project, "Pour slab", nil)
	alert := testutil.CreateAlert(s.T(), s.db, s.org.ID, &s.project.ID, s.worker.ID, models.SeverityLow)
	video := testutil.CreateVideo(s.T(), s.db, s.org.ID, &s.project.ID, s.worker.ID, models.VideoStatusAnalyzed, task.ID)

	s.Require().NoError(svc.Delete(s.pm, s.project.ID))

	var count int64
	s.Require().NoError(s.db.Model(&models.Task{}).Where("id = ?", task.ID).Count(&count).Error)
	s.Zero(count)
	s.Require().NoError(s.db.Model(&models.Project{}).Where("id = ?", s.project.ID).Count(&count).Error)
	s.Zero(count)

	reloadedAlert := testutil.Reload[models.SafetyAlert](s.T(), s.db, alert.ID)
	s.Nil(reloadedAlert.ProjectID)
	reloadedVideo := testutil.Reload[models.Video](s.T(), s.db, video.ID)
	s.Nil(reloadedVideo.ProjectID)
	s.Empty(reloadedVideo.AISuggestedTasks)
}

func (s *ServiceSuite) TestProjectMembers_AddAndRemove() {
	svc := NewProjectService(s.store, s.cache)
	task := testutil.CreateTask(s.T(), s.db, s.project, "Frame walls", &s.worker.ID)

	_, err := svc.AddMembers(s.pm, s.project.ID, []uuid.UUID{s.safetyMgr.ID, s.safetyMgr.ID})
	s.Require().NoError(err)
	s.ElementsMatch([]uuid.UUID{s.foreman.ID, s.worker.ID, s.safetyMgr.ID}, []uuid.UUID(s.reloadProject(s.project.ID).UserIDs))

	_, err = svc.RemoveMember(s.pm, s.project.ID, s.worker.ID)
	s.Require().NoError(err)
	s.False(s.reloadProject(s.project.ID).HasMember(s.worker.ID))
	s.Nil(s.reloadTask(task.ID).AssigneeID)

	_, err = svc.RemoveMember(s.pm, s.project.ID, s.worker.ID)
	s.ErrorIs(err, ErrUserNotFound)
}

// interleavedProjects runs meanwhile once, just before the first write, to
// stand in for a request that lands between a read and its write.
type interleavedProjects struct {
	repository.ProjectRepository
	meanwhile func()
}

func (r *interleavedProjects) interleave() {
	if r.meanwhile != nil {
		fn := r.meanwhile
		r.meanwhile = nil
		fn()
	}
}

func (r *interleavedProjects) Update(project *models.Project) error {
	r.interleave()
	return r.ProjectRepository.Update(project)
}

func (r *interleavedProjects) ModifyIDs(orgID, id uuid.UUID, fn func(*models.Project)) (*models.Project, error) {
	r.interleave()
	return r.ProjectRepository.ModifyIDs(orgID, id, fn)
}

func (s *ServiceSuite) withInterleavedProjects(meanwhile func()) *repository.Store {
	store := *s.store
	store.Projects = &interleavedProjects{ProjectRepository: s.store.Projects, meanwhile: meanwhile}
	return &store
}

func (s *ServiceSuite) TestProjectUpdate_KeepsTaskCreatedMeanwhile() {
	tasks := NewTaskService(s.store, s.cache)
	var created *models.Task
	svc := NewProjectService(s.withInterleavedProjects(func() {
		var err error
		created, err = tasks.CreateTask(s.pm, CreateTaskInput{ProjectID: s.project.ID, Name: "Set anchors"})
		s.Require().NoError(err)
	}), s.cache)

	name := "Harbor View Phase II"
	_, err := svc.Update(s.pm, s.project.ID, UpdateProjectInput{Name: &name})
	s.Require().NoError(err)

	reloaded := s.reloadProject(s.project.ID)
	s.Equal(name, reloaded.Name)
	s.Require().NotNil(created)
	s.Contains([]uuid.UUID(reloaded.TaskIDs), created.ID)
}

func (s *ServiceSuite) TestProjectAddMembers_KeepsTaskCreatedMeanwhile() {
	tasks := NewTaskService(s.store, s.cache)
	var created *models.Task
	svc := NewProjectService(s.withInterleavedProjects(func() {
		var err error
		created, err = tasks.CreateTask(s.pm, CreateTaskInput{ProjectID: s.project.ID, Name: "Set anchors"})
		s.Require().NoError(err)
	}), s.cache)

	_, err := svc.AddMembers(s.pm, s.project.ID, []uuid.UUID{s.safetyMgr.ID})
	s.Require().NoError(err)

	reloaded := s.reloadProject(s.project.ID)
	s.True(reloaded.HasMember(s.safetyMgr.ID))
	s.Require().NotNil(created)
	s.Contains([]uuid.UUID(reloaded.TaskIDs), created.ID)
}

func (s *ServiceSuite) TestProjectUpdate_DeletedMeanwhileIsNotFound() {
	projects := NewProjectService(s.store, s.cache)
	svc := NewProjectService(s.withInterleavedProjects(func() {
		s.Require().NoError(projects.Delete(s.pm, s.project.ID))
	}), s.cache)

	name := "Renamed"
	_, err := svc.Update(s.pm, s.project.ID, UpdateProjectInput{Name: &name})
	s.ErrorIs(err, ErrProjectNotFound)

	var row models.Project
	s.Require().NoError(s.db.Unscoped().Where("id = ?", s.project.ID).First(&row).Error)
	s.True(row.DeletedAt.Valid, "the update does not resurrect the project")
}
