package services

import (
	"time"

	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/n1kh11p/blokt-sub000/internal/testutil"
)

func (s *ServiceSuite) newTaskService() *TaskService {
	svc := NewTaskService(s.store, s.cache)
	svc.now = s.fixedClock
	return svc
}

func (s *ServiceSuite) TestCreateTask_AppendsIDOnce() {
	svc := s.newTaskService()

	task, err := svc.CreateTask(s.foreman, CreateTaskInput{ProjectID: s.project.ID, Name: "Pour slab"})
	s.Require().NoError(err)
	s.Equal(models.TaskStatusPending, task.Status)
	s.Equal([]uuid.UUID{task.ID}, []uuid.UUID(s.reloadProject(s.project.ID).TaskIDs))
}

func (s *ServiceSuite) TestCreateThenDelete_LeavesTaskIDsUnchanged() {
	svc := s.newTaskService()
	existing := testutil.CreateTask(s.T(), s.db, s.project, "Existing", nil)
	before := []uuid.UUID(s.reloadProject(s.project.ID).TaskIDs)

	task, err := svc.CreateTask(s.foreman, CreateTaskInput{ProjectID: s.project.ID, Name: "Temporary"})
	s.Require().NoError(err)
	s.Require().NoError(svc.DeleteTask(s.foreman, task.ID))

	s.Equal(before, []uuid.UUID(s.reloadProject(s.project.ID).TaskIDs))
	s.Equal([]uuid.UUID{existing.ID}, before)
}

func (s *ServiceSuite) TestDeleteTask_ScrubsReferences() {
	svc := s.newTaskService()
	task := testutil.CreateTask(s.T(), s.db, s.project, "Pour slab", nil)
	keep := testutil.CreateTask(s.T(), s.db, s.project, "Frame walls", nil)
	video := testutil.CreateVideo(s.T(), s.db, s.org.ID, &s.project.ID, s.worker.ID, models.VideoStatusAnalyzed, task.ID, keep.ID)
	alert := testutil.CreateAlert(s.T(), s.db, s.org.ID, &s.project.ID, s.worker.ID, models.SeverityLow)
	s.Require().NoError(s.db.Model(alert).Update("task_id", task.ID).Error)

	s.Require().NoError(svc.DeleteTask(s.pm, task.ID))

	s.Equal([]uuid.UUID{keep.ID}, []uuid.UUID(s.reloadProject(s.project.ID).TaskIDs))
	s.Equal([]uuid.UUID{keep.ID}, []uuid.UUID(testutil.Reload[models.Video](s.T(), s.db, video.ID).AISuggestedTasks))
	s.Nil(testutil.Reload[models.SafetyAlert](s.T(), s.db, alert.ID).TaskID)
}

func (s *ServiceSuite) TestCreateTask_Validation() {
	svc := s.newTaskService()
	start := s.fixedTime
	end := start.Add(-time.Hour)

	_, err := svc.CreateTask(s.foreman, CreateTaskInput{ProjectID: s.project.ID, Name: "x", PlannedStart: &start, PlannedEnd: &end})
	s.ErrorIs(err, ErrValidation)

	_, err = svc.CreateTask(s.foreman, CreateTaskInput{ProjectID: s.project.ID, Name: "x", AssigneeID: &s.safetyMgr.ID})
	s.ErrorIs(err, ErrValidation)

	_, err = svc.CreateTask(s.worker, CreateTaskInput{ProjectID: s.project.ID, Name: "x"})
	s.ErrorIs(err, ErrPermissionDenied)
}

func (s *ServiceSuite) TestUpdateStatus_StampsCompletion() {
	svc := s.newTaskService()
	task := testutil.CreateTask(s.T(), s.db, s.project, "Pour slab", &s.worker.ID)

	done, err := svc.UpdateStatus(s.worker, task.ID, models.TaskStatusCompleted)
	s.Require().NoError(err)
	s.Require().NotNil(done.CompletedAt)
	s.True(done.CompletedAt.Equal(s.fixedTime))

	reopened, err := svc.UpdateStatus(s.worker, task.ID, models.TaskStatusInProgress)
	s.Require().NoError(err)
	s.Nil(reopened.CompletedAt)
}

func (s *ServiceSuite) TestUpdateStatus_OnlyOwnTaskForFieldWorkers() {
	svc := s.newTaskService()
	task := testutil.CreateTask(s.T(), s.db, s.project, "Pour slab", &s.foreman.ID)

	_, err := svc.UpdateStatus(s.worker, task.ID, models.TaskStatusCompleted)
	s.ErrorIs(err, ErrPermissionDenied)
}

func (s *ServiceSuite) TestListTasks_DueTodayAndMine() {
	svc := s.newTaskService()
	due := testutil.CreateTask(s.T(), s.db, s.project, "Due today", &s.worker.ID)
	later := testutil.CreateTask(s.T(), s.db, s.project, "Due later", nil)
	today := s.fixedTime.Add(2 * time.Hour)
	nextWeek := s.fixedTime.AddDate(0, 0, 7)
	s.Require().NoError(s.db.Model(due).Update("planned_end", today).Error)
	s.Require().NoError(s.db.Model(later).Update("planned_end", nextWeek).Error)

	tasks, total, err := svc.ListTasks(s.worker, ListTasksInput{DueToday: true})
	s.Require().NoError(err)
	s.EqualValues(1, total)
	s.Equal(due.ID, tasks[0].ID)

	mine, _, err := svc.ListTasks(s.worker, ListTasksInput{AssignedToMe: true})
	s.Require().NoError(err)
	s.Len(mine, 1)

	hidden := testutil.CreateProject(s.T(), s.db, s.org.ID, "Hidden")
	testutil.CreateTask(s.T(), s.db, hidden, "Invisible", nil)
	visible, _, err := svc.ListTasks(s.worker, ListTasksInput{ProjectID: &hidden.ID})
	s.Require().NoError(err)
	s.Empty(visible)
}
