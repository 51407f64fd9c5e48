package services

import (
	"time"

	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/n1kh11p/blokt-sub000/internal/testutil"
)

func (s *ServiceSuite) TestWeekly_Buckets() {
	svc := NewAnalyticsService(s.store)
	svc.now = s.fixedClock

	thisWeek := s.fixedTime.Add(-24 * time.Hour)
	lastWeek := s.fixedTime.AddDate(0, 0, -7)
	longAgo := s.fixedTime.AddDate(0, 0, -100)

	for _, completedAt := range []time.Time{thisWeek, lastWeek, longAgo} {
		task := testutil.CreateTask(s.T(), s.db, s.project, "done", nil)
		s.Require().NoError(s.db.Model(task).Updates(map[string]any{
			"status":       models.TaskStatusCompleted,
			"completed_at": completedAt,
		}).Error)
	}
	alert := testutil.CreateAlert(s.T(), s.db, s.org.ID, &s.project.ID, s.worker.ID, models.SeverityLow)
	s.Require().NoError(s.db.Model(alert).Update("created_at", thisWeek).Error)

	result, err := svc.Weekly(s.exec, 4)
	s.Require().NoError(err)
	s.Require().Len(result.Weeks, 4)

	current := result.Weeks[3]
	s.Equal(time.Monday, current.WeekStart.Weekday())
	s.Equal(time.Date(2025, 7, 7, 0, 0, 0, 0, time.UTC), current.WeekStart)
	s.Equal(1, current.TasksCompleted)
	s.Equal(1, current.AlertsReported)
	s.Equal(1, result.Weeks[2].TasksCompleted)
	s.Zero(result.Weeks[0].TasksCompleted)
}

func (s *ServiceSuite) TestWeekly_LimitsAndPermissions() {
	svc := NewAnalyticsService(s.store)

	result, err := svc.Weekly(s.safetyMgr, 0)
	s.Require().NoError(err)
	s.Len(result.Weeks, 8)

	_, err = svc.Weekly(s.exec, 53)
	s.ErrorIs(err, ErrValidation)

	_, err = svc.Weekly(s.foreman, 4)
	s.ErrorIs(err, ErrPermissionDenied)
}

func (s *ServiceSuite) TestWeekStart() {
	sunday := time.Date(2025, 7, 13, 23, 0, 0, 0, time.UTC)
	s.Equal(time.Date(2025, 7, 7, 0, 0, 0, 0, time.UTC), weekStart(sunday))
	monday := time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC)
	s.Equal(monday, weekStart(monday))
}
