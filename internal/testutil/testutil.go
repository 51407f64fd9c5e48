// Package testutil provides an in-memory database and fixture builders for
// package tests.
package testutil

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/database"
	"github.com/n1kh11p/blokt-sub000/internal/logger"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Password is the plaintext behind every fixture user's hash.
const Password = "correct-horse"

var passwordHash = func() string {
	hash, err := bcrypt.GenerateFromPassword([]byte(Password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(hash)
}()

// NewDB opens a migrated in-memory SQLite database that lives for the test.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := database.Open(sqlite.Open(":memory:"), logger.Discard())
	require.NoError(t, err)

	// every connection to :memory: is a separate database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db, logger.Discard()))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func CreateOrganization(t testing.TB, db *gorm.DB, name string) *models.Organization {
	t.Helper()
	org := &models.Organization{Name: name, InviteCode: strings.ToUpper(uuid.NewString()[:14])}
	require.NoError(t, db.Create(org).Error)
	return org
}

func CreateUser(t testing.TB, db *gorm.DB, orgID uuid.UUID, role models.Role) *models.User {
	t.Helper()
	id := uuid.New()
	user := &models.User{
		Base:           models.Base{ID: id},
		OrganizationID: orgID,
		Email:          id.String() + "@example.com",
		Name:           string(role) + " " + id.String()[:4],
		PasswordHash:   passwordHash,
		Role:           role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func CreateProject(t testing.TB, db *gorm.DB, orgID uuid.UUID, name string, members ...uuid.UUID) *models.Project {
	t.Helper()
	project := &models.Project{
		OrganizationID: orgID,
		Name:           name,
		Status:         models.ProjectStatusActive,
		UserIDs:        datatypes.JSONSlice[uuid.UUID](members),
	}
	require.NoError(t, db.Create(project).Error)
	return project
}

// CreateTask inserts a task and appends it to the project's task_ids.
func CreateTask(t testing.TB, db *gorm.DB, project *models.Project, name string, assignee *uuid.UUID) *models.Task {
	t.Helper()
	task := &models.Task{
		OrganizationID: project.OrganizationID,
		ProjectID:      project.ID,
		Name:           name,
		Status:         models.TaskStatusPending,
		AssigneeID:     assignee,
	}
	require.NoError(t, db.Create(task).Error)

	project.TaskIDs = append(project.TaskIDs, task.ID)
	require.NoError(t, db.Save(project).Error)
	return task
}

func CreateAlert(t testing.TB, db *gorm.DB, orgID uuid.UUID, projectID *uuid.UUID, reporter uuid.UUID, severity models.Severity) *models.SafetyAlert {
	t.Helper()
	alert := &models.SafetyAlert{
		OrganizationID: orgID,
		ProjectID:      projectID,
		ReportedBy:     reporter,
		Title:          "Missing guardrail",
		Severity:       severity,
	}
	require.NoError(t, db.Create(alert).Error)
	return alert
}

func CreateVideo(t testing.TB, db *gorm.DB, orgID uuid.UUID, projectID *uuid.UUID, uploader uuid.UUID, status models.VideoStatus, suggested ...uuid.UUID) *models.Video {
	t.Helper()
	video := &models.Video{
		OrganizationID:   orgID,
		ProjectID:        projectID,
		UploaderID:       uploader,
		FileName:         "walkthrough.mp4",
		StorageKey:       "videos/" + uuid.NewString() + ".mp4",
		Status:           status,
		AISuggestedTasks: datatypes.JSONSlice[uuid.UUID](suggested),
	}
	if status == models.VideoStatusAnalyzed {
		now := time.Now().UTC()
		video.AnalyzedAt = &now
	}
	require.NoError(t, db.Create(video).Error)
	return video
}

// Reload re-reads a row by primary key.
func Reload[T any](t testing.TB, db *gorm.DB, id uuid.UUID) *T {
	t.Helper()
	var out T
	require.NoError(t, db.Where("id = ?", id).First(&out).Error)
	return &out
}
