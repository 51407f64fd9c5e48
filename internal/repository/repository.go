package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrganizationRepository defines the interface for organization data access
type OrganizationRepository interface {
	// Create creates a new organization
	Create(org *models.Organization) error

	// FindByID finds an organization by ID
	FindByID(id uuid.UUID) (*models.Organization, error)

	// FindByInviteCode finds an organization by invite code
	FindByInviteCode(code string) (*models.Organization, error)

	// Update updates an organization
	Update(org *models.Organization) error
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(user *models.User) error
	FindByID(id uuid.UUID) (*models.User, error)
	FindByEmail(email string) (*models.User, error)

	// FindInOrganization finds a user only if they belong to the organization
	FindInOrganization(orgID, id uuid.UUID) (*models.User, error)

	// FindByProcoreID also returns removed members, so callers can tell a
	// local deletion from a record that was never imported
	FindByProcoreID(orgID uuid.UUID, procoreID string) (*models.User, error)

	// ListByOrganization lists every member of an organization ordered by name
	ListByOrganization(orgID uuid.UUID) ([]models.User, error)

	// CountInOrganization counts how many of the given ids are members of the organization
	CountInOrganization(orgID uuid.UUID, ids []uuid.UUID) (int64, error)

	Update(user *models.User) error
	Delete(id uuid.UUID) error
}

// ProjectFilter holds filtering options for listing projects
type ProjectFilter struct {
	OrganizationID uuid.UUID
	Status         *models.ProjectStatus
	// MemberID restricts results to projects whose user_ids contain the id
	MemberID *uuid.UUID
	Page     int
	PageSize int
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	Create(project *models.Project) error
	FindByID(orgID, id uuid.UUID) (*models.Project, error)

	// FindForUpdate loads a live project and locks its row until the
	// surrounding transaction ends
	FindForUpdate(orgID, id uuid.UUID) (*models.Project, error)

	// FindByProcoreID includes soft-deleted projects
	FindByProcoreID(orgID uuid.UUID, procoreID string) (*models.Project, error)
	List(filter ProjectFilter) ([]models.Project, int64, error)

	// Update writes the descriptive columns only. task_ids and user_ids are
	// changed through ModifyIDs.
	Update(project *models.Project) error

	// ModifyIDs reloads the project under a row lock, lets fn edit TaskIDs
	// and UserIDs, and writes back just those two columns
	ModifyIDs(orgID, id uuid.UUID, fn func(project *models.Project)) (*models.Project, error)
	Delete(id uuid.UUID) error
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	OrganizationID uuid.UUID
	ProjectIDs     []uuid.UUID
	// RestrictToProjects makes an empty ProjectIDs match nothing instead of everything
	RestrictToProjects bool
	Status             *models.TaskStatus
	ExcludeStatus      *models.TaskStatus
	AssigneeID         *uuid.UUID
	DueFrom            *time.Time
	DueTo              *time.Time
	Page               int
	PageSize           int
}

// TaskStatusCount is one row of TaskRepository.StatusCounts
type TaskStatusCount struct {
	ProjectID uuid.UUID
	Status    models.TaskStatus
	Count     int64
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	Create(task *models.Task) error
	FindByID(orgID, id uuid.UUID) (*models.Task, error)
	FindByIDs(orgID uuid.UUID, ids []uuid.UUID) ([]models.Task, error)

	// FindByProcoreID includes soft-deleted tasks
	FindByProcoreID(orgID uuid.UUID, procoreID string) (*models.Task, error)
	List(filter TaskFilter) ([]models.Task, int64, error)
	Update(task *models.Task) error
	Delete(id uuid.UUID) error

	// DeleteByProject soft deletes every task of a project
	DeleteByProject(projectID uuid.UUID) error

	// UnassignUser clears assignee_id wherever it points at the user
	UnassignUser(orgID, userID uuid.UUID) error
	UnassignUserFromProject(projectID, userID uuid.UUID) error

	// StatusCounts groups task counts by project and status. An empty
	// projectIDs covers the whole organization.
	StatusCounts(orgID uuid.UUID, projectIDs []uuid.UUID) ([]TaskStatusCount, error)

	// CompletedSince returns completion timestamps after since
	CompletedSince(orgID uuid.UUID, since time.Time) ([]time.Time, error)
}

// SafetyFilter holds filtering options for listing safety alerts
type SafetyFilter struct {
	OrganizationID     uuid.UUID
	ProjectIDs         []uuid.UUID
	RestrictToProjects bool
	Severity           *models.Severity
	Resolved           *bool
	ResolvedSince      *time.Time
	Page               int
	PageSize           int
}

// SafetyRepository defines the interface for safety alert data access
type SafetyRepository interface {
	Create(alert *models.SafetyAlert) error
	FindByID(orgID, id uuid.UUID) (*models.SafetyAlert, error)

	// FindByProcoreID includes soft-deleted alerts
	FindByProcoreID(orgID uuid.UUID, procoreID string) (*models.SafetyAlert, error)
	List(filter SafetyFilter) ([]models.SafetyAlert, int64, error)

	// CountBySeverity counts alerts matching the filter, ignoring pagination
	CountBySeverity(filter SafetyFilter) (map[models.Severity]int64, error)
	Update(alert *models.SafetyAlert) error
	Delete(id uuid.UUID) error

	// DetachProject clears project_id on alerts of a deleted project
	DetachProject(projectID uuid.UUID) error

	// DetachTask clears task_id on alerts of a deleted task
	DetachTask(taskID uuid.UUID) error

	// ReportedSince returns creation timestamps after since
	ReportedSince(orgID uuid.UUID, since time.Time) ([]time.Time, error)
}

// VideoFilter holds filtering options for listing videos
type VideoFilter struct {
	OrganizationID     uuid.UUID
	ProjectIDs         []uuid.UUID
	RestrictToProjects bool
	UploaderID         *uuid.UUID
	Status             *models.VideoStatus
	Page               int
	PageSize           int
}

// VideoRepository defines the interface for video data access
type VideoRepository interface {
	Create(video *models.Video) error
	FindByID(orgID, id uuid.UUID) (*models.Video, error)
	List(filter VideoFilter) ([]models.Video, int64, error)
	Update(video *models.Video) error

	// Transition applies values to a live video only while its status is one
	// of from. It reports whether a row was changed.
	Transition(orgID, id uuid.UUID, from []models.VideoStatus, values map[string]any) (bool, error)

	// FailProcessing marks every video left in processing as failed
	FailProcessing(message string) (int64, error)
	Delete(id uuid.UUID) error

	// DetachProject clears project_id on videos of a deleted project
	DetachProject(projectID uuid.UUID) error

	// ListWithSuggestion lists videos whose staging array may reference the task
	ListWithSuggestion(orgID uuid.UUID) ([]models.Video, error)

	// UploadedSince returns creation timestamps after since
	UploadedSince(orgID uuid.UUID, since time.Time) ([]time.Time, error)
}

// Store bundles the repositories so services can run several of them inside
// one transaction.
type Store struct {
	db *gorm.DB

	Organizations OrganizationRepository
	Users         UserRepository
	Projects      ProjectRepository
	Tasks         TaskRepository
	Safety        SafetyRepository
	Videos        VideoRepository
}

// NewStore creates a Store backed by GORM repositories
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:            db,
		Organizations: NewOrganizationRepository(db),
		Users:         NewUserRepository(db),
		Projects:      NewProjectRepository(db),
		Tasks:         NewTaskRepository(db),
		Safety:        NewSafetyRepository(db),
		Videos:        NewVideoRepository(db),
	}
}

// Transaction runs fn with a Store bound to a single database transaction.
func (s *Store) Transaction(fn func(tx *Store) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// updateRow writes every column of a live row. Save would fall back to an
// upsert when the row is gone, resurrecting soft-deleted records; with an
// explicit selection it reports the miss instead.
func updateRow(db *gorm.DB, value any) error {
	result := db.Select("*").Omit(clause.Associations).Save(value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *gorm.DB {
	return s.db
}
