package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

// FindByID finds a task within an organization with its assignee preloaded
func (r *GormTaskRepository) FindByID(orgID, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	if err := r.db.Preload("Assignee").
		Where("organization_id = ? AND id = ?", orgID, id).
		First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *GormTaskRepository) FindByIDs(orgID uuid.UUID, ids []uuid.UUID) ([]models.Task, error) {
	if len(ids) == 0 {
		return []models.Task{}, nil
	}
	var tasks []models.Task
	if err := r.db.Where("organization_id = ? AND id IN ?", orgID, ids).Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *GormTaskRepository) FindByProcoreID(orgID uuid.UUID, procoreID string) (*models.Task, error) {
	var task models.Task
	if err := r.db.Unscoped().Where("organization_id = ? AND procore_id = ?", orgID, procoreID).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List retrieves tasks with filtering and pagination, earliest planned end first
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, int64, error) {
	if filter.RestrictToProjects && len(filter.ProjectIDs) == 0 {
		return []models.Task{}, 0, nil
	}

	query := r.db.Model(&models.Task{}).Where("tasks.organization_id = ?", filter.OrganizationID)
	if len(filter.ProjectIDs) > 0 {
		query = query.Where("tasks.project_id IN ?", filter.ProjectIDs)
	}
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.ExcludeStatus != nil {
		query = query.Where("tasks.status <> ?", *filter.ExcludeStatus)
	}
	if filter.AssigneeID != nil {
		query = query.Where("tasks.assignee_id = ?", *filter.AssigneeID)
	}
	if filter.DueFrom != nil {
		query = query.Where("tasks.planned_end >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		query = query.Where("tasks.planned_end < ?", *filter.DueTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.
		Order("CASE WHEN tasks.planned_end IS NULL THEN 1 ELSE 0 END, tasks.planned_end ASC").
		Order("tasks.created_at DESC")

	var tasks []models.Task
	if err := paginate(listQuery, filter.Page, filter.PageSize).Preload("Assignee").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// Update updates a task
func (r *GormTaskRepository) Update(task *models.Task) error {
	return updateRow(r.db, task)
}

// Delete soft deletes a task
func (r *GormTaskRepository) Delete(id uuid.UUID) error {
	return r.db.Where("id = ?", id).Delete(&models.Task{}).Error
}

func (r *GormTaskRepository) DeleteByProject(projectID uuid.UUID) error {
	return r.db.Where("project_id = ?", projectID).Delete(&models.Task{}).Error
}

func (r *GormTaskRepository) UnassignUser(orgID, userID uuid.UUID) error {
	return r.db.Model(&models.Task{}).
		Where("organization_id = ? AND assignee_id = ?", orgID, userID).
		Update("assignee_id", nil).Error
}

func (r *GormTaskRepository) UnassignUserFromProject(projectID, userID uuid.UUID) error {
	return r.db.Model(&models.Task{}).
		Where("project_id = ? AND assignee_id = ?", projectID, userID).
		Update("assignee_id", nil).Error
}

func (r *GormTaskRepository) StatusCounts(orgID uuid.UUID, projectIDs []uuid.UUID) ([]TaskStatusCount, error) {
	query := r.db.Model(&models.Task{}).
		Select("project_id, status, COUNT(*) AS count").
		Where("organization_id = ?", orgID)
	if len(projectIDs) > 0 {
		query = query.Where("project_id IN ?", projectIDs)
	}

	var counts []TaskStatusCount
	if err := query.Group("project_id, status").Scan(&counts).Error; err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *GormTaskRepository) CompletedSince(orgID uuid.UUID, since time.Time) ([]time.Time, error) {
	var times []time.Time
	err := r.db.Model(&models.Task{}).
		Where("organization_id = ? AND status = ? AND completed_at >= ?", orgID, models.TaskStatusCompleted, since).
		Pluck("completed_at", &times).Error
	return times, err
}
