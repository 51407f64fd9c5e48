package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/n1kh11p/blokt-sub000/internal/repository"
	"github.com/n1kh11p/blokt-sub000/internal/utils"
)

// TaskService handles task business logic and keeps projects' task_ids in
// step with the tasks table.
type TaskService struct {
	store *repository.Store
	cache CacheInvalidator
	now   func() time.Time
}

// NewTaskService creates a new TaskService
func NewTaskService(store *repository.Store, cache CacheInvalidator) *TaskService {
	return &TaskService{store: store, cache: cache, now: time.Now}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	ProjectID    *uuid.UUID
	Status       *models.TaskStatus
	AssignedToMe bool
	DueToday     bool
	Page         int
	PageSize     int
}

// ListTasks returns tasks in the projects the actor can see
func (s *TaskService) ListTasks(actor *models.User, input ListTasksInput) ([]models.Task, int64, error) {
	scope, err := scopeFor(s.store.Projects, actor)
	if err != nil {
		return nil, 0, err
	}
	scope = scope.Narrow(input.ProjectID)

	filter := repository.TaskFilter{
		OrganizationID:     actor.OrganizationID,
		ProjectIDs:         scope.IDs,
		RestrictToProjects: scope.Restricted(),
		Status:             input.Status,
		Page:               input.Page,
		PageSize:           input.PageSize,
	}
	if input.AssignedToMe {
		filter.AssigneeID = &actor.ID
	}
	if input.DueToday {
		start, end := dayBounds(s.now())
		filter.DueFrom = &start
		filter.DueTo = &end
	}

	tasks, total, err := s.store.Tasks.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// GetTask returns a task whose project the actor can see
func (s *TaskService) GetTask(actor *models.User, id uuid.UUID) (*models.Task, error) {
	task, _, err := s.visibleTask(actor, id)
	return task, err
}

func (s *TaskService) visibleTask(actor *models.User, id uuid.UUID) (*models.Task, *models.Project, error) {
	task, err := s.store.Tasks.FindByID(actor.OrganizationID, id)
	if err != nil {
		return nil, nil, notFound(err, ErrTaskNotFound, "find task")
	}
	project, err := visibleProject(s.store.Projects, actor, task.ProjectID)
	if err != nil {
		return nil, nil, ErrTaskNotFound
	}
	return task, project, nil
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	ProjectID    uuid.UUID
	Name         string
	Description  string
	Status       models.TaskStatus
	PlannedStart *time.Time
	PlannedEnd   *time.Time
	AssigneeID   *uuid.UUID
}

// CreateTask creates a task and appends its id to the project's task_ids in
// the same transaction
func (s *TaskService) CreateTask(actor *models.User, input CreateTaskInput) (*models.Task, error) {
	if err := requirePermission(actor, models.PermManageTasks); err != nil {
		return nil, err
	}

	name, err := requireName(input.Name)
	if err != nil {
		return nil, err
	}
	status := input.Status
	if status == "" {
		status = models.TaskStatusPending
	}
	if !status.Valid() {
		return nil, validationError("unknown task status %q", status)
	}
	if err := validateDateRange(input.PlannedStart, input.PlannedEnd, "planned_end", "planned_start"); err != nil {
		return nil, err
	}

	project, err := visibleProject(s.store.Projects, actor, input.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := checkAssignee(project, input.AssigneeID); err != nil {
		return nil, err
	}

	task := &models.Task{
		OrganizationID: actor.OrganizationID,
		ProjectID:      project.ID,
		Name:           name,
		Description:    input.Description,
		PlannedStart:   input.PlannedStart,
		PlannedEnd:     input.PlannedEnd,
		AssigneeID:     input.AssigneeID,
	}
	task.SetStatus(status, s.now().UTC())

	err = s.store.Transaction(func(tx *repository.Store) error {
		locked, err := tx.Projects.FindForUpdate(project.OrganizationID, project.ID)
		if err != nil {
			return linkError(err, "project")
		}
		if err := checkAssignee(locked, input.AssigneeID); err != nil {
			return err
		}
		if err := tx.Tasks.Create(task); err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		_, err = tx.Projects.ModifyIDs(project.OrganizationID, project.ID, func(p *models.Project) {
			p.TaskIDs = utils.AppendUniqueIDs(p.TaskIDs, task.ID)
		})
		if err != nil {
			return fmt.Errorf("failed to link task to project: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	invalidate(s.cache, actor.OrganizationID)
	return s.store.Tasks.FindByID(actor.OrganizationID, task.ID)
}

// UpdateTaskInput represents input for updating a task
type UpdateTaskInput struct {
	Name              *string
	Description       *string
	Status            *models.TaskStatus
	PlannedStart      *time.Time
	PlannedEnd        *time.Time
	ClearPlannedStart bool
	ClearPlannedEnd   bool
	AssigneeID        *uuid.UUID
	ClearAssignee     bool
}

// UpdateTask updates an existing task
func (s *TaskService) UpdateTask(actor *models.User, id uuid.UUID, input UpdateTaskInput) (*models.Task, error) {
	if err := requirePermission(actor, models.PermManageTasks); err != nil {
		return nil, err
	}
	task, project, err := s.visibleTask(actor, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, validationError("name cannot be empty")
		}
		task.Name = name
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, validationError("unknown task status %q", *input.Status)
		}
		task.SetStatus(*input.Status, s.now().UTC())
	}
	task.PlannedStart = pickTime(task.PlannedStart, input.PlannedStart, input.ClearPlannedStart)
	task.PlannedEnd = pickTime(task.PlannedEnd, input.PlannedEnd, input.ClearPlannedEnd)
	if err := validateDateRange(task.PlannedStart, task.PlannedEnd, "planned_end", "planned_start"); err != nil {
		return nil, err
	}
	if input.ClearAssignee {
		task.AssigneeID = nil
	} else if input.AssigneeID != nil {
		if err := checkAssignee(project, input.AssigneeID); err != nil {
			return nil, err
		}
		task.AssigneeID = input.AssigneeID
	}
	task.Assignee = nil

	if err := s.store.Tasks.Update(task); err != nil {
		return nil, notFound(err, ErrTaskNotFound, "update task")
	}
	invalidate(s.cache, actor.OrganizationID)
	return s.store.Tasks.FindByID(actor.OrganizationID, task.ID)
}

// UpdateStatus changes only the status. Roles without task management may
// still move tasks assigned to them.
func (s *TaskService) UpdateStatus(actor *models.User, id uuid.UUID, status models.TaskStatus) (*models.Task, error) {
	if !status.Valid() {
		return nil, validationError("unknown task status %q", status)
	}
	task, _, err := s.visibleTask(actor, id)
	if err != nil {
		return nil, err
	}

	ownTask := task.AssigneeID != nil && *task.AssigneeID == actor.ID
	if !actor.Role.Can(models.PermManageTasks) && !(ownTask && actor.Role.Can(models.PermUpdateOwnTask)) {
		return nil, fmt.Errorf("%w: only the assignee or a task manager can change this task", ErrPermissionDenied)
	}

	task.SetStatus(status, s.now().UTC())
	task.Assignee = nil
	if err := s.store.Tasks.Update(task); err != nil {
		return nil, notFound(err, ErrTaskNotFound, "update status")
	}
	invalidate(s.cache, actor.OrganizationID)
	return s.store.Tasks.FindByID(actor.OrganizationID, task.ID)
}

// DeleteTask deletes a task and removes every reference to it: the owning
// project's task_ids, staged video suggestions and linked safety alerts.
func (s *TaskService) DeleteTask(actor *models.User, id uuid.UUID) error {
	if err := requirePermission(actor, models.PermManageTasks); err != nil {
		return err
	}
	task, project, err := s.visibleTask(actor, id)
	if err != nil {
		return err
	}

	err = s.store.Transaction(func(tx *repository.Store) error {
		_, err := tx.Projects.ModifyIDs(project.OrganizationID, project.ID, func(p *models.Project) {
			p.TaskIDs = utils.RemoveIDs(p.TaskIDs, task.ID)
		})
		if err != nil {
			return fmt.Errorf("failed to unlink task from project: %w", err)
		}
		if err := tx.Tasks.Delete(task.ID); err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}
		if err := tx.Safety.DetachTask(task.ID); err != nil {
			return fmt.Errorf("failed to detach alerts: %w", err)
		}
		return scrubSuggestions(tx, actor.OrganizationID, task.ID)
	})
	if err != nil {
		return err
	}

	invalidate(s.cache, actor.OrganizationID)
	return nil
}

func checkAssignee(project *models.Project, assigneeID *uuid.UUID) error {
	if assigneeID == nil {
		return nil
	}
	if !project.HasMember(*assigneeID) {
		return validationError("assignee must be a member of the project")
	}
	return nil
}

// dayBounds returns the UTC day containing t.
func dayBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}
