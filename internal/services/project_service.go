package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/n1kh11p/blokt-sub000/internal/repository"
	"github.com/n1kh11p/blokt-sub000/internal/utils"
	"gorm.io/datatypes"
)

// ProjectProgress is a project with its task completion counts.
type ProjectProgress struct {
	models.Project
	TaskCount          int64 `json:"task_count"`
	CompletedTaskCount int64 `json:"completed_task_count"`
}

// ProjectService manages projects and their membership arrays.
type ProjectService struct {
	store *repository.Store
	cache CacheInvalidator
}

func NewProjectService(store *repository.Store, cache CacheInvalidator) *ProjectService {
	return &ProjectService{store: store, cache: cache}
}

type ListProjectsInput struct {
	Status   *models.ProjectStatus
	Page     int
	PageSize int
}

// List returns the projects visible to the actor with their progress.
func (s *ProjectService) List(actor *models.User, input ListProjectsInput) ([]ProjectProgress, int64, error) {
	filter := repository.ProjectFilter{
		OrganizationID: actor.OrganizationID,
		Status:         input.Status,
		Page:           input.Page,
		PageSize:       input.PageSize,
	}
	if !actor.Role.SeesAllProjects() {
		filter.MemberID = &actor.ID
	}

	projects, total, err := s.store.Projects.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	withProgress, err := loadProgress(s.store, actor.OrganizationID, projects)
	if err != nil {
		return nil, 0, err
	}
	return withProgress, total, nil
}

// Get returns one visible project with its progress.
func (s *ProjectService) Get(actor *models.User, id uuid.UUID) (*ProjectProgress, error) {
	project, err := visibleProject(s.store.Projects, actor, id)
	if err != nil {
		return nil, err
	}
	withProgress, err := loadProgress(s.store, actor.OrganizationID, []models.Project{*project})
	if err != nil {
		return nil, err
	}
	return &withProgress[0], nil
}

// loadProgress attaches task counts to each project.
func loadProgress(store *repository.Store, orgID uuid.UUID, projects []models.Project) ([]ProjectProgress, error) {
	out := make([]ProjectProgress, len(projects))
	if len(projects) == 0 {
		return out, nil
	}

	ids := make([]uuid.UUID, len(projects))
	for i, p := range projects {
		ids[i] = p.ID
	}
	counts, err := store.Tasks.StatusCounts(orgID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	type tally struct{ total, completed int64 }
	byProject := make(map[uuid.UUID]tally, len(projects))
	for _, c := range counts {
		t := byProject[c.ProjectID]
		t.total += c.Count
		if c.Status == models.TaskStatusCompleted {
			t.completed += c.Count
		}
		byProject[c.ProjectID] = t
	}

	for i, p := range projects {
		t := byProject[p.ID]
		out[i] = ProjectProgress{Project: p, TaskCount: t.total, CompletedTaskCount: t.completed}
	}
	return out, nil
}

type CreateProjectInput struct {
	Name        string
	Description string
	Location    string
	Status      models.ProjectStatus
	StartDate   *time.Time
	EndDate     *time.Time
	Budget      *float64
	MemberIDs   []uuid.UUID
}

// Create adds a project. The creator becomes a member.
func (s *ProjectService) Create(actor *models.User, input CreateProjectInput) (*ProjectProgress, error) {
	if err := requirePermission(actor, models.PermManageProjects); err != nil {
		return nil, err
	}

	name, err := requireName(input.Name)
	if err != nil {
		return nil, err
	}
	status := input.Status
	if status == "" {
		status = models.ProjectStatusActive
	}
	if !status.Valid() {
		return nil, validationError("unknown project status %q", status)
	}
	if err := validateDateRange(input.StartDate, input.EndDate, "end_date", "start_date"); err != nil {
		return nil, err
	}
	if input.Budget != nil && *input.Budget < 0 {
		return nil, validationError("budget cannot be negative")
	}

	members := utils.AppendUniqueIDs(utils.UniqueIDs(input.MemberIDs), actor.ID)
	if err := s.ensureOrgUsers(actor.OrganizationID, members); err != nil {
		return nil, err
	}

	project := &models.Project{
		OrganizationID: actor.OrganizationID,
		Name:           name,
		Description:    input.Description,
		Location:       input.Location,
		Status:         status,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		Budget:         input.Budget,
		UserIDs:        members,
	}
	if err := s.store.Projects.Create(project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	invalidate(s.cache, actor.OrganizationID)
	return &ProjectProgress{Project: *project}, nil
}

type UpdateProjectInput struct {
	Name           *string
	Description    *string
	Location       *string
	Status         *models.ProjectStatus
	StartDate      *time.Time
	EndDate        *time.Time
	ClearStartDate bool
	ClearEndDate   bool
	Budget         *float64
	ClearBudget    bool
}

func (s *ProjectService) Update(actor *models.User, id uuid.UUID, input UpdateProjectInput) (*ProjectProgress, error) {
	if err := requirePermission(actor, models.PermManageProjects); err != nil {
		return nil, err
	}
	project, err := visibleProject(s.store.Projects, actor, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, validationError("name cannot be empty")
		}
		project.Name = name
	}
	if input.Description != nil {
		project.Description = *input.Description
	}
	if input.Location != nil {
		project.Location = *input.Location
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, validationError("unknown project status %q", *input.Status)
		}
		project.Status = *input.Status
	}
	project.StartDate = pickTime(project.StartDate, input.StartDate, input.ClearStartDate)
	project.EndDate = pickTime(project.EndDate, input.EndDate, input.ClearEndDate)
	if err := validateDateRange(project.StartDate, project.EndDate, "end_date", "start_date"); err != nil {
		return nil, err
	}
	if input.ClearBudget {
		project.Budget = nil
	} else if input.Budget != nil {
		if *input.Budget < 0 {
			return nil, validationError("budget cannot be negative")
		}
		project.Budget = input.Budget
	}

	if err := s.store.Projects.Update(project); err != nil {
		return nil, notFound(err, ErrProjectNotFound, "update project")
	}
	invalidate(s.cache, actor.OrganizationID)
	return s.Get(actor, project.ID)
}

// Delete removes a project and its tasks. Alerts and videos survive with
// their project link cleared, and no video keeps a suggestion that points at
// a deleted task.
func (s *ProjectService) Delete(actor *models.User, id uuid.UUID) error {
	if err := requirePermission(actor, models.PermManageProjects); err != nil {
		return err
	}
	project, err := visibleProject(s.store.Projects, actor, id)
	if err != nil {
		return err
	}

	err = s.store.Transaction(func(tx *repository.Store) error {
		locked, err := tx.Projects.FindForUpdate(project.OrganizationID, project.ID)
		if err != nil {
			return notFound(err, ErrProjectNotFound, "lock project")
		}
		taskIDs := append([]uuid.UUID(nil), locked.TaskIDs...)
		for _, taskID := range taskIDs {
			if err := tx.Safety.DetachTask(taskID); err != nil {
				return fmt.Errorf("failed to detach alerts from task: %w", err)
			}
		}
		if err := scrubSuggestions(tx, project.OrganizationID, taskIDs...); err != nil {
			return err
		}
		if err := tx.Tasks.DeleteByProject(project.ID); err != nil {
			return fmt.Errorf("failed to delete project tasks: %w", err)
		}
		if err := tx.Safety.DetachProject(project.ID); err != nil {
			return fmt.Errorf("failed to detach alerts: %w", err)
		}
		if err := tx.Videos.DetachProject(project.ID); err != nil {
			return fmt.Errorf("failed to detach videos: %w", err)
		}
		if err := tx.Projects.Delete(project.ID); err != nil {
			return fmt.Errorf("failed to delete project: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	invalidate(s.cache, actor.OrganizationID)
	return nil
}

// AddMembers adds organization users to the project's user_ids.
func (s *ProjectService) AddMembers(actor *models.User, id uuid.UUID, userIDs []uuid.UUID) (*ProjectProgress, error) {
	if err := requirePermission(actor, models.PermManageProjects); err != nil {
		return nil, err
	}
	userIDs = utils.UniqueIDs(userIDs)
	if len(userIDs) == 0 {
		return nil, validationError("at least one user id is required")
	}
	project, err := visibleProject(s.store.Projects, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureOrgUsers(actor.OrganizationID, userIDs); err != nil {
		return nil, err
	}

	_, err = s.store.Projects.ModifyIDs(project.OrganizationID, project.ID, func(p *models.Project) {
		p.UserIDs = utils.AppendUniqueIDs(p.UserIDs, userIDs...)
	})
	if err != nil {
		return nil, notFound(err, ErrProjectNotFound, "add members")
	}
	invalidate(s.cache, actor.OrganizationID)
	return s.Get(actor, project.ID)
}

// RemoveMember drops a user from the project and unassigns their tasks in it,
// since assignees must be project members.
func (s *ProjectService) RemoveMember(actor *models.User, id, userID uuid.UUID) (*ProjectProgress, error) {
	if err := requirePermission(actor, models.PermManageProjects); err != nil {
		return nil, err
	}
	project, err := visibleProject(s.store.Projects, actor, id)
	if err != nil {
		return nil, err
	}
	if !project.HasMember(userID) {
		return nil, ErrUserNotFound
	}

	err = s.store.Transaction(func(tx *repository.Store) error {
		_, err := tx.Projects.ModifyIDs(project.OrganizationID, project.ID, func(p *models.Project) {
			p.UserIDs = utils.RemoveIDs(p.UserIDs, userID)
		})
		if err != nil {
			return notFound(err, ErrProjectNotFound, "remove member")
		}
		if err := tx.Tasks.UnassignUserFromProject(project.ID, userID); err != nil {
			return fmt.Errorf("failed to unassign member tasks: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	invalidate(s.cache, actor.OrganizationID)
	return s.Get(actor, project.ID)
}

func (s *ProjectService) ensureOrgUsers(orgID uuid.UUID, ids []uuid.UUID) error {
	return ensureOrgUsers(s.store.Users, orgID, ids)
}

func ensureOrgUsers(users repository.UserRepository, orgID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	count, err := users.CountInOrganization(orgID, ids)
	if err != nil {
		return fmt.Errorf("failed to verify users: %w", err)
	}
	if int(count) != len(ids) {
		return validationError("one or more users do not exist or are not members of the organization")
	}
	return nil
}

// scrubSuggestions removes task ids from every staged video suggestion.
func scrubSuggestions(tx *repository.Store, orgID uuid.UUID, taskIDs ...uuid.UUID) error {
	if len(taskIDs) == 0 {
		return nil
	}
	videos, err := tx.Videos.ListWithSuggestion(orgID)
	if err != nil {
		return fmt.Errorf("failed to load staged suggestions: %w", err)
	}
	for i := range videos {
		video := &videos[i]
		kept := utils.RemoveIDs(video.AISuggestedTasks, taskIDs...)
		if len(kept) == len(video.AISuggestedTasks) {
			continue
		}
		_, err := tx.Videos.Transition(video.OrganizationID, video.ID,
			[]models.VideoStatus{models.VideoStatusAnalyzed},
			map[string]any{"ai_suggested_tasks": datatypes.JSONSlice[uuid.UUID](kept)})
		if err != nil {
			return fmt.Errorf("failed to update staged suggestions: %w", err)
		}
	}
	return nil
}

func pickTime(current, next *time.Time, clear bool) *time.Time {
	if clear {
		return nil
	}
	if next != nil {
		return next
	}
	return current
}

func validateDateRange(start, end *time.Time, endName, startName string) error {
	if start != nil && end != nil && end.Before(*start) {
		return validationError("%s cannot be before %s", endName, startName)
	}
	return nil
}
