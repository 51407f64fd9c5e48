package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/constants"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/n1kh11p/blokt-sub000/internal/repository"
	"github.com/n1kh11p/blokt-sub000/internal/utils"
	"gorm.io/gorm"
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func requireName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", validationError("name is required")
	}
	if len(name) > constants.MaxNameLength {
		return "", validationError("name must be at most %d characters", constants.MaxNameLength)
	}
	return name, nil
}

func requirePermission(actor *models.User, perm models.Permission) error {
	if !actor.Role.Can(perm) {
		return fmt.Errorf("%w: role %s cannot %s", ErrPermissionDenied, actor.Role, perm)
	}
	return nil
}

// notFound maps gorm.ErrRecordNotFound to the service sentinel and wraps
// anything else.
func notFound(err error, sentinel error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

// linkError reports a missing referenced row as invalid input rather than a
// missing resource.
func linkError(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrProjectNotFound) {
		return validationError("%s does not exist", what)
	}
	return fmt.Errorf("failed to find %s: %w", what, err)
}

func canSeeProject(actor *models.User, project *models.Project) bool {
	return actor.Role.SeesAllProjects() || project.HasMember(actor.ID)
}

// visibleProject loads a project the actor may see. Projects outside the
// actor's visibility are reported as not found.
func visibleProject(projects repository.ProjectRepository, actor *models.User, id uuid.UUID) (*models.Project, error) {
	project, err := projects.FindByID(actor.OrganizationID, id)
	if err != nil {
		return nil, notFound(err, ErrProjectNotFound, "find project")
	}
	if !canSeeProject(actor, project) {
		return nil, ErrProjectNotFound
	}
	return project, nil
}

// projectScope is the set of projects an actor may see. All means the whole
// organization and IDs is unused.
type projectScope struct {
	All bool
	IDs []uuid.UUID
}

func scopeFor(projects repository.ProjectRepository, actor *models.User) (projectScope, error) {
	if actor.Role.SeesAllProjects() {
		return projectScope{All: true}, nil
	}
	list, _, err := projects.List(repository.ProjectFilter{
		OrganizationID: actor.OrganizationID,
		MemberID:       &actor.ID,
	})
	if err != nil {
		return projectScope{}, fmt.Errorf("failed to resolve visible projects: %w", err)
	}
	ids := make([]uuid.UUID, len(list))
	for i, p := range list {
		ids[i] = p.ID
	}
	return projectScope{IDs: ids}, nil
}

// Narrow restricts the scope to one project; the result is empty if the
// project is not visible.
func (s projectScope) Narrow(projectID *uuid.UUID) projectScope {
	if projectID == nil {
		return s
	}
	if s.All || utils.ContainsID(s.IDs, *projectID) {
		return projectScope{IDs: []uuid.UUID{*projectID}}
	}
	return projectScope{IDs: []uuid.UUID{}}
}

// Restricted reports whether an empty IDs slice must match nothing.
func (s projectScope) Restricted() bool {
	return !s.All
}
