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
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// OrganizationService provides organization settings and team management.
type OrganizationService struct {
	store *repository.Store
	cache CacheInvalidator
}

// NewOrganizationService creates a new OrganizationService.
func NewOrganizationService(store *repository.Store, cache CacheInvalidator) *OrganizationService {
	return &OrganizationService{store: store, cache: cache}
}

// GetOrganization returns the actor's organization. The invite code is only
// shown to team managers.
func (s *OrganizationService) GetOrganization(actor *models.User) (*models.Organization, error) {
	org, err := s.store.Organizations.FindByID(actor.OrganizationID)
	if err != nil {
		return nil, notFound(err, ErrOrganizationNotFound, "find organization")
	}
	if !actor.Role.Can(models.PermManageTeam) {
		org.InviteCode = ""
	}
	return org, nil
}

// UpdateOrganizationName updates an organization's name.
func (s *OrganizationService) UpdateOrganizationName(actor *models.User, name string) (*models.Organization, error) {
	if err := requirePermission(actor, models.PermManageTeam); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("organization name cannot be empty")
	}

	org, err := s.store.Organizations.FindByID(actor.OrganizationID)
	if err != nil {
		return nil, notFound(err, ErrOrganizationNotFound, "find organization")
	}
	org.Name = name
	if err := s.store.Organizations.Update(org); err != nil {
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}
	return org, nil
}

// RegenerateInviteCode generates a new invite code for the organization.
func (s *OrganizationService) RegenerateInviteCode(actor *models.User) (*models.Organization, error) {
	if err := requirePermission(actor, models.PermManageTeam); err != nil {
		return nil, err
	}
	org, err := s.store.Organizations.FindByID(actor.OrganizationID)
	if err != nil {
		return nil, notFound(err, ErrOrganizationNotFound, "find organization")
	}

	code, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invite code: %w", err)
	}
	org.InviteCode = code
	if err := s.store.Organizations.Update(org); err != nil {
		return nil, fmt.Errorf("failed to update invite code: %w", err)
	}
	return org, nil
}

// TeamMember is a user with the projects they belong to.
type TeamMember struct {
	models.User
	ProjectIDs []uuid.UUID `json:"project_ids"`
}

// ListMembers returns every member of the actor's organization.
func (s *OrganizationService) ListMembers(actor *models.User) ([]TeamMember, error) {
	users, err := s.store.Users.ListByOrganization(actor.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organization members: %w", err)
	}
	projects, _, err := s.store.Projects.List(repository.ProjectFilter{OrganizationID: actor.OrganizationID})
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}

	members := make([]TeamMember, len(users))
	for i, u := range users {
		members[i] = TeamMember{User: u, ProjectIDs: []uuid.UUID{}}
		for _, p := range projects {
			if p.HasMember(u.ID) {
				members[i].ProjectIDs = append(members[i].ProjectIDs, p.ID)
			}
		}
	}
	return members, nil
}

type CreateMemberInput struct {
	Email      string
	Name       string
	Role       models.Role
	Password   string
	ProjectIDs []uuid.UUID
}

// CreateMember adds a user with a temporary password and optionally puts
// them on projects.
func (s *OrganizationService) CreateMember(actor *models.User, input CreateMemberInput) (*TeamMember, error) {
	if err := requirePermission(actor, models.PermManageTeam); err != nil {
		return nil, err
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	name, err := requireName(input.Name)
	if err != nil {
		return nil, err
	}
	if !input.Role.Valid() {
		return nil, validationError("unknown role %q", input.Role)
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, validationError("password must be at least %d characters", constants.MinPasswordLength)
	}

	if _, err := s.store.Users.FindByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &models.User{
		OrganizationID: actor.OrganizationID,
		Email:          email,
		Name:           name,
		PasswordHash:   string(hash),
		Role:           input.Role,
	}
	projectIDs := utils.UniqueIDs(input.ProjectIDs)

	err = s.store.Transaction(func(tx *repository.Store) error {
		if err := tx.Users.Create(user); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailTaken
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		for _, projectID := range projectIDs {
			_, err := tx.Projects.ModifyIDs(actor.OrganizationID, projectID, func(p *models.Project) {
				p.UserIDs = utils.AppendUniqueIDs(p.UserIDs, user.ID)
			})
			if err != nil {
				return linkError(err, "project "+projectID.String())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	invalidate(s.cache, actor.OrganizationID)
	return &TeamMember{User: *user, ProjectIDs: projectIDs}, nil
}

type UpdateMemberInput struct {
	Name *string
	Role *models.Role
}

// UpdateMember changes another member's name or role. Managers cannot change
// their own role.
func (s *OrganizationService) UpdateMember(actor *models.User, userID uuid.UUID, input UpdateMemberInput) (*models.User, error) {
	if err := requirePermission(actor, models.PermManageTeam); err != nil {
		return nil, err
	}
	user, err := s.store.Users.FindInOrganization(actor.OrganizationID, userID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound, "find organization member")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, validationError("name cannot be empty")
		}
		user.Name = name
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, validationError("unknown role %q", *input.Role)
		}
		if user.ID == actor.ID && *input.Role != actor.Role {
			return nil, validationError("you cannot change your own role")
		}
		user.Role = *input.Role
	}

	if err := s.store.Users.Update(user); err != nil {
		return nil, notFound(err, ErrUserNotFound, "update member")
	}
	invalidate(s.cache, actor.OrganizationID)
	return user, nil
}

// RemoveMember removes a member from the organization, scrubbing them from
// every project and unassigning their tasks. The email is released so it can
// register again.
func (s *OrganizationService) RemoveMember(actor *models.User, userID uuid.UUID) error {
	if err := requirePermission(actor, models.PermManageTeam); err != nil {
		return err
	}
	if userID == actor.ID {
		return ErrCannotRemoveYourself
	}
	user, err := s.store.Users.FindInOrganization(actor.OrganizationID, userID)
	if err != nil {
		return notFound(err, ErrUserNotFound, "find organization member")
	}

	err = s.store.Transaction(func(tx *repository.Store) error {
		projects, _, err := tx.Projects.List(repository.ProjectFilter{
			OrganizationID: actor.OrganizationID,
			MemberID:       &user.ID,
		})
		if err != nil {
			return fmt.Errorf("failed to list member projects: %w", err)
		}
		for _, project := range projects {
			_, err := tx.Projects.ModifyIDs(actor.OrganizationID, project.ID, func(p *models.Project) {
				p.UserIDs = utils.RemoveIDs(p.UserIDs, user.ID)
			})
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to remove member from project: %w", err)
			}
		}
		if err := tx.Tasks.UnassignUser(actor.OrganizationID, user.ID); err != nil {
			return fmt.Errorf("failed to unassign tasks: %w", err)
		}
		user.Email = fmt.Sprintf("removed+%s@%s", user.ID, constants.RemovedUserEmailDomain)
		if err := tx.Users.Update(user); err != nil {
			return fmt.Errorf("failed to release email: %w", err)
		}
		if err := tx.Users.Delete(user.ID); err != nil {
			return fmt.Errorf("failed to remove member: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	invalidate(s.cache, actor.OrganizationID)
	return nil
}
