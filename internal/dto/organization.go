package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/n1kh11p/blokt-sub000/internal/services"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID             uuid.UUID   `json:"id"`
	OrganizationID uuid.UUID   `json:"organization_id"`
	Email          string      `json:"email"`
	Name           string      `json:"name"`
	Role           models.Role `json:"role"`
	ProcoreID      *string     `json:"procore_id,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// OrganizationDTO represents an organization in API responses
type OrganizationDTO struct {
	ID                 uuid.UUID  `json:"id"`
	Name               string     `json:"name"`
	InviteCode         string     `json:"invite_code,omitempty"`
	ProcoreCompanyID   *string    `json:"procore_company_id"`
	ProcoreConnectedAt *time.Time `json:"procore_connected_at"`
}

// TeamMemberDTO is a user with the projects they belong to
type TeamMemberDTO struct {
	UserDTO
	ProjectIDs []uuid.UUID `json:"project_ids"`
}

// MeResponse is the authenticated user with their organization
type MeResponse struct {
	User         UserDTO         `json:"user"`
	Organization OrganizationDTO `json:"organization"`
}

func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:             user.ID,
		OrganizationID: user.OrganizationID,
		Email:          user.Email,
		Name:           user.Name,
		Role:           user.Role,
		ProcoreID:      user.ProcoreID,
		CreatedAt:      user.CreatedAt,
	}
}

// ToOrganizationDTO converts an organization. The services blank the invite
// code for roles that may not see it.
func ToOrganizationDTO(org models.Organization) OrganizationDTO {
	return OrganizationDTO{
		ID:                 org.ID,
		Name:               org.Name,
		InviteCode:         org.InviteCode,
		ProcoreCompanyID:   org.ProcoreCompanyID,
		ProcoreConnectedAt: org.ProcoreConnectedAt,
	}
}

func ToTeamMemberDTO(member services.TeamMember) TeamMemberDTO {
	ids := member.ProjectIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return TeamMemberDTO{
		UserDTO:    ToUserDTO(member.User),
		ProjectIDs: ids,
	}
}

// RegisterRequest creates a founder (organization_name) or an invitee (invite_code).
type RegisterRequest struct {
	Email            string      `json:"email" binding:"required"`
	Password         string      `json:"password" binding:"required"`
	Name             string      `json:"name" binding:"required"`
	Role             models.Role `json:"role"`
	OrganizationName string      `json:"organization_name"`
	InviteCode       string      `json:"invite_code"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse carries a device token for headless clients.
type TokenResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

type UpdateProfileRequest struct {
	Name            *string `json:"name"`
	CurrentPassword string  `json:"current_password"`
	NewPassword     string  `json:"new_password"`
}

type UpdateOrganizationRequest struct {
	Name string `json:"name" binding:"required"`
}

type CreateMemberRequest struct {
	Email      string      `json:"email" binding:"required"`
	Name       string      `json:"name" binding:"required"`
	Role       models.Role `json:"role" binding:"required"`
	Password   string      `json:"password" binding:"required"`
	ProjectIDs []uuid.UUID `json:"project_ids"`
}

type UpdateMemberRequest struct {
	Name *string      `json:"name"`
	Role *models.Role `json:"role"`
}

type ProcoreConnectRequest struct {
	CompanyID string `json:"company_id"`
}
