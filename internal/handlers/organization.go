package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/n1kh11p/blokt-sub000/internal/dto"
	"github.com/n1kh11p/blokt-sub000/internal/services"
)

// OrganizationHandler serves the team page and the settings pages.
type OrganizationHandler struct {
	orgService  *services.OrganizationService
	authService *services.AuthService
	log         *slog.Logger
}

func NewOrganizationHandler(orgService *services.OrganizationService, authService *services.AuthService, log *slog.Logger) *OrganizationHandler {
	return &OrganizationHandler{
		orgService:  orgService,
		authService: authService,
		log:         log,
	}
}

// ListMembers returns every member of the caller's organization.
func (h *OrganizationHandler) ListMembers(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	members, err := h.orgService.ListMembers(user)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	out := make([]dto.TeamMemberDTO, len(members))
	for i, m := range members {
		out[i] = dto.ToTeamMemberDTO(m)
	}
	c.JSON(http.StatusOK, gin.H{"members": out})
}

// CreateMember adds a user with a temporary password.
func (h *OrganizationHandler) CreateMember(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.CreateMemberRequest
	if !bindJSON(c, &req) {
		return
	}

	member, err := h.orgService.CreateMember(user, services.CreateMemberInput{
		Email:      req.Email,
		Name:       req.Name,
		Role:       req.Role,
		Password:   req.Password,
		ProjectIDs: req.ProjectIDs,
	})
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTeamMemberDTO(*member))
}

func (h *OrganizationHandler) UpdateMember(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	memberID, ok := pathID(c, "user_id")
	if !ok {
		return
	}
	var req dto.UpdateMemberRequest
	if !bindJSON(c, &req) {
		return
	}

	member, err := h.orgService.UpdateMember(user, memberID, services.UpdateMemberInput{
		Name: req.Name,
		Role: req.Role,
	})
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*member))
}

// RemoveMember removes a user from the organization and scrubs their project
// memberships and task assignments.
func (h *OrganizationHandler) RemoveMember(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	memberID, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	if err := h.orgService.RemoveMember(user, memberID); err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Member removed successfully"})
}

func (h *OrganizationHandler) GetProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// UpdateProfile changes the caller's name and, with the current password,
// their password.
func (h *OrganizationHandler) UpdateProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := h.authService.UpdateProfile(user, services.UpdateProfileInput{
		Name:            req.Name,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*updated))
}

func (h *OrganizationHandler) GetOrganization(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	org, err := h.orgService.GetOrganization(user)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToOrganizationDTO(*org))
}

func (h *OrganizationHandler) UpdateOrganization(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.UpdateOrganizationRequest
	if !bindJSON(c, &req) {
		return
	}

	org, err := h.orgService.UpdateOrganizationName(user, req.Name)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToOrganizationDTO(*org))
}

// RegenerateInviteCode invalidates the current invite code.
func (h *OrganizationHandler) RegenerateInviteCode(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	org, err := h.orgService.RegenerateInviteCode(user)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToOrganizationDTO(*org))
}
