package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/n1kh11p/blokt-sub000/internal/dto"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/n1kh11p/blokt-sub000/internal/services"
	"github.com/n1kh11p/blokt-sub000/internal/utils"
)

type ProjectHandler struct {
	projectService *services.ProjectService
	log            *slog.Logger
}

func NewProjectHandler(projectService *services.ProjectService, log *slog.Logger) *ProjectHandler {
	return &ProjectHandler{projectService: projectService, log: log}
}

// ListProjects returns the projects visible to the current user
// Can filter by status
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	status, ok := queryEnum(c, "status", models.ProjectStatus.Valid)
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	projects, total, err := h.projectService.List(user, services.ListProjectsInput{
		Status:   status,
		Page:     params.Page,
		PageSize: params.Limit,
	})
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.ProjectListResponse{
		Projects:   projects,
		Pagination: dto.NewPagination(params, total),
	})
}

func (h *ProjectHandler) GetProject(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	project, err := h.projectService.Get(user, id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// CreateProject creates a project; the creator becomes a member
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.CreateProjectRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projectService.Create(user, services.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		Status:      req.Status,
		StartDate:   req.StartDate.Ptr(),
		EndDate:     req.EndDate.Ptr(),
		Budget:      req.Budget,
		MemberIDs:   req.MemberIDs,
	})
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, project)
}

// UpdateProject applies a partial update; sending null clears a date or the budget
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateProjectRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projectService.Update(user, id, req.ToInput())
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

// DeleteProject deletes the project with its tasks and detaches its alerts and videos
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.projectService.Delete(user, id); err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Project deleted successfully"})
}

func (h *ProjectHandler) AddMembers(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ProjectMembersRequest
	if !bindJSON(c, &req) {
		return
	}

	project, err := h.projectService.AddMembers(user, id, req.UserIDs)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, project)
}

func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	memberID, ok := pathID(c, "user_id")
	if !ok {
		return
	}

	project, err := h.projectService.RemoveMember(user, id, memberID)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, project)
}
