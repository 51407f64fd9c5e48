package dto

import (
	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/n1kh11p/blokt-sub000/internal/services"
	"github.com/n1kh11p/blokt-sub000/internal/utils"
)

// ProjectListResponse represents a paginated list of projects
type ProjectListResponse struct {
	Projects   []services.ProjectProgress `json:"projects"`
	Pagination utils.PaginationResponse   `json:"pagination"`
}

type CreateProjectRequest struct {
	Name        string               `json:"name" binding:"required"`
	Description string               `json:"description"`
	Location    string               `json:"location"`
	Status      models.ProjectStatus `json:"status"`
	StartDate   *Date                `json:"start_date"`
	EndDate     *Date                `json:"end_date"`
	Budget      *float64             `json:"budget"`
	MemberIDs   []uuid.UUID          `json:"user_ids"`
}

// UpdateProjectRequest is a partial update; nullable fields sent as null are cleared.
type UpdateProjectRequest struct {
	Name        *string               `json:"name"`
	Description *string               `json:"description"`
	Location    *string               `json:"location"`
	Status      *models.ProjectStatus `json:"status"`
	StartDate   Optional[Date]        `json:"start_date"`
	EndDate     Optional[Date]        `json:"end_date"`
	Budget      Optional[float64]     `json:"budget"`
}

func (r UpdateProjectRequest) ToInput() services.UpdateProjectInput {
	start, clearStart := OptionalDate(r.StartDate)
	end, clearEnd := OptionalDate(r.EndDate)
	return services.UpdateProjectInput{
		Name:           r.Name,
		Description:    r.Description,
		Location:       r.Location,
		Status:         r.Status,
		StartDate:      start,
		EndDate:        end,
		ClearStartDate: clearStart,
		ClearEndDate:   clearEnd,
		Budget:         r.Budget.Value,
		ClearBudget:    r.Budget.Cleared(),
	}
}

type ProjectMembersRequest struct {
	UserIDs []uuid.UUID `json:"user_ids" binding:"required"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []models.Task            `json:"tasks"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

type CreateTaskRequest struct {
	ProjectID    uuid.UUID         `json:"project_id" binding:"required"`
	Name         string            `json:"name" binding:"required"`
	Description  string            `json:"description"`
	Status       models.TaskStatus `json:"status"`
	PlannedStart *Date             `json:"planned_start"`
	PlannedEnd   *Date             `json:"planned_end"`
	AssigneeID   *uuid.UUID        `json:"assignee_id"`
}

type UpdateTaskRequest struct {
	Name         *string             `json:"name"`
	Description  *string             `json:"description"`
	Status       *models.TaskStatus  `json:"status"`
	PlannedStart Optional[Date]      `json:"planned_start"`
	PlannedEnd   Optional[Date]      `json:"planned_end"`
	AssigneeID   Optional[uuid.UUID] `json:"assignee_id"`
}

func (r UpdateTaskRequest) ToInput() services.UpdateTaskInput {
	start, clearStart := OptionalDate(r.PlannedStart)
	end, clearEnd := OptionalDate(r.PlannedEnd)
	return services.UpdateTaskInput{
		Name:              r.Name,
		Description:       r.Description,
		Status:            r.Status,
		PlannedStart:      start,
		PlannedEnd:        end,
		ClearPlannedStart: clearStart,
		ClearPlannedEnd:   clearEnd,
		AssigneeID:        r.AssigneeID.Value,
		ClearAssignee:     r.AssigneeID.Cleared(),
	}
}

type UpdateTaskStatusRequest struct {
	Status models.TaskStatus `json:"status" binding:"required"`
}
