package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/n1kh11p/blokt-sub000/internal/dto"
	apierrors "github.com/n1kh11p/blokt-sub000/internal/errors"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/n1kh11p/blokt-sub000/internal/services"
	"github.com/n1kh11p/blokt-sub000/internal/utils"
)

type TaskHandler struct {
	taskService *services.TaskService
	log         *slog.Logger
}

func NewTaskHandler(taskService *services.TaskService, log *slog.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		log:         log,
	}
}

// ListTasks returns the tasks in projects the current user can see
// Filters: project_id, status, assignee=me, due=today
func (h *TaskHandler) ListTasks(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := queryUUID(c, "project_id")
	if !ok {
		return
	}
	status, ok := queryEnum(c, "status", models.TaskStatus.Valid)
	if !ok {
		return
	}
	assignee := c.Query("assignee")
	if assignee != "" && assignee != "me" {
		apierrors.BadRequest(c, "assignee only supports \"me\"")
		return
	}
	due := c.Query("due")
	if due != "" && due != "today" {
		apierrors.BadRequest(c, "due only supports \"today\"")
		return
	}
	params := utils.GetPaginationParams(c)

	tasks, total, err := h.taskService.ListTasks(user, services.ListTasksInput{
		ProjectID:    projectID,
		Status:       status,
		AssignedToMe: assignee == "me",
		DueToday:     due == "today",
		Page:         params.Page,
		PageSize:     params.Limit,
	})
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.TaskListResponse{
		Tasks:      tasks,
		Pagination: dto.NewPagination(params, total),
	})
}

// GetTask returns a specific task by ID
func (h *TaskHandler) GetTask(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(user, id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// CreateTask creates a new task and appends it to the project's task list
func (h *TaskHandler) CreateTask(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.CreateTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.taskService.CreateTask(user, services.CreateTaskInput{
		ProjectID:    req.ProjectID,
		Name:         req.Name,
		Description:  req.Description,
		Status:       req.Status,
		PlannedStart: req.PlannedStart.Ptr(),
		PlannedEnd:   req.PlannedEnd.Ptr(),
		AssigneeID:   req.AssigneeID,
	})
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, task)
}

// UpdateTask updates a task
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateTaskRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.taskService.UpdateTask(user, id, req.ToInput())
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// UpdateTaskStatus lets assignees move their own tasks
func (h *TaskHandler) UpdateTaskStatus(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateTaskStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	task, err := h.taskService.UpdateStatus(user, id, req.Status)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, task)
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(user, id); err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Task deleted successfully"})
}
