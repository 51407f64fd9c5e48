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

type SafetyHandler struct {
	safetyService *services.SafetyService
	log           *slog.Logger
}

func NewSafetyHandler(safetyService *services.SafetyService, log *slog.Logger) *SafetyHandler {
	return &SafetyHandler{safetyService: safetyService, log: log}
}

// ListAlerts filters by severity, resolved and project_id.
func (h *SafetyHandler) ListAlerts(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := queryUUID(c, "project_id")
	if !ok {
		return
	}
	severity, ok := queryEnum(c, "severity", models.Severity.Valid)
	if !ok {
		return
	}
	resolved, ok := queryBool(c, "resolved")
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	alerts, total, err := h.safetyService.List(user, services.ListAlertsInput{
		ProjectID: projectID,
		Severity:  severity,
		Resolved:  resolved,
		Page:      params.Page,
		PageSize:  params.Limit,
	})
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.SafetyListResponse{
		Alerts:     alerts,
		Pagination: dto.NewPagination(params, total),
	})
}

func (h *SafetyHandler) GetAlert(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	alert, err := h.safetyService.Get(user, id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, alert)
}

// ReportAlert logs a new alert. High and critical alerts are pushed to the
// configured notifiers.
func (h *SafetyHandler) ReportAlert(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.ReportAlertRequest
	if !bindJSON(c, &req) {
		return
	}

	alert, err := h.safetyService.Report(c.Request.Context(), user, services.ReportAlertInput{
		ProjectID:   req.ProjectID,
		TaskID:      req.TaskID,
		UserID:      req.UserID,
		Title:       req.Title,
		Description: req.Description,
		Severity:    req.Severity,
		OSHACode:    req.OSHACode,
	})
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, alert)
}

func (h *SafetyHandler) UpdateAlert(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateAlertRequest
	if !bindJSON(c, &req) {
		return
	}

	alert, err := h.safetyService.Update(c.Request.Context(), user, id, services.UpdateAlertInput{
		Title:       req.Title,
		Description: req.Description,
		Severity:    req.Severity,
		OSHACode:    req.OSHACode,
	})
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, alert)
}

func (h *SafetyHandler) ResolveAlert(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	alert, err := h.safetyService.Resolve(user, id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, alert)
}

func (h *SafetyHandler) DeleteAlert(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.safetyService.Delete(user, id); err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Safety alert deleted successfully"})
}
