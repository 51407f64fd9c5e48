package dto

import (
	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/n1kh11p/blokt-sub000/internal/utils"
)

// SafetyListResponse represents a paginated list of safety alerts
type SafetyListResponse struct {
	Alerts     []models.SafetyAlert     `json:"alerts"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

type ReportAlertRequest struct {
	ProjectID   *uuid.UUID      `json:"project_id"`
	TaskID      *uuid.UUID      `json:"task_id"`
	UserID      *uuid.UUID      `json:"user_id"`
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	Severity    models.Severity `json:"severity" binding:"required"`
	OSHACode    string          `json:"osha_code"`
}

type UpdateAlertRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Severity    *models.Severity `json:"severity"`
	OSHACode    *string          `json:"osha_code"`
}

// UploadResponse is the body of the generic upload endpoint.
type UploadResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}

// VideoListResponse represents a paginated list of videos
type VideoListResponse struct {
	Videos     []models.Video           `json:"videos"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

type ReviewRequest struct {
	AcceptedTaskIDs []uuid.UUID `json:"accepted_task_ids"`
}
