package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/n1kh11p/blokt-sub000/internal/dto"
	apierrors "github.com/n1kh11p/blokt-sub000/internal/errors"
	"github.com/n1kh11p/blokt-sub000/internal/services"
)

// IntegrationHandler exposes the mocked Procore connection.
type IntegrationHandler struct {
	procoreService *services.ProcoreService
	log            *slog.Logger
}

func NewIntegrationHandler(procoreService *services.ProcoreService, log *slog.Logger) *IntegrationHandler {
	return &IntegrationHandler{procoreService: procoreService, log: log}
}

func (h *IntegrationHandler) ProcoreStatus(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	status, err := h.procoreService.Status(user)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// ConnectProcore connects the organization and imports the company data.
// The body is optional.
func (h *IntegrationHandler) ConnectProcore(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.ProcoreConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return
	}

	report, err := h.procoreService.Connect(user, req.CompanyID)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// SyncProcore re-imports the connected company.
func (h *IntegrationHandler) SyncProcore(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	report, err := h.procoreService.Resync(user)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// DisconnectProcore clears the connection and keeps imported records.
func (h *IntegrationHandler) DisconnectProcore(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.procoreService.Disconnect(user); err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Procore disconnected"})
}
