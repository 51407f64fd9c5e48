package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/n1kh11p/blokt-sub000/internal/errors"
	"github.com/n1kh11p/blokt-sub000/internal/services"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
	analyticsService *services.AnalyticsService
	log              *slog.Logger
}

func NewDashboardHandler(dashboardService *services.DashboardService, analyticsService *services.AnalyticsService, log *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		analyticsService: analyticsService,
		log:              log,
	}
}

// Dashboard returns the payload for the caller's role.
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	dashboard, err := h.dashboardService.Get(user)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}

// Analytics returns weekly activity buckets; ?weeks defaults to 8.
func (h *DashboardHandler) Analytics(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	weeks := 0
	if raw := c.Query("weeks"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			apierrors.BadRequest(c, "Invalid weeks")
			return
		}
		weeks = n
	}

	analytics, err := h.analyticsService.Weekly(user, weeks)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, analytics)
}
