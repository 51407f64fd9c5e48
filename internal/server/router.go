// Package server assembles the gin engine: global middleware, sessions and
// the route table.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/n1kh11p/blokt-sub000/internal/config"
	"github.com/n1kh11p/blokt-sub000/internal/constants"
	"github.com/n1kh11p/blokt-sub000/internal/handlers"
	"github.com/n1kh11p/blokt-sub000/internal/logger"
	"github.com/n1kh11p/blokt-sub000/internal/metrics"
	"github.com/n1kh11p/blokt-sub000/internal/middleware"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/n1kh11p/blokt-sub000/internal/services"
	"github.com/n1kh11p/blokt-sub000/internal/storage"
	"gorm.io/gorm"
)

const sessionMaxAge = 7 * 24 * time.Hour

// Services bundles everything the handlers call into.
type Services struct {
	Auth         *services.AuthService
	Organization *services.OrganizationService
	Project      *services.ProjectService
	Task         *services.TaskService
	Safety       *services.SafetyService
	Video        *services.VideoService
	Procore      *services.ProcoreService
	Dashboard    *services.DashboardService
	Analytics    *services.AnalyticsService
}

// Deps is the input to NewRouter.
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Backend  storage.Backend
	Services Services
	Metrics  *metrics.Metrics
	Log      *slog.Logger
	Version  string
	// SessionStore overrides the store built from Config; tests pass a cookie store.
	SessionStore sessions.Store
}

// NewSessionStore builds the cookie or Redis session store selected by
// SESSION_STORE.
func NewSessionStore(cfg *config.Config) (sessions.Store, error) {
	var store sessions.Store
	switch cfg.SessionStore {
	case "redis":
		s, err := redisStore.NewStore(
			10,    // pool size
			"tcp", // network type
			cfg.RedisHost+":"+cfg.RedisPort,
			"", // username (empty for default user)
			cfg.RedisPassword,
			[]byte(cfg.SessionSecret),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create redis session store: %w", err)
		}
		store = s
	default:
		store = cookie.NewStore([]byte(cfg.SessionSecret))
	}

	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}

// NewRouter wires middleware and routes.
func NewRouter(deps Deps) (*gin.Engine, error) {
	cfg := deps.Config
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}

	store := deps.SessionStore
	if store == nil {
		var err error
		if store, err = NewSessionStore(cfg); err != nil {
			return nil, err
		}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware(logger.Module(log, "http")))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
	}
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", logger.RequestIDHeader},
			ExposeHeaders:    []string{logger.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(sessions.Sessions(constants.SessionCookieName, store))

	svc := deps.Services
	handlerLog := logger.Module(log, "api")
	authHandler := handlers.NewAuthHandler(svc.Auth, svc.Organization, handlerLog)
	orgHandler := handlers.NewOrganizationHandler(svc.Organization, svc.Auth, handlerLog)
	projectHandler := handlers.NewProjectHandler(svc.Project, handlerLog)
	taskHandler := handlers.NewTaskHandler(svc.Task, handlerLog)
	safetyHandler := handlers.NewSafetyHandler(svc.Safety, handlerLog)
	videoHandler := handlers.NewVideoHandler(svc.Video, cfg.UploadMaxBytes, handlerLog)
	integrationHandler := handlers.NewIntegrationHandler(svc.Procore, handlerLog)
	dashboardHandler := handlers.NewDashboardHandler(svc.Dashboard, svc.Analytics, handlerLog)
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Backend, deps.Version)

	r.GET("/health", healthHandler.Health)
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}
	if local, ok := deps.Backend.(*storage.Local); ok {
		r.Static("/uploads", local.Root())
	}

	requireAuth := middleware.RequireAuth(svc.Auth)
	id := middleware.RequireUUIDParams("id")
	can := middleware.RequirePermission

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", requireAuth, authHandler.GetCurrentUser)
			auth.POST("/token", requireAuth, authHandler.IssueToken)
		}

		protected := api.Group("")
		protected.Use(requireAuth)

		projects := protected.Group("/projects")
		{
			projects.GET("", projectHandler.ListProjects)
			projects.POST("", can(models.PermManageProjects), projectHandler.CreateProject)
			projects.GET("/:id", id, projectHandler.GetProject)
			projects.PATCH("/:id", id, can(models.PermManageProjects), projectHandler.UpdateProject)
			projects.DELETE("/:id", id, can(models.PermManageProjects), projectHandler.DeleteProject)
			projects.POST("/:id/members", id, can(models.PermManageProjects), projectHandler.AddMembers)
			projects.DELETE("/:id/members/:user_id", middleware.RequireUUIDParams("id", "user_id"), can(models.PermManageProjects), projectHandler.RemoveMember)
		}

		tasks := protected.Group("/tasks")
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("", can(models.PermManageTasks), taskHandler.CreateTask)
			tasks.GET("/:id", id, taskHandler.GetTask)
			tasks.PATCH("/:id", id, can(models.PermManageTasks), taskHandler.UpdateTask)
			tasks.DELETE("/:id", id, can(models.PermManageTasks), taskHandler.DeleteTask)
			tasks.POST("/:id/status", id, taskHandler.UpdateTaskStatus)
		}

		safety := protected.Group("/safety")
		{
			safety.GET("", safetyHandler.ListAlerts)
			safety.POST("", can(models.PermReportSafety), safetyHandler.ReportAlert)
			safety.GET("/:id", id, safetyHandler.GetAlert)
			safety.PATCH("/:id", id, can(models.PermManageSafety), safetyHandler.UpdateAlert)
			safety.DELETE("/:id", id, can(models.PermManageSafety), safetyHandler.DeleteAlert)
			safety.POST("/:id/resolve", id, can(models.PermManageSafety), safetyHandler.ResolveAlert)
		}

		protected.POST("/upload", can(models.PermUploadVideo), videoHandler.UploadFile)
		videos := protected.Group("/videos")
		{
			videos.GET("", videoHandler.ListVideos)
			videos.POST("", can(models.PermUploadVideo), videoHandler.UploadVideo)
			videos.GET("/:id", id, videoHandler.GetVideo)
			videos.DELETE("/:id", id, videoHandler.DeleteVideo)
			videos.POST("/:id/analyze", id, can(models.PermUploadVideo), videoHandler.AnalyzeVideo)
			videos.POST("/:id/review", id, can(models.PermReviewVideo), videoHandler.ReviewVideo)
		}
		protected.GET("/review", can(models.PermReviewVideo), videoHandler.ReviewQueue)

		procore := protected.Group("/integrations/procore")
		procore.Use(can(models.PermManageIntegrations))
		{
			procore.GET("", integrationHandler.ProcoreStatus)
			procore.POST("/connect", integrationHandler.ConnectProcore)
			procore.POST("/sync", integrationHandler.SyncProcore)
			procore.DELETE("", integrationHandler.DisconnectProcore)
		}

		protected.GET("/dashboard", dashboardHandler.Dashboard)
		protected.GET("/analytics", can(models.PermViewAnalytics), dashboardHandler.Analytics)

		team := protected.Group("/team")
		{
			team.GET("", orgHandler.ListMembers)
			team.POST("", can(models.PermManageTeam), orgHandler.CreateMember)
			team.PATCH("/:user_id", middleware.RequireUUIDParams("user_id"), can(models.PermManageTeam), orgHandler.UpdateMember)
			team.DELETE("/:user_id", middleware.RequireUUIDParams("user_id"), can(models.PermManageTeam), orgHandler.RemoveMember)
		}

		settings := protected.Group("/settings")
		{
			settings.GET("/profile", orgHandler.GetProfile)
			settings.PATCH("/profile", orgHandler.UpdateProfile)
			settings.GET("/organization", orgHandler.GetOrganization)
			settings.PATCH("/organization", can(models.PermManageTeam), orgHandler.UpdateOrganization)
			settings.POST("/organization/invite-code", can(models.PermManageTeam), orgHandler.RegenerateInviteCode)
		}
	}

	return r, nil
}
