package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/n1kh11p/blokt-sub000/internal/constants"
	"github.com/n1kh11p/blokt-sub000/internal/dto"
	apierrors "github.com/n1kh11p/blokt-sub000/internal/errors"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/n1kh11p/blokt-sub000/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
	orgService  *services.OrganizationService
	log         *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, orgService *services.OrganizationService, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		orgService:  orgService,
		log:         log,
	}
}

// Register creates a user, and a new organization when no invite code is
// given, then starts a session.
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.authService.Register(services.RegisterInput{
		Email:            req.Email,
		Password:         req.Password,
		Name:             req.Name,
		Role:             req.Role,
		OrganizationName: req.OrganizationName,
		InviteCode:       req.InviteCode,
	})
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	if !h.startSession(c, user) {
		return
	}
	c.JSON(http.StatusCreated, dto.ToUserDTO(*user))
}

// Login authenticates a user and initializes the session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.authService.Login(services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	if !h.startSession(c, user) {
		return
	}
	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

func (h *AuthHandler) startSession(c *gin.Context, user *models.User) bool {
	session := sessions.Default(c)
	session.Set(constants.ContextKeyUserID, user.ID.String())
	if err := session.Save(); err != nil {
		apierrors.ReportInternal(c, h.log, err)
		return false
	}
	return true
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Logged out successfully"})
}

// GetCurrentUser returns the authenticated user and their organization.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	org, err := h.orgService.GetOrganization(user)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.MeResponse{
		User:         dto.ToUserDTO(*user),
		Organization: dto.ToOrganizationDTO(*org),
	})
}

// IssueToken returns a device token for headless clients such as bodycam
// uploaders.
func (h *AuthHandler) IssueToken(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	token, expiresAt, err := h.authService.IssueDeviceToken(user)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, dto.TokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
	})
}
