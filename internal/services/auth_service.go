package services

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/constants"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/n1kh11p/blokt-sub000/internal/repository"
	"github.com/n1kh11p/blokt-sub000/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const tokenIssuer = "blokt"

// AuthService handles registration, login, device tokens and the user's own
// profile.
type AuthService struct {
	store     *repository.Store
	jwtSecret []byte
	now       func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(store *repository.Store, jwtSecret string) *AuthService {
	return &AuthService{
		store:     store,
		jwtSecret: []byte(jwtSecret),
		now:       time.Now,
	}
}

// RegisterInput creates a user together with a new organization
// (OrganizationName) or inside an existing one (InviteCode).
type RegisterInput struct {
	Email            string
	Password         string
	Name             string
	Role             models.Role
	OrganizationName string
	InviteCode       string
}

// Register creates a new user. Founders of a new organization must be an
// executive or a project manager; invitees cannot claim those roles.
func (s *AuthService) Register(input RegisterInput) (*models.User, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	name, err := requireName(input.Name)
	if err != nil {
		return nil, err
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, validationError("password must be at least %d characters", constants.MinPasswordLength)
	}

	orgName := strings.TrimSpace(input.OrganizationName)
	inviteCode := utils.NormalizeInviteCode(input.InviteCode)
	switch {
	case orgName == "" && inviteCode == "":
		return nil, validationError("organization_name or invite_code is required")
	case orgName != "" && inviteCode != "":
		return nil, validationError("provide either organization_name or invite_code, not both")
	}

	role := input.Role
	if role == "" {
		if orgName != "" {
			role = models.RoleExecutive
		} else {
			role = models.RoleFieldWorker
		}
	}
	if !role.Valid() {
		return nil, validationError("unknown role %q", role)
	}
	founderRole := role == models.RoleExecutive || role == models.RoleProjectManager
	if orgName != "" && !founderRole {
		return nil, validationError("the first member of an organization must be an executive or project manager")
	}
	if inviteCode != "" && founderRole {
		return nil, validationError("role %s must be granted by a team manager", role)
	}

	if _, err := s.store.Users.FindByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		Role:         role,
	}

	err = s.store.Transaction(func(tx *repository.Store) error {
		if orgName != "" {
			code, err := utils.GenerateInviteCode()
			if err != nil {
				return err
			}
			org := &models.Organization{Name: orgName, InviteCode: code}
			if err := tx.Organizations.Create(org); err != nil {
				return fmt.Errorf("failed to create organization: %w", err)
			}
			user.OrganizationID = org.ID
		} else {
			org, err := tx.Organizations.FindByInviteCode(inviteCode)
			if err != nil {
				return notFound(err, ErrInvalidInviteCode, "find organization by invite code")
			}
			user.OrganizationID = org.ID
		}
		if err := tx.Users.Create(user); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailTaken
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and returns the authenticated user.
func (s *AuthService) Login(input LoginInput) (*models.User, error) {
	user, err := s.store.Users.FindByEmail(input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(id uuid.UUID) (*models.User, error) {
	user, err := s.store.Users.FindByID(id)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound, "find user")
	}
	return user, nil
}

// DeviceClaims are carried by bearer tokens issued to headless uploaders.
type DeviceClaims struct {
	OrganizationID string `json:"org"`
	jwt.RegisteredClaims
}

// IssueDeviceToken signs a bearer token for the user.
func (s *AuthService) IssueDeviceToken(user *models.User) (string, time.Time, error) {
	if len(s.jwtSecret) == 0 {
		return "", time.Time{}, errors.New("JWT secret is not configured")
	}

	now := s.now()
	expiresAt := now.Add(constants.DeviceTokenTTL)
	claims := DeviceClaims{
		OrganizationID: user.OrganizationID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseDeviceToken validates a bearer token and returns the user id it names.
func (s *AuthService) ParseDeviceToken(raw string) (uuid.UUID, error) {
	if len(s.jwtSecret) == 0 {
		return uuid.Nil, ErrInvalidToken
	}

	token, err := jwt.ParseWithClaims(raw, &DeviceClaims{}, func(*jwt.Token) (any, error) {
		return s.jwtSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*DeviceClaims)
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}

// UpdateProfileInput changes the actor's own name and password. A new
// password requires the current one.
type UpdateProfileInput struct {
	Name            *string
	CurrentPassword string
	NewPassword     string
}

func (s *AuthService) UpdateProfile(actor *models.User, input UpdateProfileInput) (*models.User, error) {
	user, err := s.GetUser(actor.ID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, validationError("name cannot be empty")
		}
		user.Name = name
	}

	if input.NewPassword != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.CurrentPassword)); err != nil {
			return nil, ErrInvalidCredentials
		}
		if len(input.NewPassword) < constants.MinPasswordLength {
			return nil, validationError("password must be at least %d characters", constants.MinPasswordLength)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	if err := s.store.Users.Update(user); err != nil {
		return nil, notFound(err, ErrUserNotFound, "update profile")
	}
	return user, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", validationError("a valid email is required")
	}
	return email, nil
}
