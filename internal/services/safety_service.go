package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/metrics"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/n1kh11p/blokt-sub000/internal/notify"
	"github.com/n1kh11p/blokt-sub000/internal/repository"
)

// SafetyService manages safety alerts and pushes urgent ones to the notifier.
type SafetyService struct {
	store         *repository.Store
	cache         CacheInvalidator
	notifier      notify.Notifier
	notifyTimeout time.Duration
	metrics       *metrics.Metrics
	log           *slog.Logger
	now           func() time.Time
}

func NewSafetyService(store *repository.Store, cache CacheInvalidator, notifier notify.Notifier, notifyTimeout time.Duration, m *metrics.Metrics, log *slog.Logger) *SafetyService {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	if notifyTimeout <= 0 {
		notifyTimeout = 10 * time.Second
	}
	return &SafetyService{
		store:         store,
		cache:         cache,
		notifier:      notifier,
		notifyTimeout: notifyTimeout,
		metrics:       m,
		log:           log,
		now:           time.Now,
	}
}

type ListAlertsInput struct {
	ProjectID *uuid.UUID
	Severity  *models.Severity
	Resolved  *bool
	Page      int
	PageSize  int
}

// List returns alerts on visible projects. Alerts without a project are
// visible to roles with organization-wide visibility only.
func (s *SafetyService) List(actor *models.User, input ListAlertsInput) ([]models.SafetyAlert, int64, error) {
	if input.Severity != nil && !input.Severity.Valid() {
		return nil, 0, validationError("unknown severity %q", *input.Severity)
	}
	scope, err := scopeFor(s.store.Projects, actor)
	if err != nil {
		return nil, 0, err
	}
	scope = scope.Narrow(input.ProjectID)

	alerts, total, err := s.store.Safety.List(repository.SafetyFilter{
		OrganizationID:     actor.OrganizationID,
		ProjectIDs:         scope.IDs,
		RestrictToProjects: scope.Restricted(),
		Severity:           input.Severity,
		Resolved:           input.Resolved,
		Page:               input.Page,
		PageSize:           input.PageSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list safety alerts: %w", err)
	}
	return alerts, total, nil
}

func (s *SafetyService) Get(actor *models.User, id uuid.UUID) (*models.SafetyAlert, error) {
	alert, err := s.store.Safety.FindByID(actor.OrganizationID, id)
	if err != nil {
		return nil, notFound(err, ErrSafetyAlertNotFound, "find safety alert")
	}
	if !s.canSee(actor, alert) {
		return nil, ErrSafetyAlertNotFound
	}
	return alert, nil
}

func (s *SafetyService) canSee(actor *models.User, alert *models.SafetyAlert) bool {
	if actor.Role.SeesAllProjects() || alert.ReportedBy == actor.ID {
		return true
	}
	if alert.ProjectID == nil {
		return false
	}
	_, err := visibleProject(s.store.Projects, actor, *alert.ProjectID)
	return err == nil
}

type ReportAlertInput struct {
	ProjectID   *uuid.UUID
	TaskID      *uuid.UUID
	UserID      *uuid.UUID
	Title       string
	Description string
	Severity    models.Severity
	OSHACode    string
}

// Report logs a new alert. Any role may report on a project it can see.
func (s *SafetyService) Report(ctx context.Context, actor *models.User, input ReportAlertInput) (*models.SafetyAlert, error) {
	if err := requirePermission(actor, models.PermReportSafety); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, validationError("title is required")
	}
	if !input.Severity.Valid() {
		return nil, validationError("severity must be one of low, medium, high, critical")
	}

	alert := &models.SafetyAlert{
		OrganizationID: actor.OrganizationID,
		ReportedBy:     actor.ID,
		Title:          title,
		Description:    input.Description,
		Severity:       input.Severity,
		OSHACode:       strings.TrimSpace(input.OSHACode),
	}
	if err := s.applyLinks(actor, alert, input.ProjectID, input.TaskID, input.UserID); err != nil {
		return nil, err
	}

	if err := s.store.Safety.Create(alert); err != nil {
		return nil, fmt.Errorf("failed to create safety alert: %w", err)
	}
	invalidate(s.cache, actor.OrganizationID)

	if alert.Severity.Urgent() {
		s.notify(ctx, alert, actor.Name)
	}
	return alert, nil
}

// applyLinks validates the optional project, task and user references. A task
// implies its project.
func (s *SafetyService) applyLinks(actor *models.User, alert *models.SafetyAlert, projectID, taskID, userID *uuid.UUID) error {
	if taskID != nil {
		task, err := s.store.Tasks.FindByID(actor.OrganizationID, *taskID)
		if err != nil {
			return linkError(err, "task")
		}
		if projectID != nil && *projectID != task.ProjectID {
			return validationError("task does not belong to the project")
		}
		projectID = &task.ProjectID
		alert.TaskID = &task.ID
	}
	if projectID != nil {
		project, err := visibleProject(s.store.Projects, actor, *projectID)
		if err != nil {
			return linkError(err, "project")
		}
		alert.ProjectID = &project.ID
	}
	if userID != nil {
		if _, err := s.store.Users.FindInOrganization(actor.OrganizationID, *userID); err != nil {
			return linkError(err, "user")
		}
		alert.UserID = userID
	}
	return nil
}

// notify runs synchronously with its own timeout; delivery problems are
// logged and counted but never fail the request.
func (s *SafetyService) notify(ctx context.Context, alert *models.SafetyAlert, reporter string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	err := s.notifier.Notify(ctx, notify.FromSafetyAlert(alert, reporter))
	s.metrics.ObserveNotification(err)
	if err != nil {
		s.log.Warn("Failed to deliver safety notification",
			slog.String("alert_id", alert.ID.String()),
			slog.String("severity", string(alert.Severity)),
			slog.Any("error", err))
	}
}

type UpdateAlertInput struct {
	Title       *string
	Description *string
	Severity    *models.Severity
	OSHACode    *string
}

func (s *SafetyService) Update(ctx context.Context, actor *models.User, id uuid.UUID, input UpdateAlertInput) (*models.SafetyAlert, error) {
	if err := requirePermission(actor, models.PermManageSafety); err != nil {
		return nil, err
	}
	alert, err := s.Get(actor, id)
	if err != nil {
		return nil, err
	}

	wasUrgent := alert.Severity.Urgent()
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, validationError("title cannot be empty")
		}
		alert.Title = title
	}
	if input.Description != nil {
		alert.Description = *input.Description
	}
	if input.Severity != nil {
		if !input.Severity.Valid() {
			return nil, validationError("severity must be one of low, medium, high, critical")
		}
		alert.Severity = *input.Severity
	}
	if input.OSHACode != nil {
		alert.OSHACode = strings.TrimSpace(*input.OSHACode)
	}

	if err := s.store.Safety.Update(alert); err != nil {
		return nil, notFound(err, ErrSafetyAlertNotFound, "update safety alert")
	}
	invalidate(s.cache, actor.OrganizationID)

	if !wasUrgent && alert.Severity.Urgent() && !alert.Resolved {
		s.notify(ctx, alert, actor.Name)
	}
	return alert, nil
}

// Resolve closes an alert.
func (s *SafetyService) Resolve(actor *models.User, id uuid.UUID) (*models.SafetyAlert, error) {
	if err := requirePermission(actor, models.PermManageSafety); err != nil {
		return nil, err
	}
	alert, err := s.Get(actor, id)
	if err != nil {
		return nil, err
	}
	if alert.Resolved {
		return nil, ErrAlreadyResolved
	}

	now := s.now().UTC()
	alert.Resolved = true
	alert.ResolvedAt = &now
	alert.ResolvedBy = &actor.ID
	if err := s.store.Safety.Update(alert); err != nil {
		return nil, notFound(err, ErrSafetyAlertNotFound, "resolve safety alert")
	}
	invalidate(s.cache, actor.OrganizationID)
	return alert, nil
}

func (s *SafetyService) Delete(actor *models.User, id uuid.UUID) error {
	if err := requirePermission(actor, models.PermManageSafety); err != nil {
		return err
	}
	alert, err := s.Get(actor, id)
	if err != nil {
		return err
	}
	if err := s.store.Safety.Delete(alert.ID); err != nil {
		return fmt.Errorf("failed to delete safety alert: %w", err)
	}
	invalidate(s.cache, actor.OrganizationID)
	return nil
}
