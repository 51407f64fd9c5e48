package services

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/constants"
	"github.com/n1kh11p/blokt-sub000/internal/metrics"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/n1kh11p/blokt-sub000/internal/repository"
	"github.com/patrickmn/go-cache"
)

// CacheInvalidator drops cached read models of an organization after a write.
type CacheInvalidator interface {
	Invalidate(orgID uuid.UUID)
}

func invalidate(c CacheInvalidator, orgID uuid.UUID) {
	if c != nil {
		c.Invalidate(orgID)
	}
}

const (
	dashboardListLimit = constants.DashboardRecentLimit
	resolvedWindow     = 30 * 24 * time.Hour
	uploadsWindow      = 7 * 24 * time.Hour
)

// Dashboard is the role dashboard. Exactly one of the role sections is set.
type Dashboard struct {
	Role           models.Role              `json:"role"`
	GeneratedAt    time.Time                `json:"generated_at"`
	FieldWorker    *FieldWorkerDashboard    `json:"field_worker,omitempty"`
	Foreman        *ForemanDashboard        `json:"foreman,omitempty"`
	ProjectManager *ProjectManagerDashboard `json:"project_manager,omitempty"`
	SafetyManager  *SafetyManagerDashboard  `json:"safety_manager,omitempty"`
	Executive      *ExecutiveDashboard      `json:"executive,omitempty"`
}

type FieldWorkerDashboard struct {
	MyOpenTasks  []models.Task        `json:"my_open_tasks"`
	RecentVideos []models.Video       `json:"recent_videos"`
	OpenAlerts   []models.SafetyAlert `json:"open_alerts"`
}

type ForemanDashboard struct {
	Projects     []ProjectProgress           `json:"projects"`
	TaskCounts   map[models.TaskStatus]int64 `json:"task_counts"`
	DueToday     []models.Task               `json:"due_today"`
	OpenAlerts   []models.SafetyAlert        `json:"open_alerts"`
	OpenAlertCnt int64                       `json:"open_alert_count"`
}

type ProjectManagerDashboard struct {
	Projects       []ProjectProgress `json:"projects"`
	DelayedTasks   []models.Task     `json:"delayed_tasks"`
	AwaitingReview []models.Video    `json:"awaiting_review"`
}

type SafetyManagerDashboard struct {
	OpenBySeverity     map[models.Severity]int64 `json:"open_by_severity"`
	RecentAlerts       []models.SafetyAlert      `json:"recent_alerts"`
	ResolvedLast30Days int64                     `json:"resolved_last_30_days"`
}

type ExecutiveDashboard struct {
	ProjectsByStatus   map[models.ProjectStatus]int64 `json:"projects_by_status"`
	TaskCount          int64                          `json:"task_count"`
	CompletedTaskCount int64                          `json:"completed_task_count"`
	CompletionRate     float64                        `json:"completion_rate"`
	OpenBySeverity     map[models.Severity]int64      `json:"open_alerts_by_severity"`
	UploadsLast7Days   int                            `json:"uploads_last_7_days"`
}

// DashboardService builds role dashboards and caches them per user. Each
// organization carries a generation number that is part of the cache key, so
// invalidating an organization is a counter bump.
type DashboardService struct {
	store   *repository.Store
	cache   *cache.Cache
	metrics *metrics.Metrics
	now     func() time.Time

	mu          sync.Mutex
	generations map[uuid.UUID]uint64
}

func NewDashboardService(store *repository.Store, ttl time.Duration, m *metrics.Metrics) *DashboardService {
	if ttl <= 0 {
		ttl = constants.DashboardCacheTTL
	}
	return &DashboardService{
		store:       store,
		cache:       cache.New(ttl, constants.DashboardCachePurge),
		metrics:     m,
		now:         time.Now,
		generations: make(map[uuid.UUID]uint64),
	}
}

// Invalidate implements CacheInvalidator.
func (s *DashboardService) Invalidate(orgID uuid.UUID) {
	s.mu.Lock()
	s.generations[orgID]++
	s.mu.Unlock()
}

func (s *DashboardService) cacheKey(actor *models.User) string {
	s.mu.Lock()
	gen := s.generations[actor.OrganizationID]
	s.mu.Unlock()
	return fmt.Sprintf("%s:%d:%s:%s", actor.OrganizationID, gen, actor.ID, actor.Role)
}

// Get returns the actor's dashboard, from cache when fresh.
func (s *DashboardService) Get(actor *models.User) (*Dashboard, error) {
	key := s.cacheKey(actor)
	if cached, found := s.cache.Get(key); found {
		s.metrics.ObserveDashboardCache(true)
		return cached.(*Dashboard), nil
	}
	s.metrics.ObserveDashboardCache(false)

	dashboard := &Dashboard{Role: actor.Role, GeneratedAt: s.now().UTC()}
	var err error
	switch actor.Role {
	case models.RoleFieldWorker:
		dashboard.FieldWorker, err = s.fieldWorker(actor)
	case models.RoleForeman:
		dashboard.Foreman, err = s.foreman(actor)
	case models.RoleProjectManager:
		dashboard.ProjectManager, err = s.projectManager(actor)
	case models.RoleSafetyManager:
		dashboard.SafetyManager, err = s.safetyManager(actor)
	case models.RoleExecutive:
		dashboard.Executive, err = s.executive(actor)
	default:
		return nil, fmt.Errorf("%w: unknown role %s", ErrPermissionDenied, actor.Role)
	}
	if err != nil {
		return nil, err
	}

	s.cache.Set(key, dashboard, cache.DefaultExpiration)
	return dashboard, nil
}

func (s *DashboardService) openAlerts(orgID uuid.UUID, scope projectScope) ([]models.SafetyAlert, int64, error) {
	resolved := false
	alerts, total, err := s.store.Safety.List(repository.SafetyFilter{
		OrganizationID:     orgID,
		ProjectIDs:         scope.IDs,
		RestrictToProjects: scope.Restricted(),
		Resolved:           &resolved,
		PageSize:           dashboardListLimit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load open alerts: %w", err)
	}
	return alerts, total, nil
}

func (s *DashboardService) fieldWorker(actor *models.User) (*FieldWorkerDashboard, error) {
	scope, err := scopeFor(s.store.Projects, actor)
	if err != nil {
		return nil, err
	}
	completed := models.TaskStatusCompleted
	tasks, _, err := s.store.Tasks.List(repository.TaskFilter{
		OrganizationID: actor.OrganizationID,
		AssigneeID:     &actor.ID,
		ExcludeStatus:  &completed,
		PageSize:       dashboardListLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	videos, _, err := s.store.Videos.List(repository.VideoFilter{
		OrganizationID: actor.OrganizationID,
		UploaderID:     &actor.ID,
		PageSize:       dashboardListLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load videos: %w", err)
	}
	alerts, _, err := s.openAlerts(actor.OrganizationID, scope)
	if err != nil {
		return nil, err
	}
	return &FieldWorkerDashboard{MyOpenTasks: tasks, RecentVideos: videos, OpenAlerts: alerts}, nil
}

func (s *DashboardService) visibleProjects(actor *models.User) ([]ProjectProgress, error) {
	filter := repository.ProjectFilter{OrganizationID: actor.OrganizationID}
	if !actor.Role.SeesAllProjects() {
		filter.MemberID = &actor.ID
	}
	projects, _, err := s.store.Projects.List(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}
	return loadProgress(s.store, actor.OrganizationID, projects)
}

func (s *DashboardService) foreman(actor *models.User) (*ForemanDashboard, error) {
	scope, err := scopeFor(s.store.Projects, actor)
	if err != nil {
		return nil, err
	}
	projects, err := s.visibleProjects(actor)
	if err != nil {
		return nil, err
	}

	counts := map[models.TaskStatus]int64{
		models.TaskStatusPending:    0,
		models.TaskStatusInProgress: 0,
		models.TaskStatusCompleted:  0,
		models.TaskStatusDelayed:    0,
	}
	if len(scope.IDs) > 0 {
		rows, err := s.store.Tasks.StatusCounts(actor.OrganizationID, scope.IDs)
		if err != nil {
			return nil, fmt.Errorf("failed to count tasks: %w", err)
		}
		for _, r := range rows {
			counts[r.Status] += r.Count
		}
	}

	start, end := dayBounds(s.now())
	dueToday, _, err := s.store.Tasks.List(repository.TaskFilter{
		OrganizationID:     actor.OrganizationID,
		ProjectIDs:         scope.IDs,
		RestrictToProjects: true,
		DueFrom:            &start,
		DueTo:              &end,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks due today: %w", err)
	}
	alerts, total, err := s.openAlerts(actor.OrganizationID, scope)
	if err != nil {
		return nil, err
	}
	return &ForemanDashboard{
		Projects:     projects,
		TaskCounts:   counts,
		DueToday:     dueToday,
		OpenAlerts:   alerts,
		OpenAlertCnt: total,
	}, nil
}

func (s *DashboardService) projectManager(actor *models.User) (*ProjectManagerDashboard, error) {
	projects, err := s.visibleProjects(actor)
	if err != nil {
		return nil, err
	}
	delayed := models.TaskStatusDelayed
	tasks, _, err := s.store.Tasks.List(repository.TaskFilter{
		OrganizationID: actor.OrganizationID,
		Status:         &delayed,
		PageSize:       dashboardListLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load delayed tasks: %w", err)
	}
	analyzed := models.VideoStatusAnalyzed
	videos, _, err := s.store.Videos.List(repository.VideoFilter{
		OrganizationID: actor.OrganizationID,
		Status:         &analyzed,
		PageSize:       dashboardListLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load videos awaiting review: %w", err)
	}
	return &ProjectManagerDashboard{Projects: projects, DelayedTasks: tasks, AwaitingReview: videos}, nil
}

func (s *DashboardService) openBySeverity(orgID uuid.UUID) (map[models.Severity]int64, error) {
	resolved := false
	counts, err := s.store.Safety.CountBySeverity(repository.SafetyFilter{
		OrganizationID: orgID,
		Resolved:       &resolved,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count alerts: %w", err)
	}
	out := make(map[models.Severity]int64, len(models.Severities))
	for _, sev := range models.Severities {
		out[sev] = counts[sev]
	}
	return out, nil
}

func (s *DashboardService) safetyManager(actor *models.User) (*SafetyManagerDashboard, error) {
	bySeverity, err := s.openBySeverity(actor.OrganizationID)
	if err != nil {
		return nil, err
	}
	recent, _, err := s.store.Safety.List(repository.SafetyFilter{
		OrganizationID: actor.OrganizationID,
		PageSize:       dashboardListLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load recent alerts: %w", err)
	}
	resolved := true
	since := s.now().UTC().Add(-resolvedWindow)
	_, resolvedCount, err := s.store.Safety.List(repository.SafetyFilter{
		OrganizationID: actor.OrganizationID,
		Resolved:       &resolved,
		ResolvedSince:  &since,
		PageSize:       1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count resolved alerts: %w", err)
	}
	return &SafetyManagerDashboard{
		OpenBySeverity:     bySeverity,
		RecentAlerts:       recent,
		ResolvedLast30Days: resolvedCount,
	}, nil
}

func (s *DashboardService) executive(actor *models.User) (*ExecutiveDashboard, error) {
	projects, _, err := s.store.Projects.List(repository.ProjectFilter{OrganizationID: actor.OrganizationID})
	if err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}
	byStatus := map[models.ProjectStatus]int64{
		models.ProjectStatusActive:    0,
		models.ProjectStatusCompleted: 0,
		models.ProjectStatusOnHold:    0,
		models.ProjectStatusCancelled: 0,
	}
	for _, p := range projects {
		byStatus[p.Status]++
	}

	rows, err := s.store.Tasks.StatusCounts(actor.OrganizationID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}
	var total, completed int64
	for _, r := range rows {
		total += r.Count
		if r.Status == models.TaskStatusCompleted {
			completed += r.Count
		}
	}
	rate := 0.0
	if total > 0 {
		rate = float64(completed) / float64(total)
	}

	bySeverity, err := s.openBySeverity(actor.OrganizationID)
	if err != nil {
		return nil, err
	}
	uploads, err := s.store.Videos.UploadedSince(actor.OrganizationID, s.now().UTC().Add(-uploadsWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to count uploads: %w", err)
	}

	return &ExecutiveDashboard{
		ProjectsByStatus:   byStatus,
		TaskCount:          total,
		CompletedTaskCount: completed,
		CompletionRate:     rate,
		OpenBySeverity:     bySeverity,
		UploadsLast7Days:   len(uploads),
	}, nil
}
