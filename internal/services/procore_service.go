package services

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/metrics"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/n1kh11p/blokt-sub000/internal/procore"
	"github.com/n1kh11p/blokt-sub000/internal/repository"
	"github.com/n1kh11p/blokt-sub000/internal/utils"
	"gorm.io/gorm"
)

// unusablePasswordHash never matches a bcrypt comparison, so imported users
// cannot log in until a manager sets a password.
const unusablePasswordHash = "!"

// SyncCounts is the per-table outcome of a sync.
type SyncCounts struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	// Skipped counts imported records deleted locally since; they stay deleted
	Skipped int `json:"skipped,omitempty"`
}

type SyncReport struct {
	CompanyID     string     `json:"company_id"`
	Organizations SyncCounts `json:"organizations"`
	Users         SyncCounts `json:"users"`
	Projects      SyncCounts `json:"projects"`
	Tasks         SyncCounts `json:"tasks"`
	Safety        SyncCounts `json:"safety"`
	SyncedAt      time.Time  `json:"synced_at"`
}

type ProcoreStatus struct {
	Connected   bool       `json:"connected"`
	CompanyID   *string    `json:"company_id"`
	ConnectedAt *time.Time `json:"connected_at"`
}

// ProcoreService imports the mocked Procore company into an organization.
type ProcoreService struct {
	store   *repository.Store
	cache   CacheInvalidator
	metrics *metrics.Metrics
	log     *slog.Logger
	load    func() (*procore.Fixture, error)
	now     func() time.Time
}

func NewProcoreService(store *repository.Store, cache CacheInvalidator, m *metrics.Metrics, log *slog.Logger) *ProcoreService {
	if log == nil {
		log = slog.Default()
	}
	return &ProcoreService{
		store:   store,
		cache:   cache,
		metrics: m,
		log:     log,
		load:    procore.Load,
		now:     time.Now,
	}
}

// Status reports whether the actor's organization is connected.
func (s *ProcoreService) Status(actor *models.User) (*ProcoreStatus, error) {
	org, err := s.store.Organizations.FindByID(actor.OrganizationID)
	if err != nil {
		return nil, notFound(err, ErrOrganizationNotFound, "find organization")
	}
	return &ProcoreStatus{
		Connected:   org.ProcoreCompanyID != nil,
		CompanyID:   org.ProcoreCompanyID,
		ConnectedAt: org.ProcoreConnectedAt,
	}, nil
}

// Connect links the organization to a company and imports its data. An
// empty companyID uses the fixture's company.
func (s *ProcoreService) Connect(actor *models.User, companyID string) (*SyncReport, error) {
	if err := requirePermission(actor, models.PermManageIntegrations); err != nil {
		return nil, err
	}
	return s.SyncOrganization(actor.OrganizationID, companyID)
}

// Resync imports again for an already connected organization.
func (s *ProcoreService) Resync(actor *models.User) (*SyncReport, error) {
	if err := requirePermission(actor, models.PermManageIntegrations); err != nil {
		return nil, err
	}
	org, err := s.store.Organizations.FindByID(actor.OrganizationID)
	if err != nil {
		return nil, notFound(err, ErrOrganizationNotFound, "find organization")
	}
	if org.ProcoreCompanyID == nil {
		return nil, ErrProcoreNotConnected
	}
	return s.SyncOrganization(org.ID, *org.ProcoreCompanyID)
}

// Disconnect clears the company link. Imported data stays.
func (s *ProcoreService) Disconnect(actor *models.User) error {
	if err := requirePermission(actor, models.PermManageIntegrations); err != nil {
		return err
	}
	org, err := s.store.Organizations.FindByID(actor.OrganizationID)
	if err != nil {
		return notFound(err, ErrOrganizationNotFound, "find organization")
	}
	if org.ProcoreCompanyID == nil {
		return ErrProcoreNotConnected
	}
	org.ProcoreCompanyID = nil
	org.ProcoreConnectedAt = nil
	if err := s.store.Organizations.Update(org); err != nil {
		return fmt.Errorf("failed to disconnect procore: %w", err)
	}
	return nil
}

// SyncOrganization upserts the fixture into the organization in one
// transaction. Records are matched by (organization, procore id), so running
// it again only updates. Records removed locally after an import are skipped,
// along with tasks of skipped projects.
func (s *ProcoreService) SyncOrganization(orgID uuid.UUID, companyID string) (report *SyncReport, err error) {
	defer func() { s.metrics.ObserveProcoreSync(err) }()

	fixture, err := s.load()
	if err != nil {
		return nil, err
	}
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		companyID = fixture.Company.ID
	}

	now := s.now().UTC()
	report = &SyncReport{CompanyID: companyID, SyncedAt: now}
	err = s.store.Transaction(func(tx *repository.Store) error {
		org, err := tx.Organizations.FindByID(orgID)
		if err != nil {
			return notFound(err, ErrOrganizationNotFound, "find organization")
		}
		if org.ProcoreCompanyID == nil || *org.ProcoreCompanyID != companyID {
			org.ProcoreConnectedAt = &now
		}
		org.ProcoreCompanyID = &companyID
		if err := tx.Organizations.Update(org); err != nil {
			return fmt.Errorf("failed to stamp organization: %w", err)
		}
		report.Organizations.Updated++

		sync := &procoreSync{tx: tx, org: org, report: report, now: now}
		return sync.run(fixture)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Procore sync finished",
		slog.String("organization_id", orgID.String()),
		slog.Int("users_created", report.Users.Created),
		slog.Int("projects_created", report.Projects.Created),
		slog.Int("tasks_created", report.Tasks.Created),
		slog.Int("safety_created", report.Safety.Created),
	)
	invalidate(s.cache, orgID)
	return report, nil
}

// procoreSync holds the id maps of one sync run.
type procoreSync struct {
	tx     *repository.Store
	org    *models.Organization
	report *SyncReport
	now    time.Time

	users    map[string]uuid.UUID
	removed  map[string]uuid.UUID
	projects map[string]*syncedProject
	tasks    map[string]uuid.UUID
}

// syncedProject collects the ids a run links to a live project. They are
// merged into the stored arrays at the end so local edits survive.
type syncedProject struct {
	project *models.Project
	users   []uuid.UUID
	tasks   []uuid.UUID
}

func (p *procoreSync) run(f *procore.Fixture) error {
	p.users = make(map[string]uuid.UUID, len(f.Users))
	p.removed = make(map[string]uuid.UUID)
	p.projects = make(map[string]*syncedProject, len(f.Projects))
	p.tasks = make(map[string]uuid.UUID, len(f.Tasks))

	for _, u := range f.Users {
		if err := p.user(u); err != nil {
			return err
		}
	}
	for _, pr := range f.Projects {
		if err := p.project(pr); err != nil {
			return err
		}
	}
	for _, t := range f.Tasks {
		if err := p.task(t); err != nil {
			return err
		}
	}
	for _, sp := range p.projects {
		_, err := p.tx.Projects.ModifyIDs(p.org.ID, sp.project.ID, func(project *models.Project) {
			project.UserIDs = utils.AppendUniqueIDs(project.UserIDs, sp.users...)
			project.TaskIDs = utils.AppendUniqueIDs(project.TaskIDs, sp.tasks...)
		})
		if err != nil {
			return fmt.Errorf("failed to link procore project %s: %w", derefString(sp.project.ProcoreID), err)
		}
	}
	for _, o := range f.Observations {
		if err := p.observation(o); err != nil {
			return err
		}
	}
	return nil
}

// found reports whether err is a plain miss; other errors are returned.
func found(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, err
}

// importedEmail scopes fixture emails to the organization so two
// organizations can import the same company.
func importedEmail(email string, orgID uuid.UUID) string {
	local, domain, ok := strings.Cut(strings.ToLower(email), "@")
	if !ok {
		return email
	}
	return fmt.Sprintf("%s+%s@%s", local, orgID.String()[:8], domain)
}

func (p *procoreSync) user(u procore.User) error {
	role := models.Role(u.Role)
	if !role.Valid() {
		return validationError("procore user %s has unknown role %q", u.ID, u.Role)
	}
	user, err := p.tx.Users.FindByProcoreID(p.org.ID, u.ID)
	exists, err := found(err)
	if err != nil {
		return fmt.Errorf("failed to find procore user %s: %w", u.ID, err)
	}
	if exists && user.DeletedAt.Valid {
		p.removed[u.ID] = user.ID
		p.report.Users.Skipped++
		return nil
	}
	if !exists {
		procoreID := u.ID
		user = &models.User{
			OrganizationID: p.org.ID,
			PasswordHash:   unusablePasswordHash,
			ProcoreID:      &procoreID,
		}
	}
	user.Name = u.Name
	user.Email = importedEmail(u.Email, p.org.ID)
	user.Role = role

	if exists {
		err = p.tx.Users.Update(user)
		p.report.Users.Updated++
	} else {
		err = p.tx.Users.Create(user)
		p.report.Users.Created++
	}
	if err != nil {
		return fmt.Errorf("failed to upsert procore user %s: %w", u.ID, err)
	}
	p.users[u.ID] = user.ID
	return nil
}

func (p *procoreSync) project(pr procore.Project) error {
	status := models.ProjectStatus(pr.Status)
	if !status.Valid() {
		return validationError("procore project %s has unknown status %q", pr.ID, pr.Status)
	}
	project, err := p.tx.Projects.FindByProcoreID(p.org.ID, pr.ID)
	exists, err := found(err)
	if err != nil {
		return fmt.Errorf("failed to find procore project %s: %w", pr.ID, err)
	}
	if exists && project.DeletedAt.Valid {
		p.report.Projects.Skipped++
		return nil
	}
	if !exists {
		procoreID := pr.ID
		project = &models.Project{OrganizationID: p.org.ID, ProcoreID: &procoreID}
	}
	project.Name = pr.Name
	project.Description = pr.Description
	project.Location = pr.Location
	project.Status = status
	project.StartDate = pr.StartDate.Ptr()
	project.EndDate = pr.EndDate.Ptr()
	project.Budget = pr.Budget
	synced := &syncedProject{project: project}
	for _, m := range pr.Members {
		if id, ok := p.users[m]; ok {
			synced.users = append(synced.users, id)
		}
	}

	if exists {
		err = p.tx.Projects.Update(project)
		p.report.Projects.Updated++
	} else {
		err = p.tx.Projects.Create(project)
		p.report.Projects.Created++
	}
	if err != nil {
		return fmt.Errorf("failed to upsert procore project %s: %w", pr.ID, err)
	}
	p.projects[pr.ID] = synced
	return nil
}

func (p *procoreSync) task(t procore.Task) error {
	status := models.TaskStatus(t.Status)
	if !status.Valid() {
		return validationError("procore task %s has unknown status %q", t.ID, t.Status)
	}
	synced, ok := p.projects[t.Project]
	if !ok {
		p.report.Tasks.Skipped++
		return nil
	}
	task, err := p.tx.Tasks.FindByProcoreID(p.org.ID, t.ID)
	exists, err := found(err)
	if err != nil {
		return fmt.Errorf("failed to find procore task %s: %w", t.ID, err)
	}
	if exists && task.DeletedAt.Valid {
		p.report.Tasks.Skipped++
		return nil
	}
	if !exists {
		procoreID := t.ID
		task = &models.Task{OrganizationID: p.org.ID, ProcoreID: &procoreID}
	}
	task.ProjectID = synced.project.ID
	task.Name = t.Name
	task.Description = t.Description
	task.PlannedStart = t.PlannedStart.Ptr()
	task.PlannedEnd = t.PlannedEnd.Ptr()
	task.AssigneeID = nil
	if assignee, ok := p.users[t.Assignee]; ok {
		synced.users = append(synced.users, assignee)
		task.AssigneeID = &assignee
	}
	task.SetStatus(status, p.now)
	task.Assignee = nil

	if exists {
		err = p.tx.Tasks.Update(task)
		p.report.Tasks.Updated++
	} else {
		err = p.tx.Tasks.Create(task)
		p.report.Tasks.Created++
	}
	if err != nil {
		return fmt.Errorf("failed to upsert procore task %s: %w", t.ID, err)
	}
	synced.tasks = append(synced.tasks, task.ID)
	p.tasks[t.ID] = task.ID
	return nil
}

func (p *procoreSync) observation(o procore.Observation) error {
	severity := models.Severity(o.Severity)
	if !severity.Valid() {
		return validationError("procore observation %s has unknown severity %q", o.ID, o.Severity)
	}
	alert, err := p.tx.Safety.FindByProcoreID(p.org.ID, o.ID)
	exists, err := found(err)
	if err != nil {
		return fmt.Errorf("failed to find procore observation %s: %w", o.ID, err)
	}
	if exists && alert.DeletedAt.Valid {
		p.report.Safety.Skipped++
		return nil
	}
	if !exists {
		procoreID := o.ID
		alert = &models.SafetyAlert{OrganizationID: p.org.ID, ProcoreID: &procoreID}
	}
	alert.ProjectID = nil
	if sp, ok := p.projects[o.Project]; ok {
		alert.ProjectID = &sp.project.ID
	}
	alert.TaskID = p.optionalID(p.tasks, o.Task)
	alert.UserID = p.optionalID(p.users, o.User)
	alert.ReportedBy = p.reporter(o.ReportedBy)
	alert.Title = o.Title
	alert.Description = o.Description
	alert.Severity = severity
	alert.OSHACode = o.OSHACode
	if o.Resolved != alert.Resolved {
		alert.Resolved = o.Resolved
		alert.ResolvedAt = nil
		alert.ResolvedBy = nil
		if o.Resolved {
			alert.ResolvedAt = &p.now
			alert.ResolvedBy = &alert.ReportedBy
		}
	}

	if exists {
		err = p.tx.Safety.Update(alert)
		p.report.Safety.Updated++
	} else {
		err = p.tx.Safety.Create(alert)
		p.report.Safety.Created++
	}
	if err != nil {
		return fmt.Errorf("failed to upsert procore observation %s: %w", o.ID, err)
	}
	return nil
}

// reporter resolves the author of an observation. Removed members still
// own what they reported.
func (p *procoreSync) reporter(key string) uuid.UUID {
	if id, ok := p.users[key]; ok {
		return id
	}
	return p.removed[key]
}

func (p *procoreSync) optionalID(ids map[string]uuid.UUID, key string) *uuid.UUID {
	if key == "" {
		return nil
	}
	id, ok := ids[key]
	if !ok {
		return nil
	}
	return &id
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
