package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"gorm.io/gorm"
)

// GormSafetyRepository is a GORM implementation of SafetyRepository
type GormSafetyRepository struct {
	db *gorm.DB
}

// NewSafetyRepository creates a new SafetyRepository
func NewSafetyRepository(db *gorm.DB) SafetyRepository {
	return &GormSafetyRepository{db: db}
}

func (r *GormSafetyRepository) Create(alert *models.SafetyAlert) error {
	return r.db.Create(alert).Error
}

func (r *GormSafetyRepository) FindByID(orgID, id uuid.UUID) (*models.SafetyAlert, error) {
	var alert models.SafetyAlert
	if err := r.db.Where("organization_id = ? AND id = ?", orgID, id).First(&alert).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *GormSafetyRepository) FindByProcoreID(orgID uuid.UUID, procoreID string) (*models.SafetyAlert, error) {
	var alert models.SafetyAlert
	if err := r.db.Unscoped().Where("organization_id = ? AND procore_id = ?", orgID, procoreID).First(&alert).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *GormSafetyRepository) filtered(filter SafetyFilter) *gorm.DB {
	query := r.db.Model(&models.SafetyAlert{}).Where("organization_id = ?", filter.OrganizationID)
	if len(filter.ProjectIDs) > 0 {
		query = query.Where("project_id IN ?", filter.ProjectIDs)
	}
	if filter.Severity != nil {
		query = query.Where("severity = ?", *filter.Severity)
	}
	if filter.Resolved != nil {
		query = query.Where("resolved = ?", *filter.Resolved)
	}
	if filter.ResolvedSince != nil {
		query = query.Where("resolved_at >= ?", *filter.ResolvedSince)
	}
	return query
}

// List retrieves alerts, unresolved and most recent first
func (r *GormSafetyRepository) List(filter SafetyFilter) ([]models.SafetyAlert, int64, error) {
	if filter.RestrictToProjects && len(filter.ProjectIDs) == 0 {
		return []models.SafetyAlert{}, 0, nil
	}

	query := r.filtered(filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var alerts []models.SafetyAlert
	listQuery := query.Order("resolved ASC").Order("created_at DESC")
	if err := paginate(listQuery, filter.Page, filter.PageSize).Find(&alerts).Error; err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

func (r *GormSafetyRepository) CountBySeverity(filter SafetyFilter) (map[models.Severity]int64, error) {
	counts := make(map[models.Severity]int64, len(models.Severities))
	if filter.RestrictToProjects && len(filter.ProjectIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		Severity models.Severity
		Count    int64
	}
	if err := r.filtered(filter).
		Select("severity, COUNT(*) AS count").
		Group("severity").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.Severity] = row.Count
	}
	return counts, nil
}

func (r *GormSafetyRepository) Update(alert *models.SafetyAlert) error {
	return updateRow(r.db, alert)
}

func (r *GormSafetyRepository) Delete(id uuid.UUID) error {
	return r.db.Where("id = ?", id).Delete(&models.SafetyAlert{}).Error
}

func (r *GormSafetyRepository) DetachProject(projectID uuid.UUID) error {
	return r.db.Model(&models.SafetyAlert{}).
		Where("project_id = ?", projectID).
		Update("project_id", nil).Error
}

func (r *GormSafetyRepository) DetachTask(taskID uuid.UUID) error {
	return r.db.Model(&models.SafetyAlert{}).
		Where("task_id = ?", taskID).
		Update("task_id", nil).Error
}

func (r *GormSafetyRepository) ReportedSince(orgID uuid.UUID, since time.Time) ([]time.Time, error) {
	var times []time.Time
	err := r.db.Model(&models.SafetyAlert{}).
		Where("organization_id = ? AND created_at >= ?", orgID, since).
		Pluck("created_at", &times).Error
	return times, err
}
