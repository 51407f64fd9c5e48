package repository

import (
	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/database"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/n1kh11p/blokt-sub000/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// projectColumns are the columns Update may write
var projectColumns = []string{
	"name", "description", "location", "status", "start_date", "end_date", "budget", "procore_id", "updated_at",
}

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

func (r *GormProjectRepository) Create(project *models.Project) error {
	return r.db.Create(project).Error
}

// FindByID finds a project within an organization
func (r *GormProjectRepository) FindByID(orgID, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := r.db.Where("organization_id = ? AND id = ?", orgID, id).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *GormProjectRepository) FindForUpdate(orgID, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("organization_id = ? AND id = ?", orgID, id).
		First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *GormProjectRepository) FindByProcoreID(orgID uuid.UUID, procoreID string) (*models.Project, error) {
	var project models.Project
	if err := r.db.Unscoped().Where("organization_id = ? AND procore_id = ?", orgID, procoreID).First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// List retrieves projects with filtering and pagination. Membership lives in a
// JSON column, so member filtering happens after the query to stay portable
// across drivers.
func (r *GormProjectRepository) List(filter ProjectFilter) ([]models.Project, int64, error) {
	query := r.db.Model(&models.Project{}).Where("organization_id = ?", filter.OrganizationID)
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	query = query.Order("created_at DESC")

	if filter.MemberID == nil {
		var total int64
		if err := query.Count(&total).Error; err != nil {
			return nil, 0, err
		}
		var projects []models.Project
		if err := paginate(query, filter.Page, filter.PageSize).Find(&projects).Error; err != nil {
			return nil, 0, err
		}
		return projects, total, nil
	}

	var all []models.Project
	if err := query.Find(&all).Error; err != nil {
		return nil, 0, err
	}
	member := make([]models.Project, 0, len(all))
	for _, p := range all {
		if p.HasMember(*filter.MemberID) {
			member = append(member, p)
		}
	}
	return pageSlice(member, filter.Page, filter.PageSize), int64(len(member)), nil
}

// Update updates a project's descriptive columns
func (r *GormProjectRepository) Update(project *models.Project) error {
	result := r.db.Model(project).Select(projectColumns).Updates(project)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormProjectRepository) ModifyIDs(orgID, id uuid.UUID, fn func(project *models.Project)) (*models.Project, error) {
	var project *models.Project
	err := r.db.Transaction(func(tx *gorm.DB) error {
		locked := &GormProjectRepository{db: tx}
		var err error
		if project, err = locked.FindForUpdate(orgID, id); err != nil {
			return err
		}
		fn(project)
		return tx.Model(project).Select("task_ids", "user_ids", "updated_at").Updates(project).Error
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// Delete soft deletes a project
func (r *GormProjectRepository) Delete(id uuid.UUID) error {
	return r.db.Where("id = ?", id).Delete(&models.Project{}).Error
}

// paginate limits the query when pageSize is set; page defaults to 1.
func paginate(query *gorm.DB, page, pageSize int) *gorm.DB {
	if pageSize > 0 {
		if page < 1 {
			page = 1
		}
		return query.Scopes(database.Paginate(utils.PaginationParams{
			Page:   page,
			Limit:  pageSize,
			Offset: (page - 1) * pageSize,
		}))
	}
	return query
}

func pageSlice[T any](items []T, page, pageSize int) []T {
	if pageSize <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
