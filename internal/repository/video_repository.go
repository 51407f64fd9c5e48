package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"gorm.io/gorm"
)

// GormVideoRepository is a GORM implementation of VideoRepository
type GormVideoRepository struct {
	db *gorm.DB
}

// NewVideoRepository creates a new VideoRepository
func NewVideoRepository(db *gorm.DB) VideoRepository {
	return &GormVideoRepository{db: db}
}

func (r *GormVideoRepository) Create(video *models.Video) error {
	return r.db.Create(video).Error
}

func (r *GormVideoRepository) FindByID(orgID, id uuid.UUID) (*models.Video, error) {
	var video models.Video
	if err := r.db.Where("organization_id = ? AND id = ?", orgID, id).First(&video).Error; err != nil {
		return nil, err
	}
	return &video, nil
}

// List retrieves videos, newest first
func (r *GormVideoRepository) List(filter VideoFilter) ([]models.Video, int64, error) {
	if filter.RestrictToProjects && len(filter.ProjectIDs) == 0 && filter.UploaderID == nil {
		return []models.Video{}, 0, nil
	}

	query := r.db.Model(&models.Video{}).Where("organization_id = ?", filter.OrganizationID)
	switch {
	case len(filter.ProjectIDs) > 0 && filter.UploaderID != nil:
		// members see footage of their projects plus their own uploads
		query = query.Where("(project_id IN ? OR uploader_id = ?)", filter.ProjectIDs, *filter.UploaderID)
	case len(filter.ProjectIDs) > 0:
		query = query.Where("project_id IN ?", filter.ProjectIDs)
	case filter.UploaderID != nil:
		query = query.Where("uploader_id = ?", *filter.UploaderID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var videos []models.Video
	if err := paginate(query.Order("created_at DESC"), filter.Page, filter.PageSize).Find(&videos).Error; err != nil {
		return nil, 0, err
	}
	return videos, total, nil
}

func (r *GormVideoRepository) Update(video *models.Video) error {
	return updateRow(r.db, video)
}

func (r *GormVideoRepository) Transition(orgID, id uuid.UUID, from []models.VideoStatus, values map[string]any) (bool, error) {
	result := r.db.Model(&models.Video{}).
		Where("organization_id = ? AND id = ? AND status IN ?", orgID, id, from).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormVideoRepository) FailProcessing(message string) (int64, error) {
	result := r.db.Model(&models.Video{}).
		Where("status = ?", models.VideoStatusProcessing).
		Updates(map[string]any{
			"status":         models.VideoStatusFailed,
			"analysis_error": message,
		})
	return result.RowsAffected, result.Error
}

func (r *GormVideoRepository) Delete(id uuid.UUID) error {
	return r.db.Where("id = ?", id).Delete(&models.Video{}).Error
}

func (r *GormVideoRepository) DetachProject(projectID uuid.UUID) error {
	return r.db.Model(&models.Video{}).
		Where("project_id = ?", projectID).
		Update("project_id", nil).Error
}

func (r *GormVideoRepository) ListWithSuggestion(orgID uuid.UUID) ([]models.Video, error) {
	var videos []models.Video
	err := r.db.Where("organization_id = ? AND status = ?", orgID, models.VideoStatusAnalyzed).
		Find(&videos).Error
	return videos, err
}

func (r *GormVideoRepository) UploadedSince(orgID uuid.UUID, since time.Time) ([]time.Time, error) {
	var times []time.Time
	err := r.db.Model(&models.Video{}).
		Where("organization_id = ? AND created_at >= ?", orgID, since).
		Pluck("created_at", &times).Error
	return times, err
}
