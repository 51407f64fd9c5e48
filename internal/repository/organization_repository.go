package repository

import (
	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"gorm.io/gorm"
)

// GormOrganizationRepository is a GORM implementation of OrganizationRepository
type GormOrganizationRepository struct {
	db *gorm.DB
}

// NewOrganizationRepository creates a new OrganizationRepository
func NewOrganizationRepository(db *gorm.DB) OrganizationRepository {
	return &GormOrganizationRepository{db: db}
}

// Create creates a new organization
func (r *GormOrganizationRepository) Create(org *models.Organization) error {
	return r.db.Create(org).Error
}

// FindByID finds an organization by ID
func (r *GormOrganizationRepository) FindByID(id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.Where("id = ?", id).First(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// FindByInviteCode finds an organization by invite code
func (r *GormOrganizationRepository) FindByInviteCode(code string) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.Where("invite_code = ?", code).First(&org).Error; err != nil {
		return nil, err
	}
	return &org, nil
}

// Update updates an organization
func (r *GormOrganizationRepository) Update(org *models.Organization) error {
	return updateRow(r.db, org)
}
