package repository

import (
	"strings"

	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return r.db.Create(user).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email, case-insensitively
func (r *GormUserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) FindInOrganization(orgID, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.Where("organization_id = ? AND id = ?", orgID, id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) FindByProcoreID(orgID uuid.UUID, procoreID string) (*models.User, error) {
	var user models.User
	if err := r.db.Unscoped().Where("organization_id = ? AND procore_id = ?", orgID, procoreID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) ListByOrganization(orgID uuid.UUID) ([]models.User, error) {
	var users []models.User
	if err := r.db.Where("organization_id = ?", orgID).Order("name ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *GormUserRepository) CountInOrganization(orgID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.Model(&models.User{}).
		Where("organization_id = ? AND id IN ?", orgID, ids).
		Count(&count).Error
	return count, err
}

// Update updates a user
func (r *GormUserRepository) Update(user *models.User) error {
	return updateRow(r.db, user)
}

// Delete soft deletes a user
func (r *GormUserRepository) Delete(id uuid.UUID) error {
	return r.db.Where("id = ?", id).Delete(&models.User{}).Error
}
