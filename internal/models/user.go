package models

import "github.com/google/uuid"

type User struct {
	Base
	OrganizationID uuid.UUID `gorm:"type:char(36);not null;index" json:"organization_id"`
	Email          string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	PasswordHash   string    `gorm:"type:varchar(255);not null" json:"-"`
	Role           Role      `gorm:"type:varchar(32);not null" json:"role"`
	ProcoreID      *string   `gorm:"type:varchar(64);index" json:"procore_id,omitempty"`

	// Relations
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"-"`
}
