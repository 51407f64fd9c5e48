package models

import "time"

type Organization struct {
	Base
	Name               string     `gorm:"type:varchar(255);not null" json:"name"`
	InviteCode         string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"invite_code"`
	ProcoreCompanyID   *string    `gorm:"type:varchar(64)" json:"procore_company_id"`
	ProcoreConnectedAt *time.Time `json:"procore_connected_at"`

	// Relations
	Users    []User    `gorm:"foreignKey:OrganizationID" json:"users,omitempty"`
	Projects []Project `gorm:"foreignKey:OrganizationID" json:"projects,omitempty"`
}
