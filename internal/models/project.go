package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusOnHold    ProjectStatus = "on_hold"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusActive, ProjectStatusCompleted, ProjectStatusOnHold, ProjectStatusCancelled:
		return true
	}
	return false
}

// Project is a construction job. TaskIDs and UserIDs are maintained by the
// services layer in the same transaction as the task or membership change.
type Project struct {
	Base
	OrganizationID uuid.UUID                      `gorm:"type:char(36);not null;index" json:"organization_id"`
	Name           string                         `gorm:"type:varchar(255);not null" json:"name"`
	Description    string                         `gorm:"type:text" json:"description"`
	Location       string                         `gorm:"type:varchar(255)" json:"location"`
	Status         ProjectStatus                  `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	StartDate      *time.Time                     `json:"start_date"`
	EndDate        *time.Time                     `json:"end_date"`
	Budget         *float64                       `json:"budget"`
	TaskIDs        datatypes.JSONSlice[uuid.UUID] `json:"task_ids"`
	UserIDs        datatypes.JSONSlice[uuid.UUID] `json:"user_ids"`
	ProcoreID      *string                        `gorm:"type:varchar(64);index" json:"procore_id,omitempty"`
}

// HasMember reports whether the user id is listed in UserIDs.
func (p *Project) HasMember(userID uuid.UUID) bool {
	for _, id := range p.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// BeforeSave stores empty arrays instead of JSON null.
func (p *Project) BeforeSave(_ *gorm.DB) error {
	if p.TaskIDs == nil {
		p.TaskIDs = datatypes.JSONSlice[uuid.UUID]{}
	}
	if p.UserIDs == nil {
		p.UserIDs = datatypes.JSONSlice[uuid.UUID]{}
	}
	return nil
}
