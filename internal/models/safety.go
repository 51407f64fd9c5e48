package models

import (
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists every severity from least to most severe.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

func (s Severity) Valid() bool {
	for _, candidate := range Severities {
		if s == candidate {
			return true
		}
	}
	return false
}

// Urgent reports whether alerts of this severity are pushed to notifiers.
func (s Severity) Urgent() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// SafetyAlert is a logged OSHA-type compliance issue, optionally linked to a
// task and to the user it concerns.
type SafetyAlert struct {
	Base
	OrganizationID uuid.UUID  `gorm:"type:char(36);not null;index" json:"organization_id"`
	ProjectID      *uuid.UUID `gorm:"type:char(36);index" json:"project_id"`
	TaskID         *uuid.UUID `gorm:"type:char(36);index" json:"task_id"`
	UserID         *uuid.UUID `gorm:"type:char(36);index" json:"user_id"`
	ReportedBy     uuid.UUID  `gorm:"type:char(36);not null" json:"reported_by"`
	Title          string     `gorm:"type:varchar(255);not null" json:"title"`
	Description    string     `gorm:"type:text" json:"description"`
	Severity       Severity   `gorm:"type:varchar(20);not null;index" json:"severity"`
	OSHACode       string     `gorm:"column:osha_code;type:varchar(64)" json:"osha_code"`
	Resolved       bool       `gorm:"not null;default:false;index" json:"resolved"`
	ResolvedAt     *time.Time `json:"resolved_at"`
	ResolvedBy     *uuid.UUID `gorm:"type:char(36)" json:"resolved_by"`
	ProcoreID      *string    `gorm:"type:varchar(64);index" json:"procore_id,omitempty"`
}

func (SafetyAlert) TableName() string {
	return "safety"
}
