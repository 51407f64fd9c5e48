package models

import (
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusDelayed    TaskStatus = "delayed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusDelayed:
		return true
	}
	return false
}

// Task is a planned unit of construction work inside a project.
type Task struct {
	Base
	OrganizationID uuid.UUID  `gorm:"type:char(36);not null;index" json:"organization_id"`
	ProjectID      uuid.UUID  `gorm:"type:char(36);not null;index" json:"project_id"`
	Name           string     `gorm:"type:varchar(255);not null" json:"name"`
	Description    string     `gorm:"type:text" json:"description"`
	Status         TaskStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	PlannedStart   *time.Time `json:"planned_start"`
	PlannedEnd     *time.Time `json:"planned_end"`
	AssigneeID     *uuid.UUID `gorm:"type:char(36);index" json:"assignee_id"`
	CompletedAt    *time.Time `json:"completed_at"`
	ProcoreID      *string    `gorm:"type:varchar(64);index" json:"procore_id,omitempty"`

	// Relations
	Assignee *User `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
}

// SetStatus changes the status and keeps CompletedAt in step with it.
func (t *Task) SetStatus(status TaskStatus, now time.Time) {
	if status == TaskStatusCompleted {
		if t.Status != TaskStatusCompleted || t.CompletedAt == nil {
			t.CompletedAt = &now
		}
	} else {
		t.CompletedAt = nil
	}
	t.Status = status
}
