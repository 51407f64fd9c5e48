package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type VideoStatus string

const (
	VideoStatusUploaded   VideoStatus = "uploaded"
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusAnalyzed   VideoStatus = "analyzed"
	VideoStatusFailed     VideoStatus = "failed"
	VideoStatusReviewed   VideoStatus = "reviewed"
)

// Video is uploaded bodycam footage. AISuggestedTasks stages the task ids the
// analyzer believes the footage shows as done until a reviewer accepts them.
type Video struct {
	Base
	OrganizationID   uuid.UUID                      `gorm:"type:char(36);not null;index" json:"organization_id"`
	ProjectID        *uuid.UUID                     `gorm:"type:char(36);index" json:"project_id"`
	UploaderID       uuid.UUID                      `gorm:"type:char(36);not null;index" json:"uploader_id"`
	FileName         string                         `gorm:"type:varchar(255);not null" json:"file_name"`
	StorageKey       string                         `gorm:"type:varchar(512);not null" json:"-"`
	URL              string                         `gorm:"type:varchar(1024)" json:"url"`
	ContentType      string                         `gorm:"type:varchar(128)" json:"content_type"`
	SizeBytes        int64                          `json:"size_bytes"`
	Notes            string                         `gorm:"type:text" json:"notes"`
	Status           VideoStatus                    `gorm:"type:varchar(20);not null;default:'uploaded';index" json:"status"`
	AISuggestedTasks datatypes.JSONSlice[uuid.UUID] `gorm:"column:ai_suggested_tasks" json:"ai_suggested_tasks"`
	AnalysisError    string                         `gorm:"type:text" json:"analysis_error,omitempty"`
	AnalyzedAt       *time.Time                     `json:"analyzed_at"`
	ReviewedAt       *time.Time                     `json:"reviewed_at"`
}

// BeforeSave stores an empty array instead of JSON null.
func (v *Video) BeforeSave(_ *gorm.DB) error {
	if v.AISuggestedTasks == nil {
		v.AISuggestedTasks = datatypes.JSONSlice[uuid.UUID]{}
	}
	return nil
}

func (s VideoStatus) Valid() bool {
	switch s {
	case VideoStatusUploaded, VideoStatusProcessing, VideoStatusAnalyzed, VideoStatusFailed, VideoStatusReviewed:
		return true
	}
	return false
}

// Analyzable reports whether a video in this status may be queued for analysis.
func (s VideoStatus) Analyzable() bool {
	switch s {
	case VideoStatusUploaded, VideoStatusFailed, VideoStatusAnalyzed:
		return true
	}
	return false
}
