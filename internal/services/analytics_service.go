package services

import (
	"fmt"
	"time"

	"github.com/n1kh11p/blokt-sub000/internal/constants"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/n1kh11p/blokt-sub000/internal/repository"
)

// WeeklyBucket counts activity in the week starting at WeekStart (Monday, UTC).
type WeeklyBucket struct {
	WeekStart      time.Time `json:"week_start"`
	TasksCompleted int       `json:"tasks_completed"`
	AlertsReported int       `json:"alerts_reported"`
	VideosUploaded int       `json:"videos_uploaded"`
}

type Analytics struct {
	Weeks []WeeklyBucket `json:"weeks"`
}

type AnalyticsService struct {
	store *repository.Store
	now   func() time.Time
}

func NewAnalyticsService(store *repository.Store) *AnalyticsService {
	return &AnalyticsService{store: store, now: time.Now}
}

// Weekly returns the last weeks buckets, oldest first, including the
// current partial week. weeks <= 0 selects the default.
func (s *AnalyticsService) Weekly(actor *models.User, weeks int) (*Analytics, error) {
	if err := requirePermission(actor, models.PermViewAnalytics); err != nil {
		return nil, err
	}
	if weeks <= 0 {
		weeks = constants.DefaultAnalyticsWeeks
	}
	if weeks > constants.MaxAnalyticsWeeks {
		return nil, validationError("weeks must be at most %d", constants.MaxAnalyticsWeeks)
	}

	current := weekStart(s.now())
	first := current.AddDate(0, 0, -7*(weeks-1))
	buckets := make([]WeeklyBucket, weeks)
	for i := range buckets {
		buckets[i].WeekStart = first.AddDate(0, 0, 7*i)
	}

	completed, err := s.store.Tasks.CompletedSince(actor.OrganizationID, first)
	if err != nil {
		return nil, fmt.Errorf("failed to load completed tasks: %w", err)
	}
	reported, err := s.store.Safety.ReportedSince(actor.OrganizationID, first)
	if err != nil {
		return nil, fmt.Errorf("failed to load safety alerts: %w", err)
	}
	uploaded, err := s.store.Videos.UploadedSince(actor.OrganizationID, first)
	if err != nil {
		return nil, fmt.Errorf("failed to load uploads: %w", err)
	}

	for _, t := range completed {
		if i := bucketIndex(first, t, weeks); i >= 0 {
			buckets[i].TasksCompleted++
		}
	}
	for _, t := range reported {
		if i := bucketIndex(first, t, weeks); i >= 0 {
			buckets[i].AlertsReported++
		}
	}
	for _, t := range uploaded {
		if i := bucketIndex(first, t, weeks); i >= 0 {
			buckets[i].VideosUploaded++
		}
	}
	return &Analytics{Weeks: buckets}, nil
}

// weekStart returns Monday 00:00 UTC of the week containing t.
func weekStart(t time.Time) time.Time {
	day, _ := dayBounds(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func bucketIndex(first, t time.Time, weeks int) int {
	if t.Before(first) {
		return -1
	}
	i := int(t.UTC().Sub(first) / (7 * 24 * time.Hour))
	if i >= weeks {
		return -1
	}
	return i
}
