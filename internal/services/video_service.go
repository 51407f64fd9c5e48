package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/analysis"
	"github.com/n1kh11p/blokt-sub000/internal/metrics"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/n1kh11p/blokt-sub000/internal/repository"
	"github.com/n1kh11p/blokt-sub000/internal/storage"
	"github.com/n1kh11p/blokt-sub000/internal/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AnalysisQueue accepts analysis jobs. *analysis.Runner implements it.
type AnalysisQueue interface {
	Submit(job analysis.Job) error
}

const (
	maxAnalysisErrorLen        = 1000
	interruptedAnalysisMessage = "analysis was interrupted by a server restart"
)

// videoTypes covers bodycam formats missing from the platform mime table.
var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
}

func detectContentType(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if t, ok := videoTypes[ext]; ok {
		return t
	}
	return mime.TypeByExtension(ext)
}

// VideoService owns uploads, the analysis pipeline and suggestion review.
type VideoService struct {
	store        *repository.Store
	backend      storage.Backend
	analyzer     Analyzer
	queue        AnalysisQueue
	cache        CacheInvalidator
	metrics      *metrics.Metrics
	log          *slog.Logger
	minFreeBytes uint64
	now          func() time.Time
}

type VideoServiceConfig struct {
	Store    *repository.Store
	Backend  storage.Backend
	Analyzer Analyzer
	Queue    AnalysisQueue
	Cache    CacheInvalidator
	Metrics  *metrics.Metrics
	Log      *slog.Logger
	// MinFreeBytes is the disk reserve kept free under the spool directory
	MinFreeBytes uint64
}

func NewVideoService(cfg VideoServiceConfig) *VideoService {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &VideoService{
		store:        cfg.Store,
		backend:      cfg.Backend,
		analyzer:     cfg.Analyzer,
		queue:        cfg.Queue,
		cache:        cfg.Cache,
		metrics:      cfg.Metrics,
		log:          log,
		minFreeBytes: cfg.MinFreeBytes,
		now:          time.Now,
	}
}

// SetQueue attaches the analysis queue once the runner exists; the runner
// itself needs ProcessAnalysis as its handler.
func (s *VideoService) SetQueue(q AnalysisQueue) {
	s.queue = q
}

// StoreFile saves an arbitrary upload and returns its public URL.
func (s *VideoService) StoreFile(ctx context.Context, actor *models.User, fileName string, size int64, body io.Reader) (string, error) {
	if err := requirePermission(actor, models.PermUploadVideo); err != nil {
		return "", err
	}
	if strings.TrimSpace(fileName) == "" {
		return "", validationError("file name is required")
	}
	if err := s.ensureSpace(size); err != nil {
		return "", err
	}

	key := storage.NewKey("uploads", actor.OrganizationID, fileName)
	n, err := s.backend.Save(ctx, key, body)
	if err != nil {
		return "", fmt.Errorf("failed to store file: %w", err)
	}
	s.metrics.ObserveUpload("file", n)
	return s.backend.URL(key), nil
}

type UploadVideoInput struct {
	ProjectID   uuid.UUID
	FileName    string
	ContentType string
	Notes       string
	// Size is the declared size or -1 when unknown
	Size int64
	Body io.Reader
}

// Upload streams footage to the storage backend and records it as uploaded.
func (s *VideoService) Upload(ctx context.Context, actor *models.User, input UploadVideoInput) (*models.Video, error) {
	if err := requirePermission(actor, models.PermUploadVideo); err != nil {
		return nil, err
	}
	fileName := filepath.Base(strings.TrimSpace(input.FileName))
	if fileName == "" || fileName == "." || fileName == "/" {
		return nil, validationError("file name is required")
	}
	contentType := input.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		if detected := detectContentType(fileName); detected != "" {
			contentType = detected
		}
	}
	if contentType != "" && !strings.HasPrefix(contentType, "video/") && contentType != "application/octet-stream" {
		return nil, validationError("file must be a video, got %s", contentType)
	}
	project, err := visibleProject(s.store.Projects, actor, input.ProjectID)
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return nil, validationError("project does not exist")
		}
		return nil, err
	}
	if err := s.ensureSpace(input.Size); err != nil {
		return nil, err
	}

	key := storage.NewKey("videos", actor.OrganizationID, fileName)
	n, err := s.backend.Save(ctx, key, input.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to store video: %w", err)
	}

	video := &models.Video{
		OrganizationID: actor.OrganizationID,
		ProjectID:      &project.ID,
		UploaderID:     actor.ID,
		FileName:       fileName,
		StorageKey:     key,
		URL:            s.backend.URL(key),
		ContentType:    contentType,
		SizeBytes:      n,
		Notes:          input.Notes,
		Status:         models.VideoStatusUploaded,
	}
	if err := s.store.Videos.Create(video); err != nil {
		s.removeObject(key)
		return nil, fmt.Errorf("failed to record video: %w", err)
	}

	s.metrics.ObserveUpload("video", n)
	invalidate(s.cache, actor.OrganizationID)
	return video, nil
}

func (s *VideoService) ensureSpace(size int64) error {
	err := storage.EnsureFree(s.backend.SpoolDir(), size, s.minFreeBytes)
	if errors.Is(err, storage.ErrInsufficientSpace) {
		s.log.Warn("Upload rejected", slog.String("error", err.Error()))
		return ErrInsufficientStorage
	}
	if err != nil {
		return fmt.Errorf("failed to check free space: %w", err)
	}
	return nil
}

func (s *VideoService) removeObject(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.backend.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		s.log.Error("Failed to remove stored object",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

type ListVideosInput struct {
	ProjectID *uuid.UUID
	Status    *models.VideoStatus
	Page      int
	PageSize  int
}

// List returns videos on visible projects plus the actor's own uploads.
func (s *VideoService) List(actor *models.User, input ListVideosInput) ([]models.Video, int64, error) {
	scope, err := scopeFor(s.store.Projects, actor)
	if err != nil {
		return nil, 0, err
	}
	filter := repository.VideoFilter{
		OrganizationID: actor.OrganizationID,
		Status:         input.Status,
		Page:           input.Page,
		PageSize:       input.PageSize,
	}
	if input.ProjectID != nil {
		scope = scope.Narrow(input.ProjectID)
		filter.ProjectIDs = scope.IDs
		filter.RestrictToProjects = true
	} else if scope.Restricted() {
		filter.ProjectIDs = scope.IDs
		filter.RestrictToProjects = true
		filter.UploaderID = &actor.ID
	}

	videos, total, err := s.store.Videos.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list videos: %w", err)
	}
	return videos, total, nil
}

// Get returns a video the actor uploaded or whose project they can see.
func (s *VideoService) Get(actor *models.User, id uuid.UUID) (*models.Video, error) {
	video, err := s.store.Videos.FindByID(actor.OrganizationID, id)
	if err != nil {
		return nil, notFound(err, ErrVideoNotFound, "find video")
	}
	if !s.canSee(actor, video) {
		return nil, ErrVideoNotFound
	}
	return video, nil
}

func (s *VideoService) canSee(actor *models.User, video *models.Video) bool {
	if actor.Role.SeesAllProjects() || video.UploaderID == actor.ID {
		return true
	}
	if video.ProjectID == nil {
		return false
	}
	_, err := visibleProject(s.store.Projects, actor, *video.ProjectID)
	return err == nil
}

// Delete removes the row and then the stored object. Only the uploader or a
// reviewer may delete.
func (s *VideoService) Delete(ctx context.Context, actor *models.User, id uuid.UUID) error {
	video, err := s.Get(actor, id)
	if err != nil {
		return err
	}
	if video.UploaderID != actor.ID && !actor.Role.Can(models.PermReviewVideo) {
		return fmt.Errorf("%w: only the uploader or a reviewer can delete this video", ErrPermissionDenied)
	}
	if err := s.store.Videos.Delete(video.ID); err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	if err := s.backend.Delete(ctx, video.StorageKey); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		s.log.Error("Failed to remove stored video",
			slog.String("video_id", video.ID.String()),
			slog.String("error", err.Error()),
		)
	}
	invalidate(s.cache, actor.OrganizationID)
	return nil
}

// RequestAnalysis marks the video as processing and queues it.
func (s *VideoService) RequestAnalysis(actor *models.User, id uuid.UUID) (*models.Video, error) {
	if s.analyzer == nil || s.queue == nil {
		return nil, ErrAnalyzerUnavailable
	}
	video, err := s.Get(actor, id)
	if err != nil {
		return nil, err
	}
	if !video.Status.Analyzable() {
		return nil, fmt.Errorf("%w: status is %s", ErrVideoNotAnalyzable, video.Status)
	}
	if video.ProjectID == nil {
		return nil, fmt.Errorf("%w: video is not linked to a project", ErrVideoNotAnalyzable)
	}

	previous := video.Status
	ok, err := s.store.Videos.Transition(video.OrganizationID, video.ID, []models.VideoStatus{previous},
		map[string]any{"status": models.VideoStatusProcessing, "analysis_error": ""})
	if err != nil {
		return nil, fmt.Errorf("failed to update video: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: status changed concurrently", ErrVideoNotAnalyzable)
	}
	video.Status = models.VideoStatusProcessing
	video.AnalysisError = ""

	if err := s.queue.Submit(analysis.Job{OrganizationID: video.OrganizationID, VideoID: video.ID}); err != nil {
		if _, rollbackErr := s.store.Videos.Transition(video.OrganizationID, video.ID,
			[]models.VideoStatus{models.VideoStatusProcessing}, map[string]any{"status": previous}); rollbackErr != nil {
			s.log.Error("Failed to restore video status",
				slog.String("video_id", video.ID.String()),
				slog.String("error", rollbackErr.Error()),
			)
		}
		if errors.Is(err, analysis.ErrQueueFull) || errors.Is(err, analysis.ErrStopped) {
			return nil, ErrAnalysisBusy
		}
		return nil, fmt.Errorf("failed to queue analysis: %w", err)
	}

	invalidate(s.cache, actor.OrganizationID)
	return video, nil
}

// RecoverInterrupted fails videos left in processing by a previous process.
// Their jobs died with the in-memory queue, so nothing would finish them.
func (s *VideoService) RecoverInterrupted() (int64, error) {
	n, err := s.store.Videos.FailProcessing(interruptedAnalysisMessage)
	if err != nil {
		return 0, fmt.Errorf("failed to recover interrupted analyses: %w", err)
	}
	if n > 0 {
		s.log.Warn("Marked interrupted analyses as failed", slog.Int64("videos", n))
	}
	return n, nil
}

var errVideoUnlinked = errors.New("video is no longer linked to a project")

// ProcessAnalysis is the analysis runner handler. Suggestions are limited to
// non-completed tasks of the video's project, as they stand when the result
// is written. A video deleted or re-queued meanwhile keeps its current row.
func (s *VideoService) ProcessAnalysis(ctx context.Context, job analysis.Job) error {
	start := s.now()
	video, err := s.store.Videos.FindByID(job.OrganizationID, job.VideoID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load video: %w", err)
	}
	if video.Status != models.VideoStatusProcessing {
		return nil
	}

	suggested, analysisErr := s.suggest(ctx, video)

	var stored bool
	err = s.store.Transaction(func(tx *repository.Store) error {
		var values map[string]any
		if analysisErr == nil {
			ids, err := openSuggestions(tx, job, suggested)
			switch {
			case errors.Is(err, errVideoUnlinked):
				analysisErr = err
			case err != nil:
				return err
			default:
				values = map[string]any{
					"status":             models.VideoStatusAnalyzed,
					"analysis_error":     "",
					"ai_suggested_tasks": datatypes.JSONSlice[uuid.UUID](ids),
					"analyzed_at":        s.now().UTC(),
				}
			}
		}
		if analysisErr != nil {
			values = map[string]any{
				"status":         models.VideoStatusFailed,
				"analysis_error": utils.TruncateBytes(analysisErr.Error(), maxAnalysisErrorLen),
			}
		}
		ok, err := tx.Videos.Transition(job.OrganizationID, job.VideoID,
			[]models.VideoStatus{models.VideoStatusProcessing}, values)
		stored = ok
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to store analysis result: %w", err)
	}

	outcome := "analyzed"
	if analysisErr != nil {
		outcome = "failed"
	}
	s.metrics.ObserveAnalysis(outcome, s.now().Sub(start))
	if !stored {
		s.log.Info("Dropped analysis result for a video that changed meanwhile",
			slog.String("video_id", job.VideoID.String()),
		)
		return nil
	}
	invalidate(s.cache, job.OrganizationID)
	return analysisErr
}

// suggest asks the analyzer about the open tasks of the video's project.
func (s *VideoService) suggest(ctx context.Context, video *models.Video) ([]uuid.UUID, error) {
	if video.ProjectID == nil {
		return nil, errVideoUnlinked
	}
	project, err := s.store.Projects.FindByID(video.OrganizationID, *video.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	open, err := openTasks(s.store, project)
	if err != nil {
		return nil, err
	}

	suggested, err := s.analyzer.SuggestCompletedTasks(ctx, AnalysisRequest{Video: video, Project: project, Tasks: open})
	if err != nil {
		return nil, err
	}
	return utils.UniqueIDs(suggested), nil
}

// openSuggestions locks the video's project and keeps the suggestions that
// are still open tasks of it.
func openSuggestions(tx *repository.Store, job analysis.Job, suggested []uuid.UUID) ([]uuid.UUID, error) {
	video, err := tx.Videos.FindByID(job.OrganizationID, job.VideoID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reload video: %w", err)
	}
	if video.ProjectID == nil {
		return nil, errVideoUnlinked
	}
	project, err := tx.Projects.FindForUpdate(job.OrganizationID, *video.ProjectID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errVideoUnlinked
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock project: %w", err)
	}
	// project deletion detaches videos under the same lock
	if video, err = tx.Videos.FindByID(job.OrganizationID, job.VideoID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to reload video: %w", err)
	}
	if video.ProjectID == nil || *video.ProjectID != project.ID {
		return nil, errVideoUnlinked
	}

	open, err := openTasks(tx, project)
	if err != nil {
		return nil, err
	}
	openIDs := make([]uuid.UUID, 0, len(open))
	for _, t := range open {
		openIDs = append(openIDs, t.ID)
	}
	return utils.IntersectIDs(suggested, openIDs), nil
}

func openTasks(store *repository.Store, project *models.Project) ([]models.Task, error) {
	tasks, err := store.Tasks.FindByIDs(project.OrganizationID, project.TaskIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	open := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ProjectID == project.ID && t.Status != models.TaskStatusCompleted {
			open = append(open, t)
		}
	}
	return open, nil
}

// ReviewItem is an analyzed video with its staged tasks expanded.
type ReviewItem struct {
	Video          models.Video  `json:"video"`
	SuggestedTasks []models.Task `json:"suggested_tasks"`
}

// ListForReview returns analyzed videos on projects the reviewer can see.
func (s *VideoService) ListForReview(actor *models.User) ([]ReviewItem, error) {
	if err := requirePermission(actor, models.PermReviewVideo); err != nil {
		return nil, err
	}
	scope, err := scopeFor(s.store.Projects, actor)
	if err != nil {
		return nil, err
	}
	status := models.VideoStatusAnalyzed
	videos, _, err := s.store.Videos.List(repository.VideoFilter{
		OrganizationID:     actor.OrganizationID,
		ProjectIDs:         scope.IDs,
		RestrictToProjects: scope.Restricted(),
		Status:             &status,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}

	items := make([]ReviewItem, 0, len(videos))
	for _, v := range videos {
		tasks, err := s.store.Tasks.FindByIDs(actor.OrganizationID, v.AISuggestedTasks)
		if err != nil {
			return nil, fmt.Errorf("failed to load suggested tasks: %w", err)
		}
		items = append(items, ReviewItem{Video: v, SuggestedTasks: tasks})
	}
	return items, nil
}

// Review completes the accepted suggestions and closes the review. Accepting
// nothing rejects every suggestion.
func (s *VideoService) Review(actor *models.User, id uuid.UUID, accepted []uuid.UUID) (*models.Video, error) {
	if err := requirePermission(actor, models.PermReviewVideo); err != nil {
		return nil, err
	}
	video, err := s.Get(actor, id)
	if err != nil {
		return nil, err
	}
	if video.Status != models.VideoStatusAnalyzed {
		return nil, ErrVideoNotReviewable
	}
	accepted = utils.UniqueIDs(accepted)
	for _, taskID := range accepted {
		if !utils.ContainsID(video.AISuggestedTasks, taskID) {
			return nil, validationError("task %s was not suggested for this video", taskID)
		}
	}

	now := s.now().UTC()
	err = s.store.Transaction(func(tx *repository.Store) error {
		tasks, err := tx.Tasks.FindByIDs(actor.OrganizationID, accepted)
		if err != nil {
			return fmt.Errorf("failed to load accepted tasks: %w", err)
		}
		if len(tasks) != len(accepted) {
			return validationError("some accepted tasks no longer exist")
		}
		for i := range tasks {
			task := &tasks[i]
			task.SetStatus(models.TaskStatusCompleted, now)
			task.Assignee = nil
			if err := tx.Tasks.Update(task); err != nil {
				return fmt.Errorf("failed to complete task: %w", err)
			}
		}
		ok, err := tx.Videos.Transition(video.OrganizationID, video.ID,
			[]models.VideoStatus{models.VideoStatusAnalyzed}, map[string]any{
				"status":             models.VideoStatusReviewed,
				"ai_suggested_tasks": datatypes.JSONSlice[uuid.UUID]{},
				"reviewed_at":        now,
			})
		if err != nil {
			return fmt.Errorf("failed to close review: %w", err)
		}
		if !ok {
			return ErrVideoNotReviewable
		}
		video.AISuggestedTasks = datatypes.JSONSlice[uuid.UUID]{}
		video.Status = models.VideoStatusReviewed
		video.ReviewedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	invalidate(s.cache, actor.OrganizationID)
	return video, nil
}
