package handlers

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/constants"
	"github.com/n1kh11p/blokt-sub000/internal/dto"
	apierrors "github.com/n1kh11p/blokt-sub000/internal/errors"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/n1kh11p/blokt-sub000/internal/services"
	"github.com/n1kh11p/blokt-sub000/internal/utils"
)

// maxFormValueBytes bounds the text fields that precede the file part.
const maxFormValueBytes = 4 << 10

// VideoHandler serves uploads, the video library and the AI review queue.
type VideoHandler struct {
	videoService   *services.VideoService
	maxUploadBytes int64
	log            *slog.Logger
}

func NewVideoHandler(videoService *services.VideoService, maxUploadBytes int64, log *slog.Logger) *VideoHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = constants.DefaultMaxUploadBytes
	}
	return &VideoHandler{
		videoService:   videoService,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

// UploadFile stores any single file sent as the "file" form field and
// returns its public URL.
func (h *VideoHandler) UploadFile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, constants.SimpleUploadMaxBytes)

	header, err := c.FormFile(constants.UploadFormField)
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			apierrors.PayloadTooLarge(c, "")
			return
		}
		apierrors.BadRequest(c, "No file provided")
		return
	}
	src, err := header.Open()
	if err != nil {
		apierrors.ReportInternal(c, h.log, err)
		return
	}
	defer src.Close()

	url, err := h.videoService.StoreFile(c.Request.Context(), user, header.Filename, header.Size, src)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.UploadResponse{Success: true, URL: url})
}

// UploadVideo streams a multipart body part by part so footage never has to
// fit in memory. Text fields (project_id, notes) must precede the file part.
func (h *VideoHandler) UploadVideo(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if c.Request.ContentLength > h.maxUploadBytes {
		apierrors.PayloadTooLarge(c, "")
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	reader, err := c.Request.MultipartReader()
	if err != nil {
		apierrors.BadRequest(c, "Expected a multipart/form-data body")
		return
	}

	var (
		input   services.UploadVideoInput
		project string
	)
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			apierrors.BadRequest(c, "No file provided")
			return
		}
		if err != nil {
			respondMultipartError(c, err)
			return
		}

		switch part.FormName() {
		case "project_id":
			if project, err = formValue(part); err != nil {
				respondMultipartError(c, err)
				return
			}
		case "notes":
			if input.Notes, err = formValue(part); err != nil {
				respondMultipartError(c, err)
				return
			}
		case constants.UploadFormField:
			defer part.Close()
			projectID, err := uuid.Parse(project)
			if err != nil {
				apierrors.BadRequest(c, "project_id must be a valid id sent before the file")
				return
			}
			input.ProjectID = projectID
			input.FileName = part.FileName()
			input.ContentType = part.Header.Get("Content-Type")
			input.Size = c.Request.ContentLength
			input.Body = part

			video, err := h.videoService.Upload(c.Request.Context(), user, input)
			if err != nil {
				respondServiceError(c, h.log, err)
				return
			}
			c.JSON(http.StatusCreated, video)
			return
		default:
			_ = part.Close()
		}
	}
}

func formValue(part *multipart.Part) (string, error) {
	defer part.Close()
	data, err := io.ReadAll(io.LimitReader(part, maxFormValueBytes))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func respondMultipartError(c *gin.Context, err error) {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		apierrors.PayloadTooLarge(c, "")
		return
	}
	apierrors.BadRequest(c, "Malformed multipart body")
}

// ListVideos filters by project_id and status
func (h *VideoHandler) ListVideos(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	projectID, ok := queryUUID(c, "project_id")
	if !ok {
		return
	}
	status, ok := queryEnum(c, "status", models.VideoStatus.Valid)
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	videos, total, err := h.videoService.List(user, services.ListVideosInput{
		ProjectID: projectID,
		Status:    status,
		Page:      params.Page,
		PageSize:  params.Limit,
	})
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.VideoListResponse{
		Videos:     videos,
		Pagination: dto.NewPagination(params, total),
	})
}

func (h *VideoHandler) GetVideo(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	video, err := h.videoService.Get(user, id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, video)
}

// DeleteVideo removes the row and the stored object
func (h *VideoHandler) DeleteVideo(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.videoService.Delete(c.Request.Context(), user, id); err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: "Video deleted successfully"})
}

// AnalyzeVideo queues AI analysis and answers 202 with the video in status
// processing.
func (h *VideoHandler) AnalyzeVideo(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	video, err := h.videoService.RequestAnalysis(user, id)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusAccepted, video)
}

// ReviewQueue lists analyzed videos with their suggested tasks expanded
func (h *VideoHandler) ReviewQueue(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	items, err := h.videoService.ListForReview(user)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"videos": items})
}

// ReviewVideo completes the accepted suggestions and closes the review
func (h *VideoHandler) ReviewVideo(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ReviewRequest
	if !bindJSON(c, &req) {
		return
	}

	video, err := h.videoService.Review(user, id, req.AcceptedTaskIDs)
	if err != nil {
		respondServiceError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, video)
}
