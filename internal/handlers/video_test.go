package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/n1kh11p/blokt-sub000/internal/analysis"
	"github.com/n1kh11p/blokt-sub000/internal/constants"
	"github.com/n1kh11p/blokt-sub000/internal/dto"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/n1kh11p/blokt-sub000/internal/services"
	"github.com/n1kh11p/blokt-sub000/internal/testutil"
)

type formPart struct {
	name, fileName, contentType, value string
}

func multipartBody(parts ...formPart) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for _, p := range parts {
		if p.fileName == "" {
			_ = mw.WriteField(p.name, p.value)
			continue
		}
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{`form-data; name="` + p.name + `"; filename="` + p.fileName + `"`}
		header["Content-Type"] = []string{p.contentType}
		w, _ := mw.CreatePart(header)
		_, _ = w.Write([]byte(p.value))
	}
	_ = mw.Close()
	return body, mw.FormDataContentType()
}

func (suite *HandlerTestSuite) uploadContext(user *models.User, parts ...formPart) (*gin.Context, *httptest.ResponseRecorder) {
	body, contentType := multipartBody(parts...)
	c, w := suite.createAuthContext(http.MethodPost, "/api/videos", nil, user)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/videos", body)
	c.Request.Header.Set("Content-Type", contentType)
	return c, w
}

func (suite *HandlerTestSuite) TestUploadVideo_StreamsToStorage() {
	c, w := suite.uploadContext(suite.worker,
		formPart{name: "project_id", value: suite.project.ID.String()},
		formPart{name: "notes", value: "north stair"},
		formPart{name: constants.UploadFormField, fileName: "walk.mp4", contentType: "video/mp4", value: "fake-footage"},
	)

	suite.videos.UploadVideo(c)

	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var video models.Video
	suite.decode(w, &video)
	suite.Equal(models.VideoStatusUploaded, video.Status)
	suite.Equal("north stair", video.Notes)
	suite.EqualValues(len("fake-footage"), video.SizeBytes)

	stored := testutil.Reload[models.Video](suite.T(), suite.db, video.ID)
	data, err := os.ReadFile(filepath.Join(suite.backend.Root(), filepath.FromSlash(stored.StorageKey)))
	suite.Require().NoError(err)
	suite.Equal("fake-footage", string(data))
}

func (suite *HandlerTestSuite) TestUploadVideo_FileBeforeProjectIs400() {
	c, w := suite.uploadContext(suite.worker,
		formPart{name: constants.UploadFormField, fileName: "walk.mp4", contentType: "video/mp4", value: "fake"},
		formPart{name: "project_id", value: suite.project.ID.String()},
	)

	suite.videos.UploadVideo(c)

	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestUploadVideo_TooLarge() {
	c, w := suite.uploadContext(suite.worker,
		formPart{name: "project_id", value: suite.project.ID.String()},
		formPart{name: constants.UploadFormField, fileName: "big.mp4", contentType: "video/mp4", value: strings.Repeat("x", 2<<20)},
	)

	suite.videos.UploadVideo(c)

	suite.Equal(http.StatusRequestEntityTooLarge, w.Code)
}

func (suite *HandlerTestSuite) TestUploadVideo_NotMultipart() {
	c, w := suite.createAuthContext(http.MethodPost, "/api/videos", map[string]any{"file": "x"}, suite.worker)

	suite.videos.UploadVideo(c)

	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestUploadFile_ReturnsURL() {
	body, contentType := multipartBody(formPart{name: constants.UploadFormField, fileName: "plan.pdf", contentType: "application/pdf", value: "%PDF"})
	c, w := suite.createAuthContext(http.MethodPost, "/api/upload", nil, suite.foreman)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/upload", body)
	c.Request.Header.Set("Content-Type", contentType)

	suite.videos.UploadFile(c)

	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	var resp dto.UploadResponse
	suite.decode(w, &resp)
	suite.True(resp.Success)
	suite.True(strings.HasPrefix(resp.URL, "/uploads/"))
}

func (suite *HandlerTestSuite) TestUploadFile_Missing() {
	body, contentType := multipartBody(formPart{name: "other", value: "x"})
	c, w := suite.createAuthContext(http.MethodPost, "/api/upload", nil, suite.foreman)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/upload", body)
	c.Request.Header.Set("Content-Type", contentType)

	suite.videos.UploadFile(c)

	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestAnalyzeVideo_Accepted() {
	video := testutil.CreateVideo(suite.T(), suite.db, suite.org.ID, &suite.project.ID, suite.worker.ID, models.VideoStatusUploaded)
	c, w := suite.createAuthContext(http.MethodPost, "/", nil, suite.worker)
	withParams(c, "id", video.ID.String())

	suite.videos.AnalyzeVideo(c)

	suite.Require().Equal(http.StatusAccepted, w.Code, w.Body.String())
	var resp models.Video
	suite.decode(w, &resp)
	suite.Equal(models.VideoStatusProcessing, resp.Status)
	suite.Require().Len(suite.queue.jobs, 1)
	suite.Equal(video.ID, suite.queue.jobs[0].VideoID)
}

func (suite *HandlerTestSuite) TestAnalyzeVideo_QueueFullIs503() {
	suite.queue.err = analysis.ErrQueueFull
	video := testutil.CreateVideo(suite.T(), suite.db, suite.org.ID, &suite.project.ID, suite.worker.ID, models.VideoStatusUploaded)
	c, w := suite.createAuthContext(http.MethodPost, "/", nil, suite.worker)
	withParams(c, "id", video.ID.String())

	suite.videos.AnalyzeVideo(c)

	suite.Equal(http.StatusServiceUnavailable, w.Code)
	stored := testutil.Reload[models.Video](suite.T(), suite.db, video.ID)
	suite.Equal(models.VideoStatusUploaded, stored.Status)
}

func (suite *HandlerTestSuite) TestAnalyzeVideo_WhileProcessingIs409() {
	video := testutil.CreateVideo(suite.T(), suite.db, suite.org.ID, &suite.project.ID, suite.worker.ID, models.VideoStatusProcessing)
	c, w := suite.createAuthContext(http.MethodPost, "/", nil, suite.worker)
	withParams(c, "id", video.ID.String())

	suite.videos.AnalyzeVideo(c)

	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *HandlerTestSuite) TestReview_AcceptsSubset() {
	first := testutil.CreateTask(suite.T(), suite.db, suite.project, "Frame", nil)
	second := testutil.CreateTask(suite.T(), suite.db, suite.project, "Drywall", nil)
	video := testutil.CreateVideo(suite.T(), suite.db, suite.org.ID, &suite.project.ID, suite.worker.ID,
		models.VideoStatusAnalyzed, first.ID, second.ID)

	c, w := suite.createAuthContext(http.MethodGet, "/api/review", nil, suite.foreman)
	suite.videos.ReviewQueue(c)
	suite.Require().Equal(http.StatusOK, w.Code)
	var queue struct {
		Videos []services.ReviewItem `json:"videos"`
	}
	suite.decode(w, &queue)
	suite.Require().Len(queue.Videos, 1)
	suite.Len(queue.Videos[0].SuggestedTasks, 2)

	c, w = suite.createAuthContext(http.MethodPost, "/", map[string]any{"accepted_task_ids": []uuid.UUID{first.ID}}, suite.foreman)
	withParams(c, "id", video.ID.String())
	suite.videos.ReviewVideo(c)

	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.Equal(models.TaskStatusCompleted, testutil.Reload[models.Task](suite.T(), suite.db, first.ID).Status)
	suite.Equal(models.TaskStatusPending, testutil.Reload[models.Task](suite.T(), suite.db, second.ID).Status)
	stored := testutil.Reload[models.Video](suite.T(), suite.db, video.ID)
	suite.Equal(models.VideoStatusReviewed, stored.Status)
	suite.Empty(stored.AISuggestedTasks)
}

func (suite *HandlerTestSuite) TestReview_UnsuggestedTaskIs400() {
	task := testutil.CreateTask(suite.T(), suite.db, suite.project, "Frame", nil)
	video := testutil.CreateVideo(suite.T(), suite.db, suite.org.ID, &suite.project.ID, suite.worker.ID, models.VideoStatusAnalyzed)
	c, w := suite.createAuthContext(http.MethodPost, "/", map[string]any{"accepted_task_ids": []uuid.UUID{task.ID}}, suite.foreman)
	withParams(c, "id", video.ID.String())

	suite.videos.ReviewVideo(c)

	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestDeleteVideo_OtherWorkersUploadForbidden() {
	other := testutil.CreateUser(suite.T(), suite.db, suite.org.ID, models.RoleFieldWorker)
	video := testutil.CreateVideo(suite.T(), suite.db, suite.org.ID, &suite.project.ID, other.ID, models.VideoStatusUploaded)
	c, w := suite.createAuthContext(http.MethodDelete, "/", nil, suite.worker)
	withParams(c, "id", video.ID.String())

	suite.videos.DeleteVideo(c)

	suite.Equal(http.StatusForbidden, w.Code)
}
