package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/n1kh11p/blokt-sub000/internal/constants"
	"github.com/n1kh11p/blokt-sub000/internal/dto"
	"github.com/n1kh11p/blokt-sub000/internal/logger"
	"github.com/n1kh11p/blokt-sub000/internal/middleware"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"github.com/n1kh11p/blokt-sub000/internal/services"
	"github.com/n1kh11p/blokt-sub000/internal/testutil"
)

func (suite *HandlerTestSuite) authRouter() *gin.Engine {
	handler := NewAuthHandler(suite.auth, services.NewOrganizationService(suite.store, nil), logger.Discard())

	r := gin.New()
	r.Use(sessions.Sessions(constants.SessionCookieName, cookie.NewStore([]byte("secret"))))
	r.POST("/api/auth/register", handler.Register)
	r.POST("/api/auth/login", handler.Login)
	r.POST("/api/auth/logout", handler.Logout)
	r.GET("/api/auth/me", middleware.RequireAuth(suite.auth), handler.GetCurrentUser)
	r.POST("/api/auth/token", middleware.RequireAuth(suite.auth), handler.IssueToken)
	return r
}

func postJSON(r http.Handler, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func (suite *HandlerTestSuite) TestRegister_FounderGetsSession() {
	r := suite.authRouter()

	w := postJSON(r, "/api/auth/register", map[string]string{
		"email":             "founder@example.com",
		"password":          "supersecret",
		"name":              "Founder",
		"organization_name": "Granite Works",
	})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var user dto.UserDTO
	suite.decode(w, &user)
	suite.Equal(models.RoleExecutive, user.Role)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	me := httptest.NewRecorder()
	r.ServeHTTP(me, req)
	suite.Require().Equal(http.StatusOK, me.Code, me.Body.String())
	var resp dto.MeResponse
	suite.decode(me, &resp)
	suite.Equal("Granite Works", resp.Organization.Name)
	suite.NotEmpty(resp.Organization.InviteCode)
}

func (suite *HandlerTestSuite) TestRegister_DuplicateEmailIs409() {
	r := suite.authRouter()

	w := postJSON(r, "/api/auth/register", map[string]string{
		"email":       suite.worker.Email,
		"password":    "supersecret",
		"name":        "Copy",
		"invite_code": suite.org.InviteCode,
	})
	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *HandlerTestSuite) TestRegister_MissingFieldsIs400() {
	r := suite.authRouter()

	w := postJSON(r, "/api/auth/register", map[string]string{"email": "a@example.com"})
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlerTestSuite) TestLogin_WrongPasswordIs401() {
	r := suite.authRouter()

	w := postJSON(r, "/api/auth/login", map[string]string{"email": suite.worker.Email, "password": "nope-nope"})
	suite.Equal(http.StatusUnauthorized, w.Code)
}

func (suite *HandlerTestSuite) TestLogin_TokenAuthenticatesBearerRequests() {
	r := suite.authRouter()

	login := postJSON(r, "/api/auth/login", map[string]string{"email": suite.worker.Email, "password": testutil.Password})
	suite.Require().Equal(http.StatusOK, login.Code, login.Body.String())

	tokenResp := postJSON(r, "/api/auth/token", nil, login.Result().Cookies()...)
	suite.Require().Equal(http.StatusCreated, tokenResp.Code, tokenResp.Body.String())
	var token dto.TokenResponse
	suite.decode(tokenResp, &token)
	suite.Equal("Bearer", token.TokenType)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token.Token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	suite.Require().Equal(http.StatusOK, w.Code)
	var me dto.MeResponse
	suite.decode(w, &me)
	suite.Equal(suite.worker.ID, me.User.ID)
	suite.Empty(me.Organization.InviteCode)
}

func (suite *HandlerTestSuite) TestLogout_ClearsSession() {
	r := suite.authRouter()

	login := postJSON(r, "/api/auth/login", map[string]string{"email": suite.pm.Email, "password": testutil.Password})
	suite.Require().Equal(http.StatusOK, login.Code)

	logout := postJSON(r, "/api/auth/logout", nil, login.Result().Cookies()...)
	suite.Require().Equal(http.StatusOK, logout.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	for _, c := range logout.Result().Cookies() {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	suite.Equal(http.StatusUnauthorized, w.Code)
}
