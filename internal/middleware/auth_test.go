package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "middleware-test-secret-0123456789abcdef"

type fakeActivityRepo struct {
	touched []model.User
	err     error
}

func (r *fakeActivityRepo) Touch(ctx context.Context, user *model.User) error {
	r.touched = append(r.touched, *user)
	return r.err
}

func newRouter(cfg *config.Config, repo UserActivityRepo, roles ...model.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := []gin.HandlerFunc{AuthMiddleware(cfg), ActivityMiddleware(repo)}
	if len(roles) > 0 {
		handlers = append(handlers, RoleMiddleware(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		c.String(http.StatusOK, "%d", util.GetUserFromContext(c).UserID)
	})
	r.GET("/", handlers...)
	return r
}

func sign(t *testing.T, user *model.User, issuer string) string {
	t.Helper()
	tok, err := util.GenerateJWT(user, secret, issuer, time.Hour)
	require.NoError(t, err)
	return tok
}

func serve(r *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: secret, Issuer: "idp"}}
	repo := &fakeActivityRepo{}
	r := newRouter(cfg, repo)

	user := &model.User{BaseModel: model.BaseModel{ID: 5}, Name: "Ada", Email: "ada@example.com"}

	assert.Equal(t, http.StatusUnauthorized, serve(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer ").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer "+sign(t, user, "someone-else")).Code)

	w := serve(r, "Bearer "+sign(t, user, "idp"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "5", w.Body.String())

	require.Len(t, repo.touched, 1)
	assert.Equal(t, uint(5), repo.touched[0].ID)
	assert.Equal(t, model.Student, repo.touched[0].Role, "role defaults to student")
	assert.Equal(t, "ada@example.com", repo.touched[0].Email)
}

func TestAuthMiddlewareRejectsExpiredToken(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: secret}}
	r := newRouter(cfg, &fakeActivityRepo{})

	tok, err := util.GenerateJWT(&model.User{BaseModel: model.BaseModel{ID: 5}}, secret, "", -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(r, "Bearer "+tok).Code)
}

func TestActivityFailureDoesNotBlockRequest(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: secret}}
	r := newRouter(cfg, &fakeActivityRepo{err: errors.New("db down")})

	w := serve(r, "Bearer "+sign(t, &model.User{BaseModel: model.BaseModel{ID: 9}}, ""))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRoleMiddleware(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: secret}}
	r := newRouter(cfg, &fakeActivityRepo{}, model.Teacher)

	cases := []struct {
		role model.UserRole
		want int
	}{
		{model.Student, http.StatusForbidden},
		{model.Teacher, http.StatusOK},
		{model.Admin, http.StatusOK},
	}
	for _, tc := range cases {
		tok := sign(t, &model.User{BaseModel: model.BaseModel{ID: 3}, Role: tc.role}, "")
		assert.Equal(t, tc.want, serve(r, "Bearer "+tok).Code, string(tc.role))
	}
}
