package lmsclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"lms_backend/internal/app"
	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/progress"
	"lms_backend/internal/service"
	"lms_backend/internal/util"
	"lms_backend/pkg/database"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	secret = "client-test-secret-0123456789abcdefgh"
	issuer = "lms-test"
)

type testServer struct {
	srv    *httptest.Server
	course *Course
}

// startServer 启动完整的服务端并导入一门两模块课程
func startServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)

	cfg := &config.Config{
		Server:      config.ServerConfig{Mode: gin.TestMode},
		JWT:         config.JWTConfig{Secret: secret, Issuer: issuer},
		Storage:     config.StorageConfig{Type: "local", LocalPath: t.TempDir()},
		Certificate: config.CertificateConfig{Issuer: "Test Academy"},
		RateLimit:   config.RateLimitConfig{MaxRequests: 10000, WindowMinutes: 1},
	}
	a := app.New(cfg, db, nil, service.LogMailer{})

	srv := httptest.NewServer(a.Router)
	t.Cleanup(func() {
		srv.Close()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	imported, err := a.Services.Course.ImportCourse(context.Background(), 100, service.ImportCourseRequest{
		Title: "Client Course",
		Modules: []service.ImportModule{
			{Title: "A", Content: []service.ImportContent{{Kind: progress.MediaText}, {Kind: progress.MediaVideo}}},
			{
				Title:   "B",
				Content: []service.ImportContent{{Kind: progress.MediaDocument}},
				Quiz: &service.ImportQuiz{
					PassingScore: 60,
					Questions: []service.ImportQuestion{
						{Prompt: "q1", Options: []string{"x", "y"}, CorrectOption: 0},
						{Prompt: "q2", Options: []string{"x", "y"}, CorrectOption: 1},
					},
				},
			},
		},
	})
	require.NoError(t, err)

	ts := &testServer{srv: srv}
	c := New(srv.URL+"/api", tokenFor(t, 100, model.Teacher))
	ts.course, err = c.FetchCourse(context.Background(), imported.ID)
	require.NoError(t, err)
	return ts
}

func tokenFor(t *testing.T, id uint, role model.UserRole) string {
	t.Helper()
	tok, err := util.GenerateJWT(&model.User{BaseModel: model.BaseModel{ID: id}, Role: role}, secret, issuer, time.Hour)
	require.NoError(t, err)
	return tok
}

func (ts *testServer) learner(t *testing.T, id uint) *Session {
	t.Helper()
	c := New(ts.srv.URL+"/api", tokenFor(t, id, model.Student))
	require.NoError(t, c.Enroll(context.Background(), ts.course.ID))
	return NewSession(c, 0)
}

func (ts *testServer) ids() (a, b Module) {
	return ts.course.Modules[0], ts.course.Modules[1]
}

func TestSessionRequiresCourse(t *testing.T) {
	s := NewSession(New("http://127.0.0.1:1/api", ""), 0)

	_, err := s.Toggle(context.Background(), 1, 1)
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, _, err = s.SubmitQuiz(context.Background(), 1, []int{0})
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = s.ClaimCertificate(context.Background())
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestSessionWalkthrough(t *testing.T) {
	ts := startServer(t)
	s := ts.learner(t, 7)
	ctx := context.Background()
	a, b := ts.ids()

	st, err := s.Open(ctx, ts.course.ID)
	require.NoError(t, err)
	assert.Equal(t, progress.StatusUnlocked, st.Status(a.ID))
	assert.Equal(t, progress.StatusLocked, st.Status(b.ID))

	// 未解锁模块在本地就被拒绝
	_, err = s.Toggle(ctx, b.ID, b.Content[0].ID)
	assert.True(t, progress.IsLocked(err))
	_, _, err = s.SubmitQuiz(ctx, b.Quiz.ID, []int{0, 1})
	assert.True(t, progress.IsLocked(err))

	_, err = s.Toggle(ctx, a.ID, a.Content[0].ID)
	require.NoError(t, err)
	st, err = s.Toggle(ctx, a.ID, a.Content[1].ID)
	require.NoError(t, err)
	assert.False(t, st.Unsynced)
	assert.Empty(t, st.Pending)
	assert.Equal(t, 50, st.Derived.OverallProgress)
	assert.Equal(t, progress.StatusUnlocked, st.Status(b.ID))

	_, err = s.ClaimCertificate(ctx)
	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, http.StatusUnprocessableEntity, invalid.StatusCode)
	assert.Equal(t, "all compulsory modules incomplete", invalid.Message)

	res, st, err := s.SubmitQuiz(ctx, b.Quiz.ID, []int{0, 1})
	require.NoError(t, err)
	assert.True(t, res.Attempt.Passed)
	assert.Equal(t, progress.StatusUnlocked, st.Status(b.ID))

	st, err = s.Toggle(ctx, b.ID, b.Content[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 100, st.Derived.OverallProgress)
	assert.Equal(t, progress.StatusComplete, st.Status(b.ID))

	cert, err := s.ClaimCertificate(ctx)
	require.NoError(t, err)
	require.NotNil(t, cert)

	// 重复领取视为成功，返回同一张证书
	again, err := s.ClaimCertificate(ctx)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, cert.Number, again.Number)
}

func TestSessionReopenRestoresServerState(t *testing.T) {
	ts := startServer(t)
	ctx := context.Background()
	a, b := ts.ids()

	s := ts.learner(t, 8)
	_, err := s.Open(ctx, ts.course.ID)
	require.NoError(t, err)
	_, err = s.Toggle(ctx, a.ID, a.Content[0].ID)
	require.NoError(t, err)
	_, err = s.Toggle(ctx, a.ID, a.Content[1].ID)
	require.NoError(t, err)
	_, _, err = s.SubmitQuiz(ctx, b.Quiz.ID, []int{1, 0})
	require.NoError(t, err)

	fresh := NewSession(s.Client, 0)
	st, err := fresh.Open(ctx, ts.course.ID)
	require.NoError(t, err)
	assert.Equal(t, progress.StatusComplete, st.Status(a.ID))
	assert.Equal(t, progress.StatusUnlocked, st.Status(b.ID))
	require.Contains(t, st.Attempts, b.Quiz.ID)
	assert.False(t, st.Attempts[b.Quiz.ID].Passed)
	assert.Equal(t, 50, st.Derived.OverallProgress)
	assert.Equal(t, a.ID, st.Progress.LastAccessedModule)
}

func TestServerRejectsLockedWriteWithTypedError(t *testing.T) {
	ts := startServer(t)
	s := ts.learner(t, 9)
	_, b := ts.ids()

	req := progress.WriteRequest{CourseID: ts.course.ID, ModuleID: b.ID, ContentID: b.Content[0].ID, IsCompleted: true}
	_, err := s.Client.WriteProgress(context.Background(), req)

	var locked *progress.LockedModuleError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, b.ID, locked.ModuleID)
}

func TestFetchLatestAttemptAbsent(t *testing.T) {
	ts := startServer(t)
	s := ts.learner(t, 10)
	_, b := ts.ids()

	a, err := s.Client.FetchLatestAttempt(context.Background(), ts.course.ID, b.Quiz.ID, 0)
	require.NoError(t, err)
	assert.Nil(t, a)
}

func TestWriteFailureKeepsOptimisticState(t *testing.T) {
	ts := startServer(t)
	s := ts.learner(t, 11)
	ctx := context.Background()
	a, _ := ts.ids()

	_, err := s.Open(ctx, ts.course.ID)
	require.NoError(t, err)

	// 进度存储不可用
	s.Client = New("http://127.0.0.1:1/api", "")
	st, err := s.Toggle(ctx, a.ID, a.Content[0].ID)

	var storeErr *StoreWriteError
	require.ErrorAs(t, err, &storeErr)
	var netErr *NetworkError
	assert.True(t, errors.As(err, &netErr))
	assert.True(t, st.Unsynced)
	require.Len(t, st.Pending, 1)
	assert.True(t, st.Derived.ContentCompleted[a.Content[0].ID])

	// 恢复后原样重试
	s.Client = New(ts.srv.URL+"/api", tokenFor(t, 11, model.Student))
	st, err = s.RetryPendingWrite(ctx)
	require.NoError(t, err)
	assert.False(t, st.Unsynced)
	assert.Empty(t, st.Pending)
	assert.Equal(t, 25, st.Derived.OverallProgress)

	// 没有待重试的写入时不发请求
	st, err = s.RetryPendingWrite(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, st.Derived.OverallProgress)
}

func TestLockedWriteRollsBackAndRelocks(t *testing.T) {
	ts := startServer(t)
	s := ts.learner(t, 12)
	ctx := context.Background()
	a, b := ts.ids()

	_, err := s.Open(ctx, ts.course.ID)
	require.NoError(t, err)
	_, err = s.Toggle(ctx, a.ID, a.Content[0].ID)
	require.NoError(t, err)
	st, err := s.Toggle(ctx, a.ID, a.Content[1].ID)
	require.NoError(t, err)
	require.Equal(t, progress.StatusUnlocked, st.Status(b.ID))

	// 另一台设备取消了模块 A 的内容，服务端重新锁定 B
	other := NewSession(s.Client, 0)
	_, err = other.Open(ctx, ts.course.ID)
	require.NoError(t, err)
	_, err = other.Toggle(ctx, a.ID, a.Content[1].ID)
	require.NoError(t, err)

	// 本地仍认为 B 已解锁，请求被服务端拒绝
	st, err = s.Toggle(ctx, b.ID, b.Content[0].ID)
	var locked *progress.LockedModuleError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, b.ID, locked.ModuleID)

	assert.False(t, st.Unsynced)
	assert.Empty(t, st.Pending)
	assert.False(t, st.Derived.ContentCompleted[b.Content[0].ID])
	assert.False(t, st.Derived.ContentCompleted[a.Content[1].ID])
	assert.Equal(t, progress.StatusLocked, st.Status(b.ID))

	// 没有遗留的待重试写入
	st, err = s.RetryPendingWrite(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, st.Derived.OverallProgress)
}

func TestWritesReachServerInOrder(t *testing.T) {
	ts := startServer(t)
	s := ts.learner(t, 13)
	ctx := context.Background()
	a, _ := ts.ids()

	_, err := s.Open(ctx, ts.course.ID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, c := range a.Content {
		c := c
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Toggle(ctx, a.ID, c.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	st := s.State()
	assert.False(t, st.Unsynced)
	assert.Empty(t, st.Pending)
	assert.Equal(t, 50, st.Derived.OverallProgress)

	fresh := NewSession(s.Client, 0)
	st, err = fresh.Open(ctx, ts.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, st.Derived.OverallProgress)
	assert.Equal(t, progress.StatusComplete, st.Status(a.ID))
}
