package lmsclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"lms_backend/internal/progress"
	"lms_backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func writeEnvelope(w http.ResponseWriter, status int, errorCode, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"code":      status,
		"message":   message,
		"errorCode": errorCode,
		"data":      data,
	})
}

func TestStatusErrorMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/courses/1/certificate":
			writeEnvelope(w, http.StatusConflict, "certificate_exists", "certificate already exists", map[string]interface{}{
				"certificateNumber": "abc-123",
			})
		case "/api/courses/2/certificate":
			writeEnvelope(w, http.StatusUnprocessableEntity, "course_incomplete", "all compulsory modules incomplete", nil)
		case "/api/courses/1/progress":
			writeEnvelope(w, http.StatusInternalServerError, "", "Internal server error", nil)
		case "/api/courses/3":
			writeEnvelope(w, http.StatusNotFound, "", "course not found", nil)
		default:
			writeEnvelope(w, http.StatusForbidden, "", "not enrolled in course", nil)
		}
	}))
	defer srv.Close()

	c := New(srv.URL+"/api", "token")
	ctx := context.Background()

	_, err := c.GenerateCertificate(ctx, 1)
	var exists *CertificateConflictError
	require.ErrorAs(t, err, &exists)
	require.NotNil(t, exists.Certificate)
	assert.Equal(t, "abc-123", exists.Certificate.Number)

	_, err = c.GenerateCertificate(ctx, 2)
	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "course_incomplete", invalid.Code)

	_, err = c.WriteProgress(ctx, progress.WriteRequest{CourseID: 1, ModuleID: 1, ContentID: 1})
	var storeErr *StoreWriteError
	assert.ErrorAs(t, err, &storeErr)

	_, err = c.FetchCourse(ctx, 3)
	assert.True(t, IsNotFound(err))

	_, err = c.FetchProgress(ctx, 4)
	var status *StatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, http.StatusForbidden, status.StatusCode)
}

func TestOpenDiscardsResponsesForPreviousCourse(t *testing.T) {
	var slowProgress atomic.Bool
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/courses/1":
			writeEnvelope(w, http.StatusOK, "", "success", map[string]interface{}{
				"id": 1,
				"modules": []map[string]interface{}{
					{"id": 11, "position": 0, "isCompulsory": true, "content": []map[string]interface{}{{"id": 111, "kind": "text"}}},
					{"id": 12, "position": 1, "isCompulsory": true, "content": []map[string]interface{}{{"id": 121, "kind": "text"}}},
				},
			})
		case "/api/courses/2":
			writeEnvelope(w, http.StatusOK, "", "success", map[string]interface{}{
				"id": 2,
				"modules": []map[string]interface{}{
					{"id": 21, "position": 0, "isCompulsory": true, "content": []map[string]interface{}{{"id": 211, "kind": "text"}}},
				},
			})
		case "/api/courses/1/progress":
			if slowProgress.Load() {
				<-release
			}
			writeEnvelope(w, http.StatusOK, "", "success", map[string]interface{}{
				"moduleProgress":  []map[string]interface{}{{"module": 11, "isCompleted": true, "completedContent": []uint{111}}},
				"overallProgress": 50,
			})
		case "/api/courses/2/progress":
			writeEnvelope(w, http.StatusOK, "", "success", map[string]interface{}{"moduleProgress": []interface{}{}, "overallProgress": 0})
		default:
			writeEnvelope(w, http.StatusNotFound, "", "not found", nil)
		}
	}))
	defer srv.Close()

	s := NewSession(New(srv.URL+"/api", "token"), 0)
	slowProgress.Store(true)

	done := make(chan error, 1)
	go func() {
		_, err := s.Open(context.Background(), 1)
		done <- err
	}()

	// 等待第一门课程结构加载完成后切换课程
	require.Eventually(t, func() bool { return s.State().CourseID == 1 }, 2*time.Second, 10*time.Millisecond)
	st, err := s.Open(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, uint(2), st.CourseID)

	close(release)
	require.NoError(t, <-done)

	st = s.State()
	assert.Equal(t, uint(2), st.CourseID)
	assert.Equal(t, progress.StatusUnlocked, st.Status(21))
	assert.Equal(t, 0, st.Derived.OverallProgress)
	assert.Empty(t, st.Progress.Modules[11].CompletedContent)
}

func TestStatusErrorLogsUndecodableData(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	prev := logger.Log
	logger.Log = zap.New(core)
	t.Cleanup(func() { logger.Log = prev })

	err := statusError(http.StatusForbidden, envelope{ErrorCode: "module_locked", Data: json.RawMessage(`"not-an-object"`)})
	var locked *progress.LockedModuleError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, uint(0), locked.ModuleID)

	err = statusError(http.StatusConflict, envelope{Message: "certificate already exists", Data: json.RawMessage(`[1,2]`)})
	var exists *AlreadyExistsError
	require.ErrorAs(t, err, &exists)
	assert.Nil(t, exists.Certificate)

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, "decode module_locked data", logs.All()[0].Message)
	assert.Equal(t, "decode conflicting certificate", logs.All()[1].Message)
}
