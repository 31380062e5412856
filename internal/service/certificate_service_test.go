package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeCourse(t *testing.T, f *fixture) {
	t.Helper()
	f.finishIntro(t)
	f.set(t, learnerID, 1, 0, true)
	_, err := f.quizzes.SubmitQuiz(context.Background(), learnerID, f.course.ID, f.quizID(), SubmitQuizRequest{Answers: []int{1, 0}})
	require.NoError(t, err)
}

func TestGenerateCertificateIncomplete(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, learnerID)
	f.finishIntro(t)

	_, err := f.certificates.Generate(context.Background(), learnerID, f.course.ID)
	assert.ErrorIs(t, err, util.ErrCourseIncomplete)
	assert.Equal(t, "all compulsory modules incomplete", err.Error())
}

func TestGenerateCertificateNotEnrolled(t *testing.T) {
	f := newFixture(t)

	_, err := f.certificates.Generate(context.Background(), learnerID, f.course.ID)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)
}

func TestGenerateCertificate(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, learnerID)
	completeCourse(t, f)

	cert, err := f.certificates.Generate(context.Background(), learnerID, f.course.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, cert.Number)
	assert.True(t, strings.HasPrefix(cert.ImageURL, "/uploads/certificates/"))

	rel := strings.TrimPrefix(cert.ImageURL, "/uploads/")
	data, err := os.ReadFile(filepath.Join(f.uploads, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(data[:4]))

	assert.Contains(t, f.notificationTypes(t, learnerID), model.NotificationCertificate)
	assert.Contains(t, f.mailer.subjects(), "Certificate issued")

	// 第二次领取返回已有证书
	again, err := f.certificates.Generate(context.Background(), learnerID, f.course.ID)
	assert.ErrorIs(t, err, util.ErrCertificateExists)
	require.NotNil(t, again)
	assert.Equal(t, cert.Number, again.Number)

	list, err := f.certificates.List(context.Background(), learnerID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestGenerateCertificateOptionalModulesNotRequired(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, learnerID)
	completeCourse(t, f)

	state, err := f.progress.GetState(context.Background(), learnerID, f.course.ID)
	require.NoError(t, err)
	assert.True(t, state.CertificateReady)
	assert.False(t, state.ContentCompleted[f.content(2, 0)])
}
