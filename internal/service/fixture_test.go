package service

import (
	"context"
	"sync"
	"testing"

	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/progress"
	"lms_backend/internal/repository"
	"lms_backend/pkg/database"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sentMail struct {
	To      string
	Subject string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *recordingMailer) Send(ctx context.Context, toName, toEmail, subject, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{To: toEmail, Subject: subject})
	return nil
}

func (m *recordingMailer) subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, s := range m.sent {
		out = append(out, s.Subject)
	}
	return out
}

type fixture struct {
	db            *gorm.DB
	uploads       string
	mailer        *recordingMailer
	users         *repository.UserRepository
	courses       *CourseService
	enrollments   *EnrollmentService
	progress      *ProgressService
	quizzes       *QuizService
	certificates  *CertificateService
	notifications *NotificationService

	course *model.Course
}

const (
	learnerID  uint = 1
	outsiderID uint = 2
)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	f := &fixture{db: db, uploads: t.TempDir(), mailer: &recordingMailer{}}
	cfg := &config.Config{
		Storage:     config.StorageConfig{Type: "local", LocalPath: f.uploads},
		Certificate: config.CertificateConfig{Issuer: "Test Academy"},
	}

	f.users = repository.NewUserRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	quizRepo := repository.NewQuizRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)

	f.notifications = NewNotificationService(repository.NewNotificationRepository(db), f.users, f.mailer)
	f.courses = NewCourseService(repository.NewCourseRepository(db), nil, 0)
	f.enrollments = NewEnrollmentService(enrollmentRepo, f.courses)
	f.progress = NewProgressService(db, f.courses, progressRepo, quizRepo, enrollmentRepo, f.notifications)
	f.quizzes = NewQuizService(quizRepo, f.progress, f.notifications)
	f.certificates = NewCertificateService(repository.NewCertificateRepository(db), f.users, f.progress, NewStorageService(cfg), f.notifications, &cfg.Certificate)

	ctx := context.Background()
	require.NoError(t, f.users.Touch(ctx, &model.User{BaseModel: model.BaseModel{ID: learnerID}, Name: "Ada", Email: "ada@example.com", Role: model.Student}))
	require.NoError(t, f.users.Touch(ctx, &model.User{BaseModel: model.BaseModel{ID: outsiderID}, Name: "Bob", Role: model.Student}))

	f.course, err = f.courses.ImportCourse(ctx, 99, sampleCourse())
	require.NoError(t, err)
	require.Len(t, f.course.Modules, 3)
	return f
}

// Intro(text, video) -> Types(document + quiz) ; Extras 选修
func sampleCourse() ImportCourseRequest {
	optional := false
	return ImportCourseRequest{
		Title:       "Go Basics",
		IsPublished: true,
		Modules: []ImportModule{
			{
				Title: "Intro",
				Content: []ImportContent{
					{Title: "Welcome", Kind: progress.MediaText},
					{Title: "Setup", Kind: progress.MediaVideo, URL: "https://cdn.example.com/setup.mp4"},
				},
			},
			{
				Title:   "Types",
				Content: []ImportContent{{Title: "Slides", Kind: progress.MediaDocument}},
				Quiz: &ImportQuiz{
					PassingScore: 50,
					Questions: []ImportQuestion{
						{Prompt: "1 + 1", Options: []string{"1", "2"}, CorrectOption: 1, Points: 2},
						{Prompt: "zero value of a pointer is nil", Options: []string{"true", "false"}, CorrectOption: 0},
					},
				},
			},
			{
				Title:        "Extras",
				IsCompulsory: &optional,
				Content:      []ImportContent{{Title: "Gallery", Kind: progress.MediaImage}},
			},
		},
	}
}

func (f *fixture) module(i int) model.CourseModule {
	return f.course.Modules[i]
}

func (f *fixture) content(i, j int) uint {
	return f.course.Modules[i].Content[j].ID
}

func (f *fixture) quizID() uint {
	return f.course.Modules[1].Quiz.ID
}

func (f *fixture) enroll(t *testing.T, userID uint) {
	t.Helper()
	_, _, err := f.enrollments.Enroll(context.Background(), userID, f.course.ID)
	require.NoError(t, err)
}

func (f *fixture) set(t *testing.T, userID uint, module, content int, done bool) *WriteProgressResult {
	t.Helper()
	res, err := f.progress.WriteProgress(context.Background(), userID, f.course.ID, progress.WriteRequest{
		ModuleID:    f.module(module).ID,
		ContentID:   f.content(module, content),
		IsCompleted: done,
	})
	require.NoError(t, err)
	return res
}

// finishIntro 完成第一个模块的全部内容
func (f *fixture) finishIntro(t *testing.T) {
	t.Helper()
	f.set(t, learnerID, 0, 0, true)
	f.set(t, learnerID, 0, 1, true)
}

func (f *fixture) notificationTypes(t *testing.T, userID uint) []model.NotificationType {
	t.Helper()
	list, err := f.notifications.List(context.Background(), userID, false)
	require.NoError(t, err)
	out := make([]model.NotificationType, 0, len(list))
	for _, n := range list {
		out = append(out, n.Type)
	}
	return out
}
