package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/progress"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"lms_backend/pkg/tracing"

	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ModuleProgressView struct {
	Module           uint   `json:"module"`
	IsCompleted      bool   `json:"isCompleted"`
	CompletedContent []uint `json:"completedContent"`
}

// ProgressView fetchProgress 的响应
type ProgressView struct {
	ModuleProgress     []ModuleProgressView `json:"moduleProgress"`
	LastAccessedModule uint                 `json:"lastAccessedModule,omitempty"`
	OverallProgress    int                  `json:"overallProgress"`
}

type WriteProgressResult struct {
	OverallProgress int          `json:"overallProgress"`
	UserProgress    ProgressView `json:"userProgress"`
}

type ModuleStateView struct {
	ModuleID     uint            `json:"moduleId"`
	Position     int             `json:"position"`
	IsCompulsory bool            `json:"isCompulsory"`
	Status       progress.Status `json:"status"`
	QuizID       uint            `json:"quizId,omitempty"`
}

// StateView 服务端计算的解锁状态
type StateView struct {
	CourseID         uint              `json:"courseId"`
	Modules          []ModuleStateView `json:"modules"`
	ContentCompleted map[uint]bool     `json:"contentCompleted"`
	OverallProgress  int               `json:"overallProgress"`
	CertificateReady bool              `json:"certificateReady"`
}

// Snapshot 一次请求内加载出的课程、选课与引擎状态
type Snapshot struct {
	Course     *model.Course
	Enrollment *model.Enrollment
	State      progress.State
}

type ProgressService struct {
	DB             *gorm.DB
	CourseService  *CourseService
	ProgressRepo   *repository.ProgressRepository
	QuizRepo       *repository.QuizRepository
	EnrollmentRepo *repository.EnrollmentRepository
	Notifications  *NotificationService
}

func NewProgressService(
	db *gorm.DB,
	courseService *CourseService,
	progressRepo *repository.ProgressRepository,
	quizRepo *repository.QuizRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	notifications *NotificationService,
) *ProgressService {
	return &ProgressService{
		DB:             db,
		CourseService:  courseService,
		ProgressRepo:   progressRepo,
		QuizRepo:       quizRepo,
		EnrollmentRepo: enrollmentRepo,
		Notifications:  notifications,
	}
}

// Load 读取课程、进度记录和每个测验的最新作答，经由引擎得到当前状态
func (s *ProgressService) Load(ctx context.Context, userID, courseID uint) (*Snapshot, error) {
	course, err := s.CourseService.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, s.DB, userID, course)
}

// load 所有查询走 db，事务内调用时传入 tx
func (s *ProgressService) load(ctx context.Context, db *gorm.DB, userID uint, course *model.Course) (*Snapshot, error) {
	enrollment, err := s.EnrollmentRepo.WithTx(db).Find(ctx, userID, course.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNotEnrolled
	}
	if err != nil {
		return nil, err
	}

	cp, modules, err := s.ProgressRepo.WithTx(db).Find(ctx, userID, course.ID)
	if err != nil {
		return nil, err
	}
	attempts, err := s.QuizRepo.WithTx(db).LatestAttempts(ctx, userID, course.QuizIDs())
	if err != nil {
		return nil, err
	}

	state := progress.NewState(course.EngineCourse())
	state, err = progress.Reduce(state, progress.ProgressFetched{
		CourseID: course.ID,
		Record:   model.ProgressRecord(cp, modules),
	})
	if err != nil {
		return nil, err
	}
	for quizID, a := range attempts {
		attempt := a.EngineAttempt()
		state, err = progress.Reduce(state, progress.AttemptsFetched{CourseID: course.ID, QuizID: quizID, Attempt: &attempt})
		if err != nil {
			return nil, err
		}
	}

	return &Snapshot{Course: course, Enrollment: enrollment, State: state}, nil
}

func (s *ProgressService) GetProgress(ctx context.Context, userID, courseID uint) (*ProgressView, error) {
	snap, err := s.Load(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	view := progressView(snap.State)
	return &view, nil
}

func (s *ProgressService) GetState(ctx context.Context, userID, courseID uint) (*StateView, error) {
	snap, err := s.Load(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	return stateView(snap.State), nil
}

// WriteProgress 设置内容完成标记。标记是"设置"而非"翻转"，同一请求重试结果不变。
// 客户端携带的 completedModules/completedContent 仅作参考，完成情况以服务端记录为准。
func (s *ProgressService) WriteProgress(ctx context.Context, userID, courseID uint, req progress.WriteRequest) (*WriteProgressResult, error) {
	ctx, span := tracing.StartSpan(ctx, "ProgressService.WriteProgress", userID, courseID)
	defer span.End()

	_, next, err := s.Apply(ctx, userID, courseID, func(_ *gorm.DB, snap *Snapshot) (progress.State, error) {
		_, next, err := progress.SetContent(snap.State, req.ModuleID, req.ContentID, req.IsCompleted)
		return next, err
	})
	if err != nil {
		switch {
		case progress.IsLocked(err):
			monitoring.ProgressWrites.WithLabelValues("locked").Inc()
			span.SetStatus(codes.Error, err.Error())
		case errors.Is(err, util.ErrNotEnrolled), errors.Is(err, util.ErrCourseNotFound):
			span.SetStatus(codes.Error, err.Error())
		default:
			monitoring.ProgressWrites.WithLabelValues("error").Inc()
			span.RecordError(err)
		}
		return nil, err
	}
	monitoring.ProgressWrites.WithLabelValues("ok").Inc()

	logger.Log.Debug("progress written",
		zap.Uint("userId", userID),
		zap.Uint("courseId", courseID),
		zap.Uint("moduleId", req.ModuleID),
		zap.Uint("contentId", req.ContentID),
		zap.Bool("isCompleted", req.IsCompleted),
		zap.Int("overallProgress", next.Derived.OverallProgress),
	)

	return &WriteProgressResult{
		OverallProgress: next.Derived.OverallProgress,
		UserProgress:    progressView(next),
	}, nil
}

// Apply 在一个事务中锁定用户的进度记录、重新加载状态、执行 mutate 并保存结果，
// 同时同步选课状态；提交后发送解锁/结课通知。
// 同一用户同一课程的并发写入在行锁上排队，后到者看到前者的结果。
func (s *ProgressService) Apply(ctx context.Context, userID, courseID uint, mutate func(tx *gorm.DB, snap *Snapshot) (progress.State, error)) (*Snapshot, progress.State, error) {
	course, err := s.CourseService.GetCourse(ctx, courseID)
	if err != nil {
		return nil, progress.State{}, err
	}

	var (
		snap       *Snapshot
		next       progress.State
		enrollment model.Enrollment
	)
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 未选课时 load 返回错误，Lock 插入的空记录随事务回滚
		cp, err := s.ProgressRepo.WithTx(tx).Lock(ctx, userID, courseID)
		if err != nil {
			return err
		}
		snap, err = s.load(ctx, tx, userID, course)
		if err != nil {
			return err
		}

		next, err = mutate(tx, snap)
		if err != nil {
			return err
		}
		if _, err := s.ProgressRepo.WithTx(tx).Save(ctx, cp, next.Progress, next.Derived.OverallProgress); err != nil {
			return err
		}

		enrollment = *snap.Enrollment
		enrollment.Progress = next.Derived.OverallProgress
		if progress.AllCompulsoryComplete(next.Course, next.Derived) {
			enrollment.Status = model.EnrollmentCompleted
			if enrollment.CompletedAt == nil {
				now := time.Now()
				enrollment.CompletedAt = &now
			}
		} else {
			enrollment.Status = model.EnrollmentInProgress
			enrollment.CompletedAt = nil
		}
		return s.EnrollmentRepo.WithTx(tx).Update(ctx, &enrollment)
	})
	if err != nil {
		return nil, progress.State{}, err
	}

	s.notifyTransitions(ctx, userID, snap, next, enrollment)
	*snap.Enrollment = enrollment
	return snap, next, nil
}

func (s *ProgressService) notifyTransitions(ctx context.Context, userID uint, snap *Snapshot, next progress.State, enrollment model.Enrollment) {
	if s.Notifications == nil {
		return
	}
	before := snap.State

	titles := make(map[uint]string, len(snap.Course.Modules))
	for _, m := range snap.Course.Modules {
		titles[m.ID] = m.Title
	}

	for _, m := range next.Course.Modules {
		if !m.IsCompulsory || before.Derived.Unlocked[m.ID] || !next.Derived.Unlocked[m.ID] {
			continue
		}
		s.Notifications.NotifyQuietly(ctx, &model.Notification{
			UserID: userID,
			Type:   model.NotificationModuleUnlocked,
			Title:  "New module unlocked",
			Body:   fmt.Sprintf("%q in %q is now available.", titles[m.ID], snap.Course.Title),
			Link:   fmt.Sprintf("/courses/%d/modules/%d", snap.Course.ID, m.ID),
		}, false)
	}

	if snap.Enrollment.Status != model.EnrollmentCompleted && enrollment.Status == model.EnrollmentCompleted {
		s.Notifications.NotifyQuietly(ctx, &model.Notification{
			UserID: userID,
			Type:   model.NotificationCourseComplete,
			Title:  "Course completed",
			Body:   fmt.Sprintf("You completed every compulsory module of %q. Your certificate is ready to claim.", snap.Course.Title),
			Link:   fmt.Sprintf("/courses/%d/certificate", snap.Course.ID),
		}, true)
	}
}

func progressView(s progress.State) ProgressView {
	view := ProgressView{
		ModuleProgress:     []ModuleProgressView{},
		LastAccessedModule: s.Progress.LastAccessedModule,
		OverallProgress:    s.Derived.OverallProgress,
	}

	ids := make([]uint, 0, len(s.Progress.Modules))
	for id := range s.Progress.Modules {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		mp := s.Progress.Modules[id]
		content := make([]uint, 0, len(mp.CompletedContent))
		for cid, done := range mp.CompletedContent {
			if done {
				content = append(content, cid)
			}
		}
		sort.Slice(content, func(i, j int) bool { return content[i] < content[j] })
		view.ModuleProgress = append(view.ModuleProgress, ModuleProgressView{
			Module:           id,
			IsCompleted:      mp.IsCompleted,
			CompletedContent: content,
		})
	}
	return view
}

func stateView(s progress.State) *StateView {
	view := &StateView{
		CourseID:         s.CourseID,
		Modules:          make([]ModuleStateView, 0, len(s.Course.Modules)),
		ContentCompleted: s.Derived.ContentCompleted,
		OverallProgress:  s.Derived.OverallProgress,
		CertificateReady: progress.AllCompulsoryComplete(s.Course, s.Derived),
	}
	for _, m := range s.Course.Modules {
		view.Modules = append(view.Modules, ModuleStateView{
			ModuleID:     m.ID,
			Position:     m.Position,
			IsCompulsory: m.IsCompulsory,
			Status:       s.Status(m.ID),
			QuizID:       m.QuizID,
		})
	}
	return view
}
