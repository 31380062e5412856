package lmsclient

import (
	"context"
	"errors"
	"slices"
	"sync"

	"lms_backend/internal/progress"
	"lms_backend/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxAttemptFetches Open 时并发拉取测验作答的上限
const maxAttemptFetches = 4

// Session 持有一门课程的引擎状态。
// 读取请求并发执行，进度写入按发出顺序逐个发送，状态只通过 progress.Reduce 修改。
type Session struct {
	Client *Client
	// UserID 查询作答记录时使用，0 表示令牌对应的用户
	UserID uint

	// writeMu 保证进度写入按 Seq 顺序到达服务端
	writeMu sync.Mutex
	mu      sync.Mutex
	state   progress.State
	loaded  bool
	current uint
}

func NewSession(client *Client, userID uint) *Session {
	return &Session{Client: client, UserID: userID}
}

// State 当前状态的快照
func (s *Session) State() progress.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Open 加载课程，再并发加载进度和所有测验的最新作答。
// 切换到其他课程后，旧课程的响应会被丢弃。
func (s *Session) Open(ctx context.Context, courseID uint) (progress.State, error) {
	s.mu.Lock()
	s.current = courseID
	s.loaded = false
	s.mu.Unlock()

	course, err := s.Client.FetchCourse(ctx, courseID)
	if err != nil {
		return s.State(), err
	}

	s.mu.Lock()
	if s.current != courseID {
		s.mu.Unlock()
		return s.State(), progress.ErrStaleCourse
	}
	s.state = progress.NewState(course.EngineCourse())
	s.loaded = true
	s.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxAttemptFetches + 1)

	g.Go(func() error {
		p, err := s.Client.FetchProgress(gctx, courseID)
		if err != nil {
			return err
		}
		return s.dispatch(progress.ProgressFetched{CourseID: courseID, Record: p.Record()})
	})
	for _, quizID := range course.quizIDs() {
		quizID := quizID
		g.Go(func() error {
			a, err := s.Client.FetchLatestAttempt(gctx, courseID, quizID, s.UserID)
			if err != nil {
				return err
			}
			ev := progress.AttemptsFetched{CourseID: courseID, QuizID: quizID}
			if a != nil {
				attempt := a.engine()
				ev.Attempt = &attempt
			}
			return s.dispatch(ev)
		})
	}

	err = g.Wait()
	return s.State(), err
}

// dispatch 将事件交给引擎；过期课程的事件直接丢弃
func (s *Session) dispatch(ev progress.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		if ev.Course() != s.current {
			return nil
		}
		return ErrNotLoaded
	}
	next, err := progress.Reduce(s.state, ev)
	if errors.Is(err, progress.ErrStaleCourse) {
		logger.Log.Debug("discard stale response",
			zap.Uint("course_id", ev.Course()),
			zap.Uint("current", s.state.CourseID),
		)
		return nil
	}
	if err != nil {
		return err
	}
	s.state = next
	return nil
}

// Toggle 乐观地切换内容完成状态并写入进度存储。
// 写入暂时失败时本地状态保留并标记为未同步，可调用 RetryPendingWrite 重试；
// 服务端拒绝写入时（例如模块已被重新锁定）撤销本次修改。
func (s *Session) Toggle(ctx context.Context, moduleID, contentID uint) (progress.State, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return progress.State{}, ErrNotLoaded
	}
	req, next, err := progress.ToggleContent(s.state, moduleID, contentID)
	if err != nil {
		st := s.state
		s.mu.Unlock()
		return st, err
	}
	s.state = next
	s.mu.Unlock()

	return s.write(ctx, req)
}

// RetryPendingWrite 按顺序原样重发所有未确认的写请求，返回第一个错误
func (s *Session) RetryPendingWrite(ctx context.Context) (progress.State, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return progress.State{}, ErrNotLoaded
	}
	pending := slices.Clone(s.state.Pending)
	s.mu.Unlock()

	var firstErr error
	for _, req := range pending {
		if _, err := s.write(ctx, req); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return s.State(), firstErr
}

// write 调用方持有 writeMu
func (s *Session) write(ctx context.Context, req progress.WriteRequest) (progress.State, error) {
	res, err := s.Client.WriteProgress(ctx, req)
	if err != nil {
		var storeErr *StoreWriteError
		if errors.As(err, &storeErr) {
			if derr := s.dispatch(progress.WriteFailed{CourseID: req.CourseID, Seq: req.Seq}); derr != nil {
				return s.State(), derr
			}
			return s.State(), err
		}

		locked := progress.IsLocked(err)
		if locked {
			// 本地记录已落后于服务端，先同步进度再撤销，撤销后的解锁状态以服务端记录为准
			s.refreshProgress(ctx, req.CourseID)
		}
		if derr := s.dispatch(progress.WriteRejected{CourseID: req.CourseID, Seq: req.Seq, ModuleLocked: locked}); derr != nil {
			return s.State(), derr
		}
		return s.State(), err
	}
	if err := s.dispatch(progress.ProgressWritten{
		CourseID: req.CourseID,
		Result:   progress.WriteResult{Seq: req.Seq, OverallProgress: res.OverallProgress},
	}); err != nil {
		return s.State(), err
	}
	return s.State(), nil
}

func (s *Session) refreshProgress(ctx context.Context, courseID uint) {
	p, err := s.Client.FetchProgress(ctx, courseID)
	if err == nil {
		err = s.dispatch(progress.ProgressFetched{CourseID: courseID, Record: p.Record()})
	}
	if err != nil {
		logger.Log.Warn("refresh progress failed",
			zap.Uint("course_id", courseID),
			zap.Error(err),
		)
	}
}

// SubmitQuiz 提交测验并把结果交给引擎；模块未解锁时不发请求
func (s *Session) SubmitQuiz(ctx context.Context, quizID uint, answers []int) (*QuizResult, progress.State, error) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return nil, progress.State{}, ErrNotLoaded
	}
	st := s.state
	s.mu.Unlock()

	m, ok := st.Course.ModuleForQuiz(quizID)
	if !ok {
		return nil, st, &progress.MissingDataError{Kind: "quiz", ID: quizID}
	}
	if st.Status(m.ID) == progress.StatusLocked {
		return nil, st, &progress.LockedModuleError{ModuleID: m.ID}
	}

	res, err := s.Client.SubmitQuiz(ctx, st.CourseID, quizID, answers)
	if err != nil {
		return nil, s.State(), err
	}
	if res.Attempt != nil {
		ev := progress.QuizSubmitted{CourseID: st.CourseID, QuizID: quizID, Attempt: res.Attempt.engine()}
		if err := s.dispatch(ev); err != nil {
			return res, s.State(), err
		}
	}
	return res, s.State(), nil
}

// ClaimCertificate 领取证书；证书已存在视为成功并返回已有证书
func (s *Session) ClaimCertificate(ctx context.Context) (*Certificate, error) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return nil, ErrNotLoaded
	}
	courseID := s.state.CourseID
	s.mu.Unlock()

	cert, err := s.Client.GenerateCertificate(ctx, courseID)
	var exists *AlreadyExistsError
	if errors.As(err, &exists) {
		return exists.Certificate, nil
	}
	return cert, err
}
