package progress

// Event 驱动状态转换的事件，均携带发起请求时的课程 ID
type Event interface {
	Course() uint
}

// ProgressFetched 进度记录加载完成
type ProgressFetched struct {
	CourseID uint
	Record   ProgressRecord
}

// AttemptsFetched 某个测验的最新作答加载完成，Attempt 为 nil 表示没有作答记录
type AttemptsFetched struct {
	CourseID uint
	QuizID   uint
	Attempt  *QuizAttempt
}

// ContentToggled 用户切换内容完成状态
type ContentToggled struct {
	CourseID  uint
	ModuleID  uint
	ContentID uint
}

// QuizSubmitted 测验提交后得到结果
type QuizSubmitted struct {
	CourseID uint
	QuizID   uint
	Attempt  QuizAttempt
}

// ProgressWritten 进度存储确认写入，Result.Seq 标识被确认的请求
type ProgressWritten struct {
	CourseID uint
	Result   WriteResult
}

// WriteFailed 进度写入暂时失败（网络或存储错误），保留乐观状态待重试
type WriteFailed struct {
	CourseID uint
	Seq      uint64
}

// WriteRejected 进度存储拒绝了写请求，撤销乐观修改；ModuleLocked 表示服务端判定模块未解锁
type WriteRejected struct {
	CourseID     uint
	Seq          uint64
	ModuleLocked bool
}

func (e ProgressFetched) Course() uint { return e.CourseID }
func (e AttemptsFetched) Course() uint { return e.CourseID }
func (e ContentToggled) Course() uint  { return e.CourseID }
func (e QuizSubmitted) Course() uint   { return e.CourseID }
func (e ProgressWritten) Course() uint { return e.CourseID }
func (e WriteFailed) Course() uint     { return e.CourseID }
func (e WriteRejected) Course() uint   { return e.CourseID }

// Reduce (State, Event) -> State。
// 非当前课程的事件返回 ErrStaleCourse，状态不变。
func Reduce(s State, ev Event) (State, error) {
	if ev.Course() != s.CourseID {
		return s, ErrStaleCourse
	}

	switch e := ev.(type) {
	case ProgressFetched:
		next := s.clone()
		next.Progress = e.Record.Clone()
		// 尚未确认的本地写入优先于服务端旧数据
		for _, p := range next.Pending {
			next.setContentFlag(p.ModuleID, p.ContentID, p.IsCompleted)
		}
		next.recompute()
		return next, nil

	case AttemptsFetched:
		if _, ok := s.Course.ModuleForQuiz(e.QuizID); !ok {
			return s, missing("quiz", e.QuizID)
		}
		// 查询在提交之前发出，提交结果更新
		if s.submitted[e.QuizID] {
			return s, nil
		}
		next := s.clone()
		if e.Attempt == nil {
			delete(next.Attempts, e.QuizID)
		} else {
			next.Attempts[e.QuizID] = *e.Attempt
		}
		next.recompute()
		return next, nil

	case ContentToggled:
		_, next, err := ToggleContent(s, e.ModuleID, e.ContentID)
		return next, err

	case QuizSubmitted:
		return ApplyQuizResult(s, e.QuizID, e.Attempt)

	case ProgressWritten:
		return Reconcile(s, e.Result), nil

	case WriteFailed:
		// 失败的请求仍在 Pending 中；已被新请求取代时无需处理
		next := s.clone()
		next.Unsynced = len(next.Pending) > 0
		return next, nil

	case WriteRejected:
		return Reject(s, e.Seq, e.ModuleLocked), nil
	}

	return s, nil
}
