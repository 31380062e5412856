package progress

import "slices"

// State 引擎持有的完整状态：输入数据 + 派生结果。
// 所有操作都返回新的 State，不修改传入的值。
type State struct {
	CourseID uint
	Course   *Course
	Progress ProgressRecord
	Attempts map[uint]QuizAttempt
	Derived  DerivedState

	// Unsynced 存在尚未被进度存储确认的写请求
	Unsynced bool
	// Pending 尚未确认的写请求，按 Seq 升序，每个内容条目只保留最新一条；可原样重试
	Pending []WriteRequest

	// 本会话中出现过的解锁模块，解锁状态只进不退
	seenUnlocked map[uint]bool
	// 由提交结果写入的测验，之后到达的查询结果不再覆盖
	submitted map[uint]bool

	writeSeq     uint64
	ackedSeq     uint64
	ackedOverall int
}

// NewState 课程数据加载完成后创建初始状态
func NewState(course *Course) State {
	s := State{
		Course:       course,
		Progress:     ProgressRecord{Modules: make(map[uint]ModuleProgress)},
		Attempts:     make(map[uint]QuizAttempt),
		seenUnlocked: make(map[uint]bool),
		submitted:    make(map[uint]bool),
	}
	if course != nil {
		s.CourseID = course.ID
	}
	s.recompute()
	return s
}

func (s State) clone() State {
	next := s
	next.Progress = s.Progress.Clone()
	next.Attempts = make(map[uint]QuizAttempt, len(s.Attempts))
	for id, a := range s.Attempts {
		next.Attempts[id] = a
	}
	next.seenUnlocked = make(map[uint]bool, len(s.seenUnlocked))
	for id := range s.seenUnlocked {
		next.seenUnlocked[id] = true
	}
	next.submitted = make(map[uint]bool, len(s.submitted))
	for id := range s.submitted {
		next.submitted[id] = true
	}
	next.Pending = slices.Clone(s.Pending)
	return next
}

// recompute 刷新模块完成标记并重新计算派生状态，合并已出现过的解锁
func (s *State) recompute() {
	if s.Progress.Modules == nil {
		s.Progress.Modules = make(map[uint]ModuleProgress)
	}
	if s.seenUnlocked == nil {
		s.seenUnlocked = make(map[uint]bool)
	}
	if s.Course != nil {
		for _, m := range s.Course.Modules {
			full := moduleFullyComplete(m, s.Progress, s.Attempts)
			mp, ok := s.Progress.Modules[m.ID]
			if !ok && !full {
				continue
			}
			mp.IsCompleted = full
			if mp.CompletedContent == nil {
				mp.CompletedContent = make(map[uint]bool)
			}
			s.Progress.Modules[m.ID] = mp
		}
	}

	d := ComputeState(s.Course, s.Progress, s.Attempts)
	if s.Course != nil {
		for _, m := range s.Course.Modules {
			if d.Unlocked[m.ID] {
				s.seenUnlocked[m.ID] = true
				continue
			}
			if s.seenUnlocked[m.ID] {
				d.Unlocked[m.ID] = true
				d.ModuleStatus[m.ID] = statusFor(true, moduleFullyComplete(m, s.Progress, s.Attempts))
			}
		}
	}
	s.Derived = d
}

// Status 单个模块的状态，未知模块视为 LOCKED
func (s State) Status(moduleID uint) Status {
	if st, ok := s.Derived.ModuleStatus[moduleID]; ok {
		return st
	}
	return StatusLocked
}

// ToggleContent 翻转内容完成标记，返回写请求和乐观状态
func ToggleContent(s State, moduleID, contentID uint) (WriteRequest, State, error) {
	current := s.Progress.contentDone(moduleID, contentID)
	return SetContent(s, moduleID, contentID, !current)
}

// SetContent 将内容完成标记设置为 done；重复调用结果相同
func SetContent(s State, moduleID, contentID uint, done bool) (WriteRequest, State, error) {
	m, ok := s.Course.Module(moduleID)
	if !ok {
		return WriteRequest{}, s, missing("module", moduleID)
	}
	if !hasContent(m, contentID) {
		return WriteRequest{}, s, missing("content", contentID)
	}
	if !s.Derived.Unlocked[moduleID] {
		return WriteRequest{}, s, &LockedModuleError{ModuleID: moduleID}
	}

	next := s.clone()
	next.setContentFlag(moduleID, contentID, done)
	next.Progress.LastAccessedModule = moduleID
	next.recompute()

	req := next.writeRequest(moduleID, contentID, done)
	next.writeSeq++
	req.Seq = next.writeSeq
	// 同一内容条目的新请求取代尚未确认的旧请求
	next.Pending = slices.DeleteFunc(next.Pending, func(p WriteRequest) bool {
		return p.ModuleID == moduleID && p.ContentID == contentID
	})
	next.Pending = append(next.Pending, req)
	next.Unsynced = true
	return req, next, nil
}

func (s *State) setContentFlag(moduleID, contentID uint, done bool) {
	mp := s.Progress.Modules[moduleID]
	if mp.CompletedContent == nil {
		mp.CompletedContent = make(map[uint]bool)
	}
	if done {
		mp.CompletedContent[contentID] = true
	} else {
		delete(mp.CompletedContent, contentID)
	}
	s.Progress.Modules[moduleID] = mp
}

func (s State) writeRequest(moduleID, contentID uint, done bool) WriteRequest {
	req := WriteRequest{
		CourseID:         s.CourseID,
		ModuleID:         moduleID,
		ContentID:        contentID,
		IsCompleted:      done,
		CompletedModules: []uint{},
		CompletedContent: make(map[uint][]uint),
	}
	for id, mp := range s.Progress.Modules {
		if mp.IsCompleted {
			req.CompletedModules = append(req.CompletedModules, id)
		}
		ids := make([]uint, 0, len(mp.CompletedContent))
		for cid, ok := range mp.CompletedContent {
			if ok {
				ids = append(ids, cid)
			}
		}
		slices.Sort(ids)
		req.CompletedContent[id] = ids
	}
	slices.Sort(req.CompletedModules)
	return req
}

// ApplyQuizResult 写入测验最新结果并重新计算。
// 测验通过但模块内容未全部完成时，模块不会被标记为完成。
func ApplyQuizResult(s State, quizID uint, attempt QuizAttempt) (State, error) {
	if _, ok := s.Course.ModuleForQuiz(quizID); !ok {
		return s, missing("quiz", quizID)
	}
	next := s.clone()
	next.Attempts[quizID] = attempt
	next.submitted[quizID] = true
	next.recompute()
	return next, nil
}

// Reconcile 处理一次写确认：移除对应的待确认请求；
// 全部请求确认后才用最新请求的服务端进度替换乐观值。解锁状态仍由本地计算。
// 迟到或被取代的确认不会回退进度。
func Reconcile(s State, res WriteResult) State {
	next := s.clone()
	next.Pending = slices.DeleteFunc(next.Pending, func(p WriteRequest) bool {
		return p.Seq == res.Seq
	})
	if res.Seq > next.ackedSeq {
		next.ackedSeq = res.Seq
		next.ackedOverall = res.OverallProgress
	}
	next.Unsynced = len(next.Pending) > 0
	next.recompute()
	if !next.Unsynced && next.ackedSeq == next.writeSeq {
		next.Derived.OverallProgress = next.ackedOverall
	}
	return next
}

// Reject 进度存储拒绝了请求（非临时性错误）：撤销该请求的乐观修改。
// relock 为 true 表示服务端判定模块未解锁，本地也不再保持该模块的解锁。
func Reject(s State, seq uint64, relock bool) State {
	i := slices.IndexFunc(s.Pending, func(p WriteRequest) bool { return p.Seq == seq })
	if i < 0 {
		return s
	}
	req := s.Pending[i]

	next := s.clone()
	next.Pending = slices.Delete(next.Pending, i, i+1)
	next.setContentFlag(req.ModuleID, req.ContentID, !req.IsCompleted)
	if relock {
		delete(next.seenUnlocked, req.ModuleID)
	}
	next.Unsynced = len(next.Pending) > 0
	next.recompute()
	return next
}
