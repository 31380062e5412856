package progress

// MediaKind 内容条目的媒体类型
type MediaKind string

const (
	MediaVideo    MediaKind = "video"
	MediaDocument MediaKind = "document"
	MediaText     MediaKind = "text"
	MediaImage    MediaKind = "image"
)

// ContentItem 课程模块中的单个学习资料
type ContentItem struct {
	ID   uint      `json:"id"`
	Kind MediaKind `json:"kind"`
	Ref  string    `json:"ref,omitempty"`
}

// Module 课程模块，QuizID 为 0 表示没有测验
type Module struct {
	ID           uint          `json:"id"`
	Position     int           `json:"position"`
	IsCompulsory bool          `json:"isCompulsory"`
	Content      []ContentItem `json:"content"`
	QuizID       uint          `json:"quizId,omitempty"`
}

func (m Module) HasQuiz() bool {
	return m.QuizID != 0
}

// Course 按顺序排列的模块集合
type Course struct {
	ID      uint     `json:"id"`
	Modules []Module `json:"modules"`
}

// Module 按 ID 查找模块
func (c *Course) Module(id uint) (Module, bool) {
	if c == nil {
		return Module{}, false
	}
	for _, m := range c.Modules {
		if m.ID == id {
			return m, true
		}
	}
	return Module{}, false
}

// ModuleForQuiz 查找引用该测验的模块
func (c *Course) ModuleForQuiz(quizID uint) (Module, bool) {
	if c == nil || quizID == 0 {
		return Module{}, false
	}
	for _, m := range c.Modules {
		if m.QuizID == quizID {
			return m, true
		}
	}
	return Module{}, false
}

// ModuleProgress 单个模块的完成情况
type ModuleProgress struct {
	IsCompleted      bool          `json:"isCompleted"`
	CompletedContent map[uint]bool `json:"completedContent"`
}

// ProgressRecord 用户在某门课程上的进度记录
type ProgressRecord struct {
	Modules            map[uint]ModuleProgress `json:"modules"`
	LastAccessedModule uint                    `json:"lastAccessedModule,omitempty"`
}

func (r ProgressRecord) contentDone(moduleID, contentID uint) bool {
	mp, ok := r.Modules[moduleID]
	if !ok {
		return false
	}
	return mp.CompletedContent[contentID]
}

// Clone 深拷贝，引擎从不修改调用方持有的记录
func (r ProgressRecord) Clone() ProgressRecord {
	out := ProgressRecord{
		Modules:            make(map[uint]ModuleProgress, len(r.Modules)),
		LastAccessedModule: r.LastAccessedModule,
	}
	for id, mp := range r.Modules {
		set := make(map[uint]bool, len(mp.CompletedContent))
		for cid, done := range mp.CompletedContent {
			if done {
				set[cid] = true
			}
		}
		out.Modules[id] = ModuleProgress{IsCompleted: mp.IsCompleted, CompletedContent: set}
	}
	return out
}

// QuizAttempt 某个测验的最新一次作答结果
type QuizAttempt struct {
	Passed      bool    `json:"passed"`
	Percentage  float64 `json:"percentage"`
	Score       int     `json:"score"`
	TotalPoints int     `json:"totalPoints"`
}

// Status 模块状态
type Status string

const (
	StatusLocked   Status = "LOCKED"
	StatusUnlocked Status = "UNLOCKED"
	StatusComplete Status = "COMPLETE"
)

// DerivedState 引擎计算出的解锁/完成/进度快照，不持久化
type DerivedState struct {
	Unlocked         map[uint]bool   `json:"unlocked"`
	ContentCompleted map[uint]bool   `json:"contentCompleted"`
	ModuleStatus     map[uint]Status `json:"moduleStatus"`
	OverallProgress  int             `json:"overallProgress"`
}

// WriteRequest 发往进度存储的写请求。Seq 在同一 State 内单调递增，只用于本地确认匹配
type WriteRequest struct {
	Seq              uint64          `json:"-"`
	CourseID         uint            `json:"-"`
	ModuleID         uint            `json:"moduleId"`
	ContentID        uint            `json:"contentId"`
	IsCompleted      bool            `json:"isCompleted"`
	CompletedModules []uint          `json:"completedModules"`
	CompletedContent map[uint][]uint `json:"completedContent"`
}

// WriteResult 进度存储确认写入后返回的权威数据，Seq 为所确认请求的序号
type WriteResult struct {
	Seq             uint64 `json:"-"`
	OverallProgress int    `json:"overallProgress"`
}
