package lmsclient

import (
	"sort"
	"time"

	"lms_backend/internal/progress"
)

// 与服务端 JSON 对应的传输结构

type Course struct {
	ID          uint     `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Modules     []Module `json:"modules"`
}

type Module struct {
	ID           uint          `json:"id"`
	Title        string        `json:"title"`
	Position     int           `json:"position"`
	IsCompulsory bool          `json:"isCompulsory"`
	Content      []ContentItem `json:"content"`
	Quiz         *QuizRef      `json:"quiz,omitempty"`
}

type ContentItem struct {
	ID    uint               `json:"id"`
	Title string             `json:"title"`
	Kind  progress.MediaKind `json:"kind"`
	URL   string             `json:"url"`
}

type QuizRef struct {
	ID           uint    `json:"id"`
	Title        string  `json:"title"`
	PassingScore float64 `json:"passingScore"`
}

type ModuleProgress struct {
	Module           uint   `json:"module"`
	IsCompleted      bool   `json:"isCompleted"`
	CompletedContent []uint `json:"completedContent"`
}

type Progress struct {
	ModuleProgress     []ModuleProgress `json:"moduleProgress"`
	LastAccessedModule uint             `json:"lastAccessedModule,omitempty"`
	OverallProgress    int              `json:"overallProgress"`
}

type WriteResult struct {
	OverallProgress int      `json:"overallProgress"`
	UserProgress    Progress `json:"userProgress"`
}

type Attempt struct {
	ID          uint      `json:"id"`
	QuizID      uint      `json:"quizId"`
	Score       int       `json:"score"`
	TotalPoints int       `json:"totalPoints"`
	Percentage  float64   `json:"percentage"`
	Passed      bool      `json:"passed"`
	CreatedAt   time.Time `json:"createdAt"`
}

type QuizResult struct {
	Attempt         *Attempt        `json:"attempt"`
	ModuleStatus    progress.Status `json:"moduleStatus"`
	OverallProgress int             `json:"overallProgress"`
}

type Certificate struct {
	ID       uint      `json:"id"`
	CourseID uint      `json:"courseId"`
	Number   string    `json:"certificateNumber"`
	ImageURL string    `json:"imageUrl"`
	IssuedAt time.Time `json:"issuedAt"`
}

// EngineCourse 转换为解锁引擎的课程结构，模块按 Position 排序
func (c *Course) EngineCourse() *progress.Course {
	modules := make([]Module, len(c.Modules))
	copy(modules, c.Modules)
	sort.SliceStable(modules, func(i, j int) bool {
		return modules[i].Position < modules[j].Position
	})

	out := &progress.Course{ID: c.ID, Modules: make([]progress.Module, 0, len(modules))}
	for _, m := range modules {
		em := progress.Module{ID: m.ID, Position: m.Position, IsCompulsory: m.IsCompulsory}
		for _, item := range m.Content {
			em.Content = append(em.Content, progress.ContentItem{ID: item.ID, Kind: item.Kind, Ref: item.URL})
		}
		if m.Quiz != nil {
			em.QuizID = m.Quiz.ID
		}
		out.Modules = append(out.Modules, em)
	}
	return out
}

func (c *Course) quizIDs() []uint {
	var ids []uint
	for _, m := range c.Modules {
		if m.Quiz != nil {
			ids = append(ids, m.Quiz.ID)
		}
	}
	return ids
}

// Record 转换为引擎的进度记录
func (p *Progress) Record() progress.ProgressRecord {
	rec := progress.ProgressRecord{
		Modules:            make(map[uint]progress.ModuleProgress, len(p.ModuleProgress)),
		LastAccessedModule: p.LastAccessedModule,
	}
	for _, mp := range p.ModuleProgress {
		set := make(map[uint]bool, len(mp.CompletedContent))
		for _, id := range mp.CompletedContent {
			set[id] = true
		}
		rec.Modules[mp.Module] = progress.ModuleProgress{IsCompleted: mp.IsCompleted, CompletedContent: set}
	}
	return rec
}

func (a *Attempt) engine() progress.QuizAttempt {
	return progress.QuizAttempt{
		Passed:      a.Passed,
		Percentage:  a.Percentage,
		Score:       a.Score,
		TotalPoints: a.TotalPoints,
	}
}
