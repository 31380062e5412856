package model

import (
	"sort"

	"lms_backend/internal/progress"
)

// swagger:model Course
type Course struct {
	BaseModel
	Title        string         `gorm:"size:200;not null" json:"title"`
	Description  string         `gorm:"type:text" json:"description"`
	InstructorID uint           `gorm:"index" json:"instructorId"`
	IsPublished  bool           `json:"isPublished"`
	Modules      []CourseModule `gorm:"foreignKey:CourseID" json:"modules"`
}

func (Course) TableName() string {
	return "courses"
}

// CourseModule 课程模块，Position 决定解锁顺序
// swagger:model CourseModule
type CourseModule struct {
	BaseModel
	CourseID     uint          `gorm:"index;not null" json:"courseId"`
	Title        string        `gorm:"size:200;not null" json:"title"`
	Position     int           `gorm:"not null" json:"position"`
	IsCompulsory bool          `gorm:"not null" json:"isCompulsory"`
	Content      []ContentItem `gorm:"foreignKey:ModuleID" json:"content"`
	Quiz         *Quiz         `gorm:"foreignKey:ModuleID" json:"quiz,omitempty"`
}

func (CourseModule) TableName() string {
	return "course_modules"
}

// swagger:model ContentItem
type ContentItem struct {
	BaseModel
	ModuleID uint               `gorm:"index;not null" json:"moduleId"`
	Title    string             `gorm:"size:200" json:"title"`
	Kind     progress.MediaKind `gorm:"size:20;not null" json:"kind"`
	URL      string             `gorm:"size:500" json:"url"`
	Position int                `json:"position"`
}

func (ContentItem) TableName() string {
	return "content_items"
}

// EngineCourse 转换为解锁引擎使用的课程结构，模块按 Position 排序
func (c *Course) EngineCourse() *progress.Course {
	modules := make([]CourseModule, len(c.Modules))
	copy(modules, c.Modules)
	sort.SliceStable(modules, func(i, j int) bool {
		return modules[i].Position < modules[j].Position
	})

	out := &progress.Course{ID: c.ID, Modules: make([]progress.Module, 0, len(modules))}
	for _, m := range modules {
		em := progress.Module{
			ID:           m.ID,
			Position:     m.Position,
			IsCompulsory: m.IsCompulsory,
			Content:      make([]progress.ContentItem, 0, len(m.Content)),
		}
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

// QuizIDs 课程中所有测验的 ID
func (c *Course) QuizIDs() []uint {
	var ids []uint
	for _, m := range c.Modules {
		if m.Quiz != nil {
			ids = append(ids, m.Quiz.ID)
		}
	}
	return ids
}
