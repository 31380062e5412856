package model

import (
	"encoding/json"
	"time"

	"lms_backend/internal/progress"
	"lms_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// CourseProgress 用户在一门课程上的进度汇总
// swagger:model CourseProgress
type CourseProgress struct {
	BaseModel
	UserID             uint      `gorm:"uniqueIndex:idx_progress_user_course;not null" json:"userId"`
	CourseID           uint      `gorm:"uniqueIndex:idx_progress_user_course;not null" json:"courseId"`
	OverallProgress    int       `json:"overallProgress"`
	LastAccessedModule uint      `json:"lastAccessedModule,omitempty"`
	LastAccessedAt     time.Time `json:"lastAccessedAt"`
}

func (CourseProgress) TableName() string {
	return "course_progress"
}

// ModuleProgress 单个模块的完成情况，CompletedContent 为内容 ID 数组
// swagger:model ModuleProgress
type ModuleProgress struct {
	BaseModel
	UserID           uint           `gorm:"uniqueIndex:idx_module_progress;not null" json:"userId"`
	CourseID         uint           `gorm:"uniqueIndex:idx_module_progress;not null" json:"courseId"`
	ModuleID         uint           `gorm:"uniqueIndex:idx_module_progress;not null" json:"module"`
	IsCompleted      bool           `json:"isCompleted"`
	CompletedContent datatypes.JSON `json:"completedContent"`
	CompletedAt      *time.Time     `json:"completedAt,omitempty"`
}

func (ModuleProgress) TableName() string {
	return "module_progress"
}

// ContentIDs 解析失败时记录日志并视为没有完成的内容
func (m ModuleProgress) ContentIDs() []uint {
	var ids []uint
	if len(m.CompletedContent) == 0 {
		return ids
	}
	if err := json.Unmarshal(m.CompletedContent, &ids); err != nil {
		logger.Log.Warn("corrupt completed content",
			zap.Uint("userId", m.UserID),
			zap.Uint("courseId", m.CourseID),
			zap.Uint("moduleId", m.ModuleID),
			zap.Error(err),
		)
		return nil
	}
	return ids
}

func (m *ModuleProgress) SetContentIDs(ids []uint) {
	if ids == nil {
		ids = []uint{}
	}
	b, _ := json.Marshal(ids)
	m.CompletedContent = datatypes.JSON(b)
}

// ProgressRecord 将存储的进度转换为引擎输入；cp 为 nil 表示尚无记录
func ProgressRecord(cp *CourseProgress, modules []ModuleProgress) progress.ProgressRecord {
	rec := progress.ProgressRecord{Modules: make(map[uint]progress.ModuleProgress, len(modules))}
	if cp == nil {
		return rec
	}
	rec.LastAccessedModule = cp.LastAccessedModule
	for _, m := range modules {
		set := make(map[uint]bool)
		for _, id := range m.ContentIDs() {
			set[id] = true
		}
		rec.Modules[m.ModuleID] = progress.ModuleProgress{IsCompleted: m.IsCompleted, CompletedContent: set}
	}
	return rec
}

// EngineAttempt 转换为引擎使用的作答结果
func (a QuizAttempt) EngineAttempt() progress.QuizAttempt {
	return progress.QuizAttempt{
		Passed:      a.Passed,
		Percentage:  a.Percentage,
		Score:       a.Score,
		TotalPoints: a.TotalPoints,
	}
}
