package model

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// swagger:model Quiz
type Quiz struct {
	BaseModel
	CourseID     uint           `gorm:"index;not null" json:"courseId"`
	ModuleID     uint           `gorm:"uniqueIndex;not null" json:"moduleId"`
	Title        string         `gorm:"size:200" json:"title"`
	PassingScore float64        `gorm:"not null" json:"passingScore"` // 百分比
	Questions    []QuizQuestion `gorm:"foreignKey:QuizID" json:"questions"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// swagger:model QuizQuestion
type QuizQuestion struct {
	BaseModel
	QuizID        uint           `gorm:"index;not null" json:"quizId"`
	Prompt        string         `gorm:"type:text;not null" json:"prompt"`
	Options       datatypes.JSON `json:"options"`
	CorrectOption int            `json:"-"`
	Points        int            `gorm:"not null" json:"points"`
	Position      int            `json:"position"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

// OptionList 解析选项列表
func (q QuizQuestion) OptionList() []string {
	var opts []string
	if len(q.Options) == 0 {
		return opts
	}
	json.Unmarshal(q.Options, &opts)
	return opts
}

// QuizAttempt 每次提交追加一条，最新一条对解锁引擎生效
// swagger:model QuizAttempt
type QuizAttempt struct {
	BaseModel
	UserID      uint           `gorm:"index:idx_attempt_user_quiz;not null" json:"userId"`
	QuizID      uint           `gorm:"index:idx_attempt_user_quiz;not null" json:"quizId"`
	CourseID    uint           `gorm:"index;not null" json:"courseId"`
	Answers     datatypes.JSON `json:"answers"`
	Score       int            `json:"score"`
	TotalPoints int            `json:"totalPoints"`
	Percentage  float64        `json:"percentage"`
	Passed      bool           `json:"passed"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}
