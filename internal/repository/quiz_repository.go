package repository

import (
	"context"

	"lms_backend/internal/model"

	"gorm.io/gorm"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) WithTx(tx *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: tx}
}

func (r *QuizRepository) FindWithQuestions(ctx context.Context, quizID uint) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		First(&quiz, quizID).Error
	return &quiz, err
}

// LatestAttempt 没有作答记录时返回 gorm.ErrRecordNotFound
func (r *QuizRepository) LatestAttempt(ctx context.Context, userID, quizID uint) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Order("id DESC").
		First(&attempt).Error
	return &attempt, err
}

// LatestAttempts 每个测验最新一次作答，按测验 ID 索引
func (r *QuizRepository) LatestAttempts(ctx context.Context, userID uint, quizIDs []uint) (map[uint]model.QuizAttempt, error) {
	out := make(map[uint]model.QuizAttempt, len(quizIDs))
	if len(quizIDs) == 0 {
		return out, nil
	}

	var attempts []model.QuizAttempt
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND quiz_id IN ?", userID, quizIDs).
		Order("id ASC").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	for _, a := range attempts {
		out[a.QuizID] = a
	}
	return out, nil
}

func (r *QuizRepository) CountAttempts(ctx context.Context, userID, quizID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).
		Model(&model.QuizAttempt{}).
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Count(&count).Error
	return count, err
}

func (r *QuizRepository) CreateAttempt(ctx context.Context, attempt *model.QuizAttempt) error {
	return r.DB.WithContext(ctx).Create(attempt).Error
}
