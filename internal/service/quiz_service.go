package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"lms_backend/internal/model"
	"lms_backend/internal/progress"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"lms_backend/pkg/tracing"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SubmitQuizRequest struct {
	// Answers 按题目顺序给出所选选项下标
	Answers []int `json:"answers" binding:"required"`
}

type SubmitQuizResult struct {
	Attempt         *model.QuizAttempt `json:"attempt"`
	ModuleStatus    progress.Status    `json:"moduleStatus"`
	OverallProgress int                `json:"overallProgress"`
}

type QuizService struct {
	QuizRepo        *repository.QuizRepository
	ProgressService *ProgressService
	Notifications   *NotificationService
}

func NewQuizService(quizRepo *repository.QuizRepository, progressService *ProgressService, notifications *NotificationService) *QuizService {
	return &QuizService{
		QuizRepo:        quizRepo,
		ProgressService: progressService,
		Notifications:   notifications,
	}
}

// GetQuiz 题目不包含正确答案
func (s *QuizService) GetQuiz(ctx context.Context, courseID, quizID uint) (*model.Quiz, error) {
	quiz, err := s.QuizRepo.FindWithQuestions(ctx, quizID)
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && quiz.CourseID != courseID) {
		return nil, util.ErrQuizNotFound
	}
	return quiz, err
}

// LatestAttempt 没有作答时返回 ErrAttemptNotFound
func (s *QuizService) LatestAttempt(ctx context.Context, courseID, quizID, userID uint) (*model.QuizAttempt, error) {
	if _, err := s.GetQuiz(ctx, courseID, quizID); err != nil {
		return nil, err
	}
	attempt, err := s.QuizRepo.LatestAttempt(ctx, userID, quizID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrAttemptNotFound
	}
	return attempt, err
}

// SubmitQuiz 评分并追加作答记录。模块必须已解锁；
// 通过且模块内容全部完成时模块标记为完成并重新计算总进度。
func (s *QuizService) SubmitQuiz(ctx context.Context, userID, courseID, quizID uint, req SubmitQuizRequest) (*SubmitQuizResult, error) {
	ctx, span := tracing.StartSpan(ctx, "QuizService.SubmitQuiz", userID, courseID)
	defer span.End()

	quiz, err := s.GetQuiz(ctx, courseID, quizID)
	if err != nil {
		return nil, err
	}
	if len(req.Answers) != len(quiz.Questions) {
		return nil, fmt.Errorf("%w: expected %d answers, got %d", util.ErrInvalidAnswers, len(quiz.Questions), len(req.Answers))
	}

	attempt := grade(quiz, req.Answers)
	attempt.UserID = userID
	attempt.CourseID = courseID

	var moduleID uint
	_, next, err := s.ProgressService.Apply(ctx, userID, courseID, func(tx *gorm.DB, snap *Snapshot) (progress.State, error) {
		module, ok := snap.State.Course.ModuleForQuiz(quizID)
		if !ok {
			return progress.State{}, util.ErrQuizNotFound
		}
		if !snap.State.Derived.Unlocked[module.ID] {
			return progress.State{}, &progress.LockedModuleError{ModuleID: module.ID}
		}
		moduleID = module.ID

		if err := s.QuizRepo.WithTx(tx).CreateAttempt(ctx, attempt); err != nil {
			return progress.State{}, err
		}
		return progress.ApplyQuizResult(snap.State, quizID, attempt.EngineAttempt())
	})
	if err != nil {
		if !progress.IsLocked(err) {
			span.RecordError(err)
		}
		return nil, err
	}
	monitoring.QuizSubmissions.WithLabelValues(strconv.FormatBool(attempt.Passed)).Inc()

	logger.Log.Info("quiz submitted",
		zap.Uint("userId", userID),
		zap.Uint("courseId", courseID),
		zap.Uint("quizId", quizID),
		zap.Float64("percentage", attempt.Percentage),
		zap.Bool("passed", attempt.Passed),
	)

	s.Notifications.NotifyQuietly(ctx, &model.Notification{
		UserID: userID,
		Type:   model.NotificationQuizResult,
		Title:  quizResultTitle(attempt.Passed),
		Body:   fmt.Sprintf("%s: %d/%d (%.0f%%, passing score %.0f%%).", quiz.Title, attempt.Score, attempt.TotalPoints, attempt.Percentage, quiz.PassingScore),
		Link:   fmt.Sprintf("/courses/%d/quizzes/%d", courseID, quizID),
	}, false)

	return &SubmitQuizResult{
		Attempt:         attempt,
		ModuleStatus:    next.Status(moduleID),
		OverallProgress: next.Derived.OverallProgress,
	}, nil
}

// grade 对照题目分值评分，percentage 保留两位小数
func grade(quiz *model.Quiz, answers []int) *model.QuizAttempt {
	var score, total int
	for i, q := range quiz.Questions {
		total += q.Points
		if answers[i] == q.CorrectOption {
			score += q.Points
		}
	}

	var percentage float64
	if total > 0 {
		percentage = math.Round(float64(score)*10000/float64(total)) / 100
	}

	raw, _ := json.Marshal(answers)
	return &model.QuizAttempt{
		QuizID:      quiz.ID,
		Answers:     datatypes.JSON(raw),
		Score:       score,
		TotalPoints: total,
		Percentage:  percentage,
		Passed:      percentage >= quiz.PassingScore,
	}
}

func quizResultTitle(passed bool) string {
	if passed {
		return "Quiz passed"
	}
	return "Quiz not passed"
}
