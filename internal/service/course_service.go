package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/progress"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const courseCacheKey = "course:structure:%d"

const defaultPassingScore = 70

type CourseService struct {
	CourseRepo *repository.CourseRepository
	Redis      *redis.Client
	CacheTTL   time.Duration
}

func NewCourseService(courseRepo *repository.CourseRepository, rdb *redis.Client, ttl time.Duration) *CourseService {
	return &CourseService{
		CourseRepo: courseRepo,
		Redis:      rdb,
		CacheTTL:   ttl,
	}
}

// GetCourse 返回课程结构（模块、内容、测验 ID），Redis 可用时走缓存
func (s *CourseService) GetCourse(ctx context.Context, courseID uint) (*model.Course, error) {
	key := fmt.Sprintf(courseCacheKey, courseID)

	if s.Redis != nil {
		val, err := s.Redis.Get(ctx, key).Result()
		if err == nil {
			var course model.Course
			if jsonErr := json.Unmarshal([]byte(val), &course); jsonErr == nil {
				return &course, nil
			}
		} else if err != redis.Nil {
			logger.Log.Warn("course cache read failed", zap.Uint("courseId", courseID), zap.Error(err))
		}
	}

	course, err := s.CourseRepo.FindWithStructure(ctx, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if data, err := json.Marshal(course); err == nil {
			if err := s.Redis.Set(ctx, key, data, s.CacheTTL).Err(); err != nil {
				logger.Log.Warn("course cache write failed", zap.Uint("courseId", courseID), zap.Error(err))
			}
		}
	}
	return course, nil
}

// ListCourses 已发布课程目录，不含模块结构
func (s *CourseService) ListCourses(ctx context.Context) ([]model.Course, error) {
	return s.CourseRepo.ListPublished(ctx)
}

type ImportQuestion struct {
	Prompt        string   `json:"prompt" binding:"required"`
	Options       []string `json:"options" binding:"required,min=2"`
	CorrectOption int      `json:"correctOption"`
	Points        int      `json:"points"`
}

type ImportQuiz struct {
	Title        string           `json:"title"`
	PassingScore float64          `json:"passingScore"`
	Questions    []ImportQuestion `json:"questions" binding:"required,min=1,dive"`
}

type ImportContent struct {
	Title string             `json:"title"`
	Kind  progress.MediaKind `json:"kind" binding:"required"`
	URL   string             `json:"url"`
}

type ImportModule struct {
	Title        string          `json:"title" binding:"required"`
	IsCompulsory *bool           `json:"isCompulsory"`
	Content      []ImportContent `json:"content" binding:"dive"`
	Quiz         *ImportQuiz     `json:"quiz"`
}

// ImportCourseRequest 一次性导入整门课程，模块顺序即解锁顺序
type ImportCourseRequest struct {
	Title       string         `json:"title" binding:"required"`
	Description string         `json:"description"`
	IsPublished bool           `json:"isPublished"`
	Modules     []ImportModule `json:"modules" binding:"dive"`
}

// ImportCourse 校验并写入课程；isCompulsory 缺省为 true，及格线缺省为 70
func (s *CourseService) ImportCourse(ctx context.Context, instructorID uint, req ImportCourseRequest) (*model.Course, error) {
	course, err := buildCourse(instructorID, req)
	if err != nil {
		return nil, err
	}
	if err := s.CourseRepo.Create(ctx, course); err != nil {
		return nil, err
	}

	logger.Log.Info("course imported",
		zap.Uint("courseId", course.ID),
		zap.Uint("instructorId", instructorID),
		zap.Int("modules", len(course.Modules)),
	)
	return s.GetCourse(ctx, course.ID)
}

func buildCourse(instructorID uint, req ImportCourseRequest) (*model.Course, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", util.ErrInvalidCourse)
	}

	course := &model.Course{
		Title:        req.Title,
		Description:  req.Description,
		InstructorID: instructorID,
		IsPublished:  req.IsPublished,
	}

	for i, m := range req.Modules {
		if strings.TrimSpace(m.Title) == "" {
			return nil, fmt.Errorf("%w: module %d has no title", util.ErrInvalidCourse, i)
		}
		compulsory := true
		if m.IsCompulsory != nil {
			compulsory = *m.IsCompulsory
		}
		module := model.CourseModule{
			Title:        m.Title,
			Position:     i,
			IsCompulsory: compulsory,
		}

		for j, c := range m.Content {
			if !validKind(c.Kind) {
				return nil, fmt.Errorf("%w: module %d content %d has unknown kind %q", util.ErrInvalidCourse, i, j, c.Kind)
			}
			module.Content = append(module.Content, model.ContentItem{
				Title:    c.Title,
				Kind:     c.Kind,
				URL:      c.URL,
				Position: j,
			})
		}

		if m.Quiz != nil {
			quiz, err := buildQuiz(i, m.Title, *m.Quiz)
			if err != nil {
				return nil, err
			}
			module.Quiz = quiz
		}

		course.Modules = append(course.Modules, module)
	}
	return course, nil
}

func buildQuiz(moduleIndex int, moduleTitle string, q ImportQuiz) (*model.Quiz, error) {
	passing := q.PassingScore
	if passing == 0 {
		passing = defaultPassingScore
	}
	if passing < 0 || passing > 100 {
		return nil, fmt.Errorf("%w: module %d quiz passing score %.1f out of range", util.ErrInvalidCourse, moduleIndex, passing)
	}
	if len(q.Questions) == 0 {
		return nil, fmt.Errorf("%w: module %d quiz has no questions", util.ErrInvalidCourse, moduleIndex)
	}

	title := q.Title
	if title == "" {
		title = moduleTitle + " quiz"
	}
	quiz := &model.Quiz{Title: title, PassingScore: passing}

	for k, question := range q.Questions {
		if len(question.Options) < 2 {
			return nil, fmt.Errorf("%w: module %d question %d needs at least two options", util.ErrInvalidCourse, moduleIndex, k)
		}
		if question.CorrectOption < 0 || question.CorrectOption >= len(question.Options) {
			return nil, fmt.Errorf("%w: module %d question %d correct option out of range", util.ErrInvalidCourse, moduleIndex, k)
		}
		points := question.Points
		if points <= 0 {
			points = 1
		}
		opts, err := json.Marshal(question.Options)
		if err != nil {
			return nil, err
		}
		quiz.Questions = append(quiz.Questions, model.QuizQuestion{
			Prompt:        question.Prompt,
			Options:       datatypes.JSON(opts),
			CorrectOption: question.CorrectOption,
			Points:        points,
			Position:      k,
		})
	}
	return quiz, nil
}

func validKind(k progress.MediaKind) bool {
	switch k {
	case progress.MediaVideo, progress.MediaDocument, progress.MediaText, progress.MediaImage:
		return true
	}
	return false
}
