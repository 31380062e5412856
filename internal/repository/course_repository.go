package repository

import (
	"context"

	"lms_backend/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) FindByID(ctx context.Context, id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).First(&course, id).Error
	return &course, err
}

// FindWithStructure 加载课程及其模块、内容和测验，模块与内容按 position 排序
func (r *CourseRepository) FindWithStructure(ctx context.Context, id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.WithContext(ctx).
		Preload("Modules", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Preload("Modules.Content", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Preload("Modules.Quiz").
		First(&course, id).Error
	return &course, err
}

// Create 在一个事务中写入课程、模块、内容、测验和题目
func (r *CourseRepository) Create(ctx context.Context, course *model.Course) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		modules := course.Modules
		if err := tx.Omit("Modules").Create(course).Error; err != nil {
			return err
		}

		for i := range modules {
			m := &modules[i]
			m.CourseID = course.ID
			quiz := m.Quiz
			if err := tx.Omit("Quiz").Create(m).Error; err != nil {
				return err
			}
			if quiz == nil {
				continue
			}
			quiz.CourseID = course.ID
			quiz.ModuleID = m.ID
			if err := tx.Create(quiz).Error; err != nil {
				return err
			}
			m.Quiz = quiz
		}

		course.Modules = modules
		return nil
	})
}

func (r *CourseRepository) ListPublished(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.WithContext(ctx).
		Where("is_published = ?", true).
		Order("id ASC").
		Find(&courses).Error
	return courses, err
}
