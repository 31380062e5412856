package service

import (
	"context"
	"errors"

	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"

	"gorm.io/gorm"
)

type EnrollmentService struct {
	EnrollmentRepo *repository.EnrollmentRepository
	CourseService  *CourseService
}

func NewEnrollmentService(enrollmentRepo *repository.EnrollmentRepository, courseService *CourseService) *EnrollmentService {
	return &EnrollmentService{
		EnrollmentRepo: enrollmentRepo,
		CourseService:  courseService,
	}
}

// Enroll 重复选课返回已有记录，created 为 false
func (s *EnrollmentService) Enroll(ctx context.Context, userID, courseID uint) (*model.Enrollment, bool, error) {
	if _, err := s.CourseService.GetCourse(ctx, courseID); err != nil {
		return nil, false, err
	}

	existing, err := s.EnrollmentRepo.Find(ctx, userID, courseID)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	e := &model.Enrollment{
		UserID:   userID,
		CourseID: courseID,
		Status:   model.EnrollmentEnrolled,
	}
	if err := s.EnrollmentRepo.Create(ctx, e); err != nil {
		return nil, false, err
	}
	return e, true, nil
}

// Require 未选课返回 ErrNotEnrolled
func (s *EnrollmentService) Require(ctx context.Context, userID, courseID uint) (*model.Enrollment, error) {
	e, err := s.EnrollmentRepo.Find(ctx, userID, courseID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNotEnrolled
	}
	return e, err
}

func (s *EnrollmentService) List(ctx context.Context, userID uint) ([]model.Enrollment, error) {
	return s.EnrollmentRepo.ListByUser(ctx, userID)
}
