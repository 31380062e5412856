package util

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrCourseNotFound       = errors.New("course not found")
	ErrModuleNotFound       = errors.New("module not found")
	ErrQuizNotFound         = errors.New("quiz not found")
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrNotEnrolled          = errors.New("not enrolled in course")
	ErrAlreadyEnrolled      = errors.New("already enrolled in course")
	ErrCourseIncomplete     = errors.New("all compulsory modules incomplete")
	ErrCertificateExists    = errors.New("certificate already exists")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrInvalidAnswers       = errors.New("answers do not match quiz questions")
	ErrInvalidCourse        = errors.New("invalid course definition")
)
