package model

import "time"

type EnrollmentStatus string

const (
	EnrollmentEnrolled   EnrollmentStatus = "ENROLLED"
	EnrollmentInProgress EnrollmentStatus = "IN_PROGRESS"
	EnrollmentCompleted  EnrollmentStatus = "COMPLETED"
)

// swagger:model Enrollment
type Enrollment struct {
	BaseModel
	UserID      uint             `gorm:"uniqueIndex:idx_enrollment_user_course;not null" json:"userId"`
	CourseID    uint             `gorm:"uniqueIndex:idx_enrollment_user_course;not null" json:"courseId"`
	Status      EnrollmentStatus `gorm:"size:20;not null" json:"status"`
	Progress    int              `json:"progress"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
	Course      *Course          `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
