package model

import "time"

// swagger:model Certificate
type Certificate struct {
	BaseModel
	UserID   uint      `gorm:"uniqueIndex:idx_certificate_user_course;not null" json:"userId"`
	CourseID uint      `gorm:"uniqueIndex:idx_certificate_user_course;not null" json:"courseId"`
	Number   string    `gorm:"size:36;uniqueIndex;not null" json:"certificateNumber"`
	ImageURL string    `gorm:"size:500" json:"imageUrl"`
	IssuedAt time.Time `json:"issuedAt"`
}

func (Certificate) TableName() string {
	return "certificates"
}
