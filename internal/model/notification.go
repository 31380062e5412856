package model

import "time"

type NotificationType string

const (
	NotificationModuleUnlocked NotificationType = "module_unlocked"
	NotificationCourseComplete NotificationType = "course_completed"
	NotificationCertificate    NotificationType = "certificate_issued"
	NotificationQuizResult     NotificationType = "quiz_result"
)

// swagger:model Notification
type Notification struct {
	BaseModel
	UserID  uint             `gorm:"index;not null" json:"userId"`
	Type    NotificationType `gorm:"size:40;not null" json:"type"`
	Title   string           `gorm:"size:200" json:"title"`
	Body    string           `gorm:"type:text" json:"body"`
	Link    string           `gorm:"size:500" json:"link,omitempty"`
	ReadAt  *time.Time       `json:"readAt,omitempty"`
	Emailed bool             `json:"emailed"`
}

func (Notification) TableName() string {
	return "notifications"
}
