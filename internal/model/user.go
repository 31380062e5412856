package model

import (
	"time"
)

type UserRole string

const (
	Student UserRole = "student"
	Teacher UserRole = "teacher"
	Admin   UserRole = "admin"
)

// User 由身份提供方签发的令牌首次访问时创建，ID 与令牌中的 user_id 一致
// swagger:model User
type User struct {
	BaseModel
	Name     string    `gorm:"size:100" json:"name"`
	Email    string    `gorm:"size:100;index" json:"email"`
	Role     UserRole  `gorm:"size:20;default:'student'" json:"role"`
	LastSeen time.Time `json:"lastSeen"`
}

func (User) TableName() string {
	return "users"
}
