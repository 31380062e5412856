package repository

import (
	"context"
	"time"

	"lms_backend/internal/model"

	"gorm.io/gorm"
)

type NotificationRepository struct {
	DB *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{DB: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.DB.WithContext(ctx).Create(n).Error
}

func (r *NotificationRepository) SetEmailed(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ?", id).
		Update("emailed", true).Error
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID uint, unreadOnly bool) ([]model.Notification, error) {
	var list []model.Notification
	query := r.DB.WithContext(ctx).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}
	err := query.Order("id DESC").Find(&list).Error
	return list, err
}

// MarkRead 只能标记自己的通知，返回受影响行数
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id uint) (int64, error) {
	res := r.DB.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", id, userID).
		Update("read_at", time.Now())
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) FindByID(ctx context.Context, userID, id uint) (*model.Notification, error) {
	var n model.Notification
	err := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&n).Error
	return &n, err
}
