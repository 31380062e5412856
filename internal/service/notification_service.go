package service

import (
	"context"
	"errors"

	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type NotificationService struct {
	NotificationRepo *repository.NotificationRepository
	UserRepo         *repository.UserRepository
	Mailer           Mailer
}

func NewNotificationService(notificationRepo *repository.NotificationRepository, userRepo *repository.UserRepository, mailer Mailer) *NotificationService {
	return &NotificationService{
		NotificationRepo: notificationRepo,
		UserRepo:         userRepo,
		Mailer:           mailer,
	}
}

// Notify 写入站内通知；email 为 true 且用户有邮箱时同时发送邮件。
// 邮件失败只记录日志，不影响通知本身。
func (s *NotificationService) Notify(ctx context.Context, n *model.Notification, email bool) error {
	if err := s.NotificationRepo.Create(ctx, n); err != nil {
		return err
	}
	if !email || s.Mailer == nil {
		return nil
	}

	user, err := s.UserRepo.FindByID(ctx, n.UserID)
	if err != nil || user.Email == "" {
		return nil
	}
	if err := s.Mailer.Send(ctx, user.Name, user.Email, n.Title, n.Body); err != nil {
		logger.Log.Warn("failed to send notification email",
			zap.Uint("notificationId", n.ID),
			zap.Uint("userId", n.UserID),
			zap.Error(err),
		)
		return nil
	}
	if err := s.NotificationRepo.SetEmailed(ctx, n.ID); err != nil {
		return err
	}
	n.Emailed = true
	return nil
}

// NotifyQuietly 业务流程中的通知，失败只记录日志
func (s *NotificationService) NotifyQuietly(ctx context.Context, n *model.Notification, email bool) {
	if s == nil {
		return
	}
	if err := s.Notify(ctx, n, email); err != nil {
		logger.Log.Error("failed to create notification",
			zap.Uint("userId", n.UserID),
			zap.String("type", string(n.Type)),
			zap.Error(err),
		)
	}
}

func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool) ([]model.Notification, error) {
	return s.NotificationRepo.ListByUser(ctx, userID, unreadOnly)
}

// MarkRead 重复标记返回当前记录，不是错误
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint) (*model.Notification, error) {
	if _, err := s.NotificationRepo.MarkRead(ctx, userID, id); err != nil {
		return nil, err
	}
	n, err := s.NotificationRepo.FindByID(ctx, userID, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNotificationNotFound
	}
	return n, err
}
