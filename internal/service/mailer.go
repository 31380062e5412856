package service

import (
	"context"
	"fmt"
	"net/http"

	"lms_backend/internal/config"
	"lms_backend/pkg/logger"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Mailer 发送通知邮件
type Mailer interface {
	Send(ctx context.Context, toName, toEmail, subject, text string) error
}

// NewMailer 未配置 SendGrid 时只记录日志
func NewMailer(cfg *config.EmailConfig) Mailer {
	if cfg.SendGridAPIKey == "" {
		return LogMailer{}
	}
	return &SendGridMailer{
		key:  cfg.SendGridAPIKey,
		from: sgmail.NewEmail(cfg.FromName, cfg.FromAddress),
	}
}

type SendGridMailer struct {
	key  string
	from *sgmail.Email
}

const sendGridHost = "https://api.sendgrid.com"

func (m *SendGridMailer) Send(ctx context.Context, toName, toEmail, subject, text string) error {
	msg := sgmail.NewSingleEmail(m.from, subject, sgmail.NewEmail(toName, toEmail), text, "")

	req := sendgrid.GetRequest(m.key, "/v3/mail/send", sendGridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(msg)

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return err
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, toName, toEmail, subject, text string) error {
	logger.Log.Info("email (not sent, no SendGrid key)",
		zap.String("to", toEmail),
		zap.String("subject", subject),
	)
	return nil
}
