package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"time"

	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/progress"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"lms_backend/pkg/tracing"

	"github.com/fogleman/gg"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CertificateService struct {
	CertificateRepo *repository.CertificateRepository
	UserRepo        *repository.UserRepository
	ProgressService *ProgressService
	Storage         *StorageService
	Notifications   *NotificationService
	Cfg             *config.CertificateConfig
}

func NewCertificateService(
	certificateRepo *repository.CertificateRepository,
	userRepo *repository.UserRepository,
	progressService *ProgressService,
	storage *StorageService,
	notifications *NotificationService,
	cfg *config.CertificateConfig,
) *CertificateService {
	return &CertificateService{
		CertificateRepo: certificateRepo,
		UserRepo:        userRepo,
		ProgressService: progressService,
		Storage:         storage,
		Notifications:   notifications,
		Cfg:             cfg,
	}
}

// Generate 所有必修模块完成后发放证书。
// 已有证书时返回已有记录和 ErrCertificateExists，调用方可视为成功。
func (s *CertificateService) Generate(ctx context.Context, userID, courseID uint) (*model.Certificate, error) {
	ctx, span := tracing.StartSpan(ctx, "CertificateService.Generate", userID, courseID)
	defer span.End()

	snap, err := s.ProgressService.Load(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	existing, err := s.CertificateRepo.Find(ctx, userID, courseID)
	if err == nil {
		return existing, util.ErrCertificateExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if !progress.AllCompulsoryComplete(snap.State.Course, snap.State.Derived) {
		return nil, util.ErrCourseIncomplete
	}

	recipient := "Learner"
	user, err := s.UserRepo.FindByID(ctx, userID)
	if err == nil {
		switch {
		case user.Name != "":
			recipient = user.Name
		case user.Email != "":
			recipient = user.Email
		}
	}

	cert := &model.Certificate{
		UserID:   userID,
		CourseID: courseID,
		Number:   model.GenerateUUID(),
		IssuedAt: time.Now(),
	}

	png, err := renderCertificate(certificateText{
		Recipient: recipient,
		Course:    snap.Course.Title,
		Issuer:    s.Cfg.Issuer,
		Number:    cert.Number,
		IssuedAt:  cert.IssuedAt,
	}, s.Cfg.FontPath)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	filename := fmt.Sprintf("certificates/%d/%s.png", courseID, cert.Number)
	url, err := s.Storage.Upload(ctx, filename, bytes.NewReader(png), int64(len(png)), util.MimePNG)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	cert.ImageURL = url

	if err := s.CertificateRepo.Create(ctx, cert); err != nil {
		// 并发请求已写入证书
		if again, findErr := s.CertificateRepo.Find(ctx, userID, courseID); findErr == nil {
			s.Storage.Delete(ctx, filename)
			return again, util.ErrCertificateExists
		}
		return nil, err
	}
	monitoring.CertificatesIssued.Inc()

	logger.Log.Info("certificate issued",
		zap.Uint("userId", userID),
		zap.Uint("courseId", courseID),
		zap.String("number", cert.Number),
	)

	s.Notifications.NotifyQuietly(ctx, &model.Notification{
		UserID: userID,
		Type:   model.NotificationCertificate,
		Title:  "Certificate issued",
		Body:   fmt.Sprintf("Your certificate for %q is ready (No. %s).", snap.Course.Title, cert.Number),
		Link:   cert.ImageURL,
	}, true)

	return cert, nil
}

func (s *CertificateService) List(ctx context.Context, userID uint) ([]model.Certificate, error) {
	return s.CertificateRepo.ListByUser(ctx, userID)
}

type certificateText struct {
	Recipient string
	Course    string
	Issuer    string
	Number    string
	IssuedAt  time.Time
}

const (
	certWidth  = 1600
	certHeight = 1131
	// 内置点阵字体高度
	basicFontHeight = 13
)

var (
	certInk    = color.RGBA{R: 33, G: 37, B: 41, A: 255}
	certAccent = color.RGBA{R: 30, G: 64, B: 120, A: 255}
)

func renderCertificate(t certificateText, fontPath string) ([]byte, error) {
	dc := gg.NewContext(certWidth, certHeight)
	dc.SetColor(color.White)
	dc.Clear()

	dc.SetColor(certAccent)
	dc.SetLineWidth(12)
	dc.DrawRectangle(40, 40, certWidth-80, certHeight-80)
	dc.Stroke()
	dc.SetLineWidth(3)
	dc.DrawRectangle(70, 70, certWidth-140, certHeight-140)
	dc.Stroke()

	lines := []struct {
		text   string
		y      float64
		points float64
		ink    color.Color
	}{
		{"CERTIFICATE OF COMPLETION", 250, 64, certAccent},
		{"This certifies that", 400, 32, certInk},
		{t.Recipient, 500, 72, certInk},
		{"has completed every compulsory module of", 610, 32, certInk},
		{t.Course, 710, 56, certAccent},
		{fmt.Sprintf("Issued by %s on %s", t.Issuer, t.IssuedAt.Format(util.DateFormat)), 870, 28, certInk},
		{"No. " + t.Number, 960, 22, certInk},
	}

	for _, l := range lines {
		dc.SetColor(l.ink)
		if err := drawCentered(dc, l.text, certWidth/2, l.y, l.points, fontPath); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// drawCentered 有字体文件时按字号加载，否则放大内置点阵字体
func drawCentered(dc *gg.Context, s string, x, y, points float64, fontPath string) error {
	if fontPath != "" {
		if err := dc.LoadFontFace(fontPath, points); err != nil {
			return err
		}
		dc.DrawStringAnchored(s, x, y, 0.5, 0.5)
		return nil
	}

	scale := points / basicFontHeight
	dc.Push()
	dc.ScaleAbout(scale, scale, x, y)
	dc.DrawStringAnchored(s, x, y, 0.5, 0.5)
	dc.Pop()
	return nil
}
