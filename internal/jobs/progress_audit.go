package jobs

import (
	"context"
	"errors"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/progress"
	"lms_backend/internal/repository"
	"lms_backend/internal/service"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const auditBatchSize = 200

// AuditReport 一次校对的统计
type AuditReport struct {
	Checked   int `json:"checked"`
	Corrected int `json:"corrected"`
	Failed    int `json:"failed"`
}

// ProgressAuditJob 按当前课程结构重新计算已存储的进度，修正课程调整后产生的偏差
type ProgressAuditJob struct {
	EnrollmentRepo  *repository.EnrollmentRepository
	ProgressRepo    *repository.ProgressRepository
	ProgressService *service.ProgressService
}

func NewProgressAuditJob(enrollmentRepo *repository.EnrollmentRepository, progressRepo *repository.ProgressRepository, progressService *service.ProgressService) *ProgressAuditJob {
	return &ProgressAuditJob{
		EnrollmentRepo:  enrollmentRepo,
		ProgressRepo:    progressRepo,
		ProgressService: progressService,
	}
}

func (j *ProgressAuditJob) Run(ctx context.Context) (AuditReport, error) {
	var report AuditReport
	var afterID uint

	for {
		batch, err := j.EnrollmentRepo.ListAfter(ctx, afterID, auditBatchSize)
		if err != nil {
			return report, err
		}
		if len(batch) == 0 {
			return report, nil
		}

		for i := range batch {
			e := batch[i]
			afterID = e.ID
			report.Checked++

			corrected, err := j.auditOne(ctx, &e)
			if err != nil {
				report.Failed++
				logger.Log.Warn("progress audit failed",
					zap.Uint("enrollmentId", e.ID),
					zap.Uint("userId", e.UserID),
					zap.Uint("courseId", e.CourseID),
					zap.Error(err),
				)
				continue
			}
			if corrected {
				report.Corrected++
				monitoring.AuditCorrections.Inc()
			}
		}

		if err := ctx.Err(); err != nil {
			return report, err
		}
	}
}

func (j *ProgressAuditJob) auditOne(ctx context.Context, e *model.Enrollment) (bool, error) {
	snap, err := j.ProgressService.Load(ctx, e.UserID, e.CourseID)
	if errors.Is(err, util.ErrCourseNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	derived := snap.State.Derived
	corrected := false

	cp, _, err := j.ProgressRepo.Find(ctx, e.UserID, e.CourseID)
	if err != nil {
		return false, err
	}
	if cp != nil && cp.OverallProgress != derived.OverallProgress {
		if err := j.ProgressRepo.UpdateOverall(ctx, cp.ID, derived.OverallProgress); err != nil {
			return false, err
		}
		corrected = true
	}

	status := e.Status
	complete := progress.AllCompulsoryComplete(snap.State.Course, derived)
	switch {
	case cp == nil:
		// 尚未开始学习
	case complete:
		status = model.EnrollmentCompleted
	default:
		status = model.EnrollmentInProgress
	}

	if e.Progress != derived.OverallProgress || status != e.Status {
		e.Progress = derived.OverallProgress
		e.Status = status
		if status == model.EnrollmentCompleted && e.CompletedAt == nil {
			now := time.Now()
			e.CompletedAt = &now
		}
		if status != model.EnrollmentCompleted {
			e.CompletedAt = nil
		}
		if err := j.EnrollmentRepo.Update(ctx, e); err != nil {
			return false, err
		}
		corrected = true
	}
	return corrected, nil
}

// Schedule 注册到 cron，spec 为空时不调度
func (j *ProgressAuditJob) Schedule(c *cron.Cron, spec string) error {
	if spec == "" {
		return nil
	}
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		start := time.Now()
		report, err := j.Run(ctx)
		if err != nil {
			logger.Log.Error("progress audit aborted", zap.Error(err))
		}
		logger.Log.Info("progress audit finished",
			zap.Int("checked", report.Checked),
			zap.Int("corrected", report.Corrected),
			zap.Int("failed", report.Failed),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
	return err
}
