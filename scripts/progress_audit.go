// 手动触发进度校对任务
//
// 主应用按 jobs.progress_audit_spec 定时执行同一任务。
// 此脚本用于课程结构调整后立即修正已存储的进度。
//
// 用法: go run scripts/progress_audit.go -config configs

package main

import (
	"context"
	"flag"
	"log"

	"lms_backend/internal/config"
	"lms_backend/internal/jobs"
	"lms_backend/internal/repository"
	"lms_backend/internal/service"
	"lms_backend/pkg/database"
	"lms_backend/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs", "配置文件目录")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	logger.InitLogger(cfg)

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	courseRepo := repository.NewCourseRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)

	// 校对不发送通知，也不使用课程缓存
	courseService := service.NewCourseService(courseRepo, nil, cfg.Redis.CourseTTL())
	progressService := service.NewProgressService(db, courseService,
		progressRepo, repository.NewQuizRepository(db), enrollmentRepo, nil)

	job := jobs.NewProgressAuditJob(enrollmentRepo, progressRepo, progressService)

	log.Println("手动触发进度校对任务...")
	report, err := job.Run(context.Background())
	if err != nil {
		log.Fatalf("进度校对失败: %v", err)
	}
	log.Printf("完成！checked=%d corrected=%d failed=%d", report.Checked, report.Corrected, report.Failed)
}
