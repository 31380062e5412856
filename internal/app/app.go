package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lms_backend/internal/config"
	"lms_backend/internal/controller"
	"lms_backend/internal/jobs"
	"lms_backend/internal/repository"
	"lms_backend/internal/service"
	"lms_backend/pkg/configwatcher"
	"lms_backend/pkg/database"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"
	"lms_backend/pkg/security"
	"lms_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	Services *Services
	Jobs     *jobs.ProgressAuditJob

	cron            *cron.Cron
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user         *repository.UserRepository
	course       *repository.CourseRepository
	progress     *repository.ProgressRepository
	quiz         *repository.QuizRepository
	enrollment   *repository.EnrollmentRepository
	certificate  *repository.CertificateRepository
	notification *repository.NotificationRepository
}

// Services 对外暴露，供脚本和测试直接调用
type Services struct {
	Storage      *service.StorageService
	Course       *service.CourseService
	Enrollment   *service.EnrollmentService
	Progress     *service.ProgressService
	Quiz         *service.QuizService
	Certificate  *service.CertificateService
	Notification *service.NotificationService
}

type controllers struct {
	course       *controller.CourseController
	progress     *controller.ProgressController
	quiz         *controller.QuizController
	enrollment   *controller.EnrollmentController
	certificate  *controller.CertificateController
	notification *controller.NotificationController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:         repository.NewUserRepository(db),
		course:       repository.NewCourseRepository(db),
		progress:     repository.NewProgressRepository(db),
		quiz:         repository.NewQuizRepository(db),
		enrollment:   repository.NewEnrollmentRepository(db),
		certificate:  repository.NewCertificateRepository(db),
		notification: repository.NewNotificationRepository(db),
	}
}

func initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client, mailer service.Mailer) *Services {
	s := &Services{}

	s.Storage = service.NewStorageService(cfg)
	s.Notification = service.NewNotificationService(repos.notification, repos.user, mailer)
	s.Course = service.NewCourseService(repos.course, rdb, cfg.Redis.CourseTTL())
	s.Enrollment = service.NewEnrollmentService(repos.enrollment, s.Course)
	s.Progress = service.NewProgressService(db, s.Course, repos.progress, repos.quiz, repos.enrollment, s.Notification)
	s.Quiz = service.NewQuizService(repos.quiz, s.Progress, s.Notification)
	s.Certificate = service.NewCertificateService(repos.certificate, repos.user, s.Progress, s.Storage, s.Notification, &cfg.Certificate)

	return s
}

func initControllers(s *Services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		course:       controller.NewCourseController(s.Course),
		progress:     controller.NewProgressController(s.Progress),
		quiz:         controller.NewQuizController(s.Quiz),
		enrollment:   controller.NewEnrollmentController(s.Enrollment),
		certificate:  controller.NewCertificateController(s.Certificate),
		notification: controller.NewNotificationController(s.Notification),
		health:       controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// New 组装应用；db、rdb 由调用方创建，rdb 可为 nil
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, mailer service.Mailer) *App {
	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := initRepositories(db)
	app.Services = initServices(repos, cfg, db, rdb, mailer)
	app.Jobs = jobs.NewProgressAuditJob(repos.enrollment, repos.progress, app.Services.Progress)
	controllers := initControllers(app.Services, db, rdb)

	monitoring.Init()

	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "" || cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

// NewApp 按配置初始化日志、数据库、缓存、追踪和定时任务
func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	gin.SetMode(cfg.Server.Mode)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.Server.Mode != "release" || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}
	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Warn("Redis unavailable, course cache disabled", zap.Error(err))
		rdb = nil
	}

	app := New(cfg, db, rdb, service.NewMailer(&cfg.Email))

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.RegisterConfigCallback(func(newCfg *config.Config) {
		logger.SetLevel(newCfg.Server.Mode)
	})

	app.startBackgroundTasks()
	return app
}

func (a *App) startBackgroundTasks() {
	a.cron = cron.New()
	if err := a.Jobs.Schedule(a.cron, a.Config.Jobs.ProgressAuditSpec); err != nil {
		logger.Log.Error("invalid progress audit schedule",
			zap.String("spec", a.Config.Jobs.ProgressAuditSpec),
			zap.Error(err),
		)
	}
	a.cron.Start()
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	if a.Config.ConfigFile != "" {
		go func() {
			err := configwatcher.WatchConfig(watchCtx, a.Config.ConfigFile, func(newCfg *config.Config) {
				for _, cb := range a.configCallbacks {
					cb(newCfg)
				}
			})
			if err != nil {
				logger.Log.Error("config watcher stopped", zap.Error(err))
			}
		}()
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	if a.cron != nil {
		<-a.cron.Stop().Done()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	log.Println("Server exiting")
}
