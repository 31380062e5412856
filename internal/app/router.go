package app

import (
	"lms_backend/docs"
	"lms_backend/internal/config"
	"lms_backend/internal/middleware"
	"lms_backend/internal/model"
	"lms_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	public.GET("/health", c.health.HealthCheck)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerLearnerRoutes(authGroup, c)
	}

	// 3. 教师/管理员接口
	admin := router.Group("/api/admin")
	admin.Use(
		middleware.AuthMiddleware(cfg),
		middleware.ActivityMiddleware(repos.user),
		middleware.RoleMiddleware(model.Teacher),
	)
	{
		admin.POST("/courses/import", c.course.ImportCourse)
	}
}

func (a *App) registerLearnerRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/courses", c.course.ListCourses)

	courses := rg.Group("/courses/:courseId")
	{
		courses.GET("", c.course.GetCourse)
		courses.POST("/enroll", c.enrollment.Enroll)

		// 进度
		courses.GET("/progress", c.progress.GetProgress)
		courses.PUT("/progress", c.progress.WriteProgress)
		courses.GET("/state", c.progress.GetState)

		// 测验
		courses.GET("/quizzes/:quizId", c.quiz.GetQuiz)
		courses.GET("/quizzes/:quizId/attempts/latest", c.quiz.LatestAttempt)
		courses.POST("/quizzes/:quizId/submit", c.quiz.SubmitQuiz)

		// 证书
		courses.POST("/certificate", c.certificate.Generate)
	}

	rg.GET("/enrollments", c.enrollment.List)
	rg.GET("/certificates", c.certificate.List)
	rg.GET("/notifications", c.notification.List)
	rg.PATCH("/notifications/:id/read", c.notification.MarkRead)
}
