package controller

import (
	"lms_backend/internal/model"
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

// @Summary 获取测验
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Param quizId path int true "测验ID"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Router /courses/{courseId}/quizzes/{quizId} [get]
func (c *QuizController) GetQuiz(ctx *gin.Context) {
	courseID, ok := util.ParamID(ctx, "courseId")
	if !ok {
		return
	}
	quizID, ok := util.ParamID(ctx, "quizId")
	if !ok {
		return
	}

	quiz, err := c.QuizService.GetQuiz(ctx.Request.Context(), courseID, quizID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// @Summary 获取最新作答
// @Description 没有作答记录时返回 404。教师和管理员可通过 userId 查询其他学生。
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Param quizId path int true "测验ID"
// @Param userId query int false "学生ID"
// @Success 200 {object} util.Response{data=model.QuizAttempt}
// @Failure 404 {object} util.Response
// @Router /courses/{courseId}/quizzes/{quizId}/attempts/latest [get]
func (c *QuizController) LatestAttempt(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	courseID, ok := util.ParamID(ctx, "courseId")
	if !ok {
		return
	}
	quizID, ok := util.ParamID(ctx, "quizId")
	if !ok {
		return
	}

	userID := user.UserID
	if raw := ctx.Query("userId"); raw != "" {
		userID = util.MustParseUint(raw)
		if userID == 0 {
			util.BadRequest(ctx, "invalid userId")
			return
		}
		if userID != user.UserID && user.Role != model.Teacher && user.Role != model.Admin {
			util.Forbidden(ctx)
			return
		}
	}

	attempt, err := c.QuizService.LatestAttempt(ctx.Request.Context(), courseID, quizID, userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, attempt)
}

// @Summary 提交测验
// @Description 评分并记录作答；模块未解锁时返回 403 module_locked
// @Tags 测验
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Param quizId path int true "测验ID"
// @Param body body service.SubmitQuizRequest true "答案"
// @Success 200 {object} util.Response{data=service.SubmitQuizResult}
// @Router /courses/{courseId}/quizzes/{quizId}/submit [post]
func (c *QuizController) SubmitQuiz(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	courseID, ok := util.ParamID(ctx, "courseId")
	if !ok {
		return
	}
	quizID, ok := util.ParamID(ctx, "quizId")
	if !ok {
		return
	}

	var req service.SubmitQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.QuizService.SubmitQuiz(ctx.Request.Context(), user.UserID, courseID, quizID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
