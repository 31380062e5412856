package controller

import (
	"lms_backend/internal/progress"
	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// @Summary 获取学习进度
// @Description 返回模块完成情况、已完成内容、最近访问模块和总进度
// @Tags 进度
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=service.ProgressView}
// @Failure 403 {object} util.Response
// @Router /courses/{courseId}/progress [get]
func (c *ProgressController) GetProgress(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	courseID, ok := util.ParamID(ctx, "courseId")
	if !ok {
		return
	}

	view, err := c.ProgressService.GetProgress(ctx.Request.Context(), user.UserID, courseID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 写入学习进度
// @Description 设置内容完成标记；未解锁模块返回 403 module_locked。重复提交相同请求结果不变。
// @Tags 进度
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Param body body progress.WriteRequest true "进度写入"
// @Success 200 {object} util.Response{data=service.WriteProgressResult}
// @Failure 403 {object} util.Response
// @Router /courses/{courseId}/progress [put]
func (c *ProgressController) WriteProgress(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	courseID, ok := util.ParamID(ctx, "courseId")
	if !ok {
		return
	}

	var req progress.WriteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if req.ModuleID == 0 || req.ContentID == 0 {
		util.BadRequest(ctx, "moduleId and contentId are required")
		return
	}
	req.CourseID = courseID

	result, err := c.ProgressService.WriteProgress(ctx.Request.Context(), user.UserID, courseID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 获取模块解锁状态
// @Description 服务端按解锁规则计算的每个模块状态（LOCKED/UNLOCKED/COMPLETE）
// @Tags 进度
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Success 200 {object} util.Response{data=service.StateView}
// @Router /courses/{courseId}/state [get]
func (c *ProgressController) GetState(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	courseID, ok := util.ParamID(ctx, "courseId")
	if !ok {
		return
	}

	view, err := c.ProgressService.GetState(ctx.Request.Context(), user.UserID, courseID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}
