package controller

import (
	"errors"
	"net/http"

	"lms_backend/internal/progress"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// respondError 将服务层错误映射为统一响应
func respondError(ctx *gin.Context, err error) {
	var locked *progress.LockedModuleError
	switch {
	case errors.As(err, &locked):
		util.ErrorWithData(ctx, http.StatusForbidden, util.CodeModuleLocked, err.Error(), gin.H{"moduleId": locked.ModuleID})
	case progress.IsMissing(err):
		util.NotFoundMessage(ctx, err.Error())
	case errors.Is(err, util.ErrCourseNotFound),
		errors.Is(err, util.ErrQuizNotFound),
		errors.Is(err, util.ErrAttemptNotFound),
		errors.Is(err, util.ErrNotificationNotFound):
		util.NotFoundMessage(ctx, err.Error())
	case errors.Is(err, util.ErrNotEnrolled), errors.Is(err, util.ErrPermissionDenied):
		util.Error(ctx, http.StatusForbidden, err.Error())
	case errors.Is(err, util.ErrInvalidAnswers), errors.Is(err, util.ErrInvalidCourse):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrCourseIncomplete):
		util.ErrorWithData(ctx, http.StatusUnprocessableEntity, util.CodeCourseIncomplete, err.Error(), nil)
	default:
		util.LogInternalError(ctx, err)
	}
}

func currentUser(ctx *gin.Context) (*util.Claims, bool) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return nil, false
	}
	return user, true
}
