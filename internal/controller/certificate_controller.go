package controller

import (
	"errors"
	"net/http"

	"lms_backend/internal/service"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CertificateController struct {
	CertificateService *service.CertificateService
}

func NewCertificateController(certificateService *service.CertificateService) *CertificateController {
	return &CertificateController{CertificateService: certificateService}
}

// @Summary 生成结课证书
// @Description 所有必修模块完成后生成证书；未完成返回 422，已存在返回 409 并附带已有证书
// @Tags 证书
// @Produce json
// @Security ApiKeyAuth
// @Param courseId path int true "课程ID"
// @Success 201 {object} util.Response{data=model.Certificate}
// @Failure 409 {object} util.Response{data=model.Certificate}
// @Failure 422 {object} util.Response
// @Router /courses/{courseId}/certificate [post]
func (c *CertificateController) Generate(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}
	courseID, ok := util.ParamID(ctx, "courseId")
	if !ok {
		return
	}

	cert, err := c.CertificateService.Generate(ctx.Request.Context(), user.UserID, courseID)
	if errors.Is(err, util.ErrCertificateExists) {
		util.ErrorWithData(ctx, http.StatusConflict, util.CodeCertificateExists, err.Error(), cert)
		return
	}
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, cert)
}

// @Summary 我的证书
// @Tags 证书
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Certificate}
// @Router /certificates [get]
func (c *CertificateController) List(ctx *gin.Context) {
	user, ok := currentUser(ctx)
	if !ok {
		return
	}

	list, err := c.CertificateService.List(ctx.Request.Context(), user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, list)
}
