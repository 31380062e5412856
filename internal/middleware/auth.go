package middleware

import (
	"context"
	"strings"
	"time"

	"lms_backend/internal/config"
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthMiddleware 校验身份提供方签发的 Bearer 令牌
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret, cfg.JWT.Issuer)
		if err != nil {
			logger.Log.Debug("JWT rejected", zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set("user", claims)
		c.Next()
	}
}

func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		if user == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		// 管理员拥有所有角色权限
		hasRole := user.Role == model.Admin
		for _, role := range roles {
			if user.Role == role {
				hasRole = true
				break
			}
		}

		if !hasRole {
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

type UserActivityRepo interface {
	Touch(ctx context.Context, user *model.User) error
}

// ActivityMiddleware 同步令牌中的用户资料并更新最后活跃时间
func ActivityMiddleware(repo UserActivityRepo) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := util.GetUserFromContext(c)
		if claims != nil {
			role := claims.Role
			if role == "" {
				role = model.Student
			}
			user := &model.User{
				BaseModel: model.BaseModel{ID: claims.UserID},
				Name:      claims.Name,
				Email:     claims.Email,
				Role:      role,
			}
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			if err := repo.Touch(ctx, user); err != nil {
				logger.Log.Warn("failed to record user activity", zap.Uint("userId", claims.UserID), zap.Error(err))
			}
			cancel()
		}
		c.Next()
	}
}
