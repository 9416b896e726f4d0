package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/phillip/crowdfunding-go/errors"
	"github.com/phillip/crowdfunding-go/utils"
)

// Context keys set by AuthMiddleware.
const (
	ContextUserID  = "user_id"
	ContextIsAdmin = "is_admin"
	ContextClaims  = "claims"
)

// AuthMiddleware requires a valid "Authorization: Bearer <token>" header.
func AuthMiddleware(tokens *utils.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			apperrors.HandleError(c, apperrors.New(apperrors.ErrUnauthorized, "Authentication required."))
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			apperrors.HandleError(c, apperrors.New(apperrors.ErrUnauthorized, "Invalid authorization format."))
			c.Abort()
			return
		}

		claims, err := tokens.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			zap.L().Debug("token rejected", zap.String("path", c.Request.URL.Path), zap.Error(err))
			apperrors.HandleError(c, apperrors.Wrap(apperrors.ErrUnauthorized, "Invalid or expired token.", err))
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextIsAdmin, claims.IsAdmin)
		c.Set(ContextClaims, claims)
		c.Next()
	}
}

// AdminMiddleware must run after AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get(ContextClaims); !ok {
			apperrors.HandleError(c, apperrors.New(apperrors.ErrUnauthorized, "Authentication required."))
			c.Abort()
			return
		}
		if !c.GetBool(ContextIsAdmin) {
			zap.L().Warn("non-admin moderation attempt",
				zap.String("user_id", c.GetString(ContextUserID)),
				zap.String("path", c.Request.URL.Path))
			apperrors.HandleError(c, apperrors.New(apperrors.ErrForbidden, "Administrator access required."))
			c.Abort()
			return
		}
		c.Next()
	}
}
