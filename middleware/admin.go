package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/nohand/utils"
)

// AdminRequired lets through only tokens issued to a stored admin account.
// It must run after AuthRequired.
func AdminRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		username := ctx.GetString(ContextUsernameKey)
		if username == "" {
			utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
			ctx.Abort()
			return
		}
		if ctx.GetString(ContextRoleKey) != utils.RoleAdmin {
			utils.L().Warnw("admin route denied", "username", username, "path", ctx.Request.URL.Path)
			utils.Error(ctx, http.StatusForbidden, 40301, "admin privileges required")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
