package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/relocation-backend/internal/platform/ctxutil"
)

// AttachRequestContext seeds every request as anonymous; auth middleware
// replaces the identity when it resolves one.
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ctxutil.GetRequestData(c.Request.Context()) == nil {
			ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{ExternalUserID: ctxutil.AnonymousUserID})
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}
