package middlewares

import (
	"github.com/gin-gonic/gin"

	"fieldaudit/pkg/ginx"
	"fieldaudit/pkg/logger"
)

// ErrorHandler 统一错误处理中间件
// Handler 通过 c.Error 挂载的错误在此输出；panic 转为 500
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf(c.Request.Context(), "[ErrorHandler] panic: %v", r)
				ginx.InternalError(c, "internal server error")
			}
		}()

		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			ginx.FromError(c, c.Errors.Last().Err)
		}
	}
}
