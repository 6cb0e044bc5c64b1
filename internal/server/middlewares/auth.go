package middlewares

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"fieldaudit/pkg/ginx"
	"fieldaudit/pkg/logger"
)

const (
	// HeaderSchedulerSecret 调度器共享密钥
	HeaderSchedulerSecret = "X-Scheduler-Secret"

	ctxKeyCaller = "caller"
	// CallerScheduler 调度器调用
	CallerScheduler = "scheduler"
	// CallerAdmin 管理员调用
	CallerAdmin = "admin"
)

// AuthConfig 鉴权配置
type AuthConfig struct {
	SchedulerSecret string
	AdminTokens     []string
}

// Auth 调度器密钥或管理员 Bearer token
// 未提供凭证 → 401；凭证无效 → 403
func Auth(cfg AuthConfig, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := c.GetHeader(HeaderSchedulerSecret)
		token := bearerToken(c.GetHeader("Authorization"))

		if secret == "" && token == "" {
			ginx.Unauthorized(c, "missing credentials")
			return
		}

		if secret != "" && cfg.SchedulerSecret != "" && equal(secret, cfg.SchedulerSecret) {
			c.Set(ctxKeyCaller, CallerScheduler)
			c.Next()
			return
		}

		if token != "" {
			for _, t := range cfg.AdminTokens {
				if t != "" && equal(token, t) {
					c.Set(ctxKeyCaller, CallerAdmin)
					c.Next()
					return
				}
			}
		}

		log.Warnf(c.Request.Context(), "[Auth] Rejected credentials from %s", c.ClientIP())
		ginx.Forbidden(c, "invalid credentials")
	}
}

// Caller 返回通过鉴权的调用方类型
func Caller(c *gin.Context) string {
	return c.GetString(ctxKeyCaller)
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
