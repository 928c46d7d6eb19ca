/**
 * 中间件:HTTP中间件
 * @author: sun977
 * @date: 2025.11.09
 * @description: 定义HTTP中间件
 * @func:
 *   - GinCORSMiddleware CORS跨域资源共享中间件,处理跨域请求，设置必要的CORS头部信息
 *   - GinSecurityHeadersMiddleware 安全头部中间件,设置必要的安全头部信息
 *   - GinRequestIDMiddleware 请求ID中间件,为每个请求添加唯一的请求ID,方便日志跟踪和调试
 *   - GinAccessLogMiddleware 访问日志中间件,记录每个请求的方法、路径、状态码与耗时
 */
package hub

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"neohub/internal/config"
	"neohub/internal/pkg/logger"
)

// MiddlewareManager 中间件管理器
type MiddlewareManager struct {
	corsConfig *config.CORSConfig
}

// NewMiddlewareManager 创建中间件管理器
func NewMiddlewareManager(corsConfig *config.CORSConfig) *MiddlewareManager {
	return &MiddlewareManager{corsConfig: corsConfig}
}

// GinCORSMiddleware CORS跨域资源共享中间件
// 处理跨域请求，设置必要的CORS头部信息
func (m *MiddlewareManager) GinCORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// 允许的来源(生产环境应该配置具体的域名)
		if m.corsConfig.AllowAllOrigins {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" && m.originAllowed(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers",
			"Origin, Content-Type, Content-Length, Accept-Encoding, Authorization, Cache-Control, X-Requested-With")
		c.Header("Access-Control-Max-Age", "86400")

		// 预检请求直接返回
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// originAllowed 判断来源是否在允许列表中
func (m *MiddlewareManager) originAllowed(origin string) bool {
	if len(m.corsConfig.AllowOrigins) == 0 {
		return true
	}
	for _, allowed := range m.corsConfig.AllowOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// GinSecurityHeadersMiddleware 安全头部中间件
// 设置必要的安全头部信息，防止常见的安全漏洞
func (m *MiddlewareManager) GinSecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// GinRequestIDMiddleware 请求ID中间件
// 为每个请求添加唯一的请求ID，方便日志跟踪和调试
func (m *MiddlewareManager) GinRequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.Request.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// GinAccessLogMiddleware 访问日志中间件
// 记录每个请求的方法、路径、状态码与耗时
func (m *MiddlewareManager) GinAccessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(logrus.Fields{
			"operation":  "http_access",
			"func_name":  "hub.GinAccessLogMiddleware",
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
			"request_id": c.GetString("request_id"),
		}).Info("HTTP request completed")
	}
}
