package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/feichai0017/policy-decoder/api/handlers"
	"github.com/feichai0017/policy-decoder/api/middleware"
	"github.com/feichai0017/policy-decoder/pkg/logger"
	"github.com/feichai0017/policy-decoder/pkg/ratelimit"
)

// Options configure the middleware around the API.
type Options struct {
	AllowedOrigins []string
	// UploadLimiter throttles the analyze route. Nil disables throttling.
	UploadLimiter ratelimit.Limiter
	Logger        logger.Logger
}

// SetupRoutes 配置所有路由
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, opts Options) {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	limiter := opts.UploadLimiter
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}

	// 全局中间件
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS(opts.AllowedOrigins))

	r.GET("/health", h.Health.Check)

	// API 版本组
	v1 := r.Group("/api/v1")

	// 文档处理路由组
	docs := v1.Group("/documents")
	{
		docs.POST("/analyze", middleware.RateLimit(limiter, log), h.Document.AnalyzeDocument)
	}

	// 会话路由组
	sessions := v1.Group("/sessions")
	{
		sessions.GET("/stats", h.Session.Stats)
		sessions.POST("/:id/chat", h.Session.Chat)
		sessions.POST("/:id/touch", h.Session.Touch)
		sessions.DELETE("/:id", h.Session.End)
	}
}
