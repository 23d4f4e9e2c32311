package router

import (
	"time"

	"github.com/CMD-Gremlin/wobble/internal/handler"
	"github.com/CMD-Gremlin/wobble/internal/middleware"
	"github.com/CMD-Gremlin/wobble/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers, svc *service.Services) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Api-Key"},
		ExposeHeaders:    []string{"X-Wobble-Plan", "X-Wobble-Quota"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		// 认证
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", h.Auth.Register)
			authGroup.POST("/login", h.Auth.Login)
			authGroup.POST("/refresh", h.Auth.RefreshToken)
			authGroup.POST("/logout", h.Auth.Logout)
			authGroup.GET("/me", middleware.RequireAuth(svc), h.Auth.Me)
		}

		// 嵌入与 Stripe 回调：公开端点，各自有签名鉴权
		v1.GET("/embed/:toolId", h.Embed.Serve)
		v1.POST("/billing/webhook", h.Billing.Webhook)

		// 代理对话：匿名可用，配额层区别对待
		v1.POST("/proxy/chat", middleware.OptionalAuth(svc), h.Proxy.Chat)

		// 以下全部要求认证
		authed := v1.Group("", middleware.RequireAuth(svc))
		{
			tools := authed.Group("/tools")
			{
				tools.POST("/generate", h.Tool.Generate)
				tools.GET("", h.Tool.List)
				tools.GET("/:id", h.Tool.Get)
				tools.POST("/:id/patch", h.Tool.Patch)
				tools.GET("/:id/versions", h.Tool.Versions)
				tools.POST("/:id/embed-url", h.Tool.EmbedURL)
				tools.DELETE("/:id", h.Tool.Delete)
			}

			plugins := authed.Group("/plugins")
			{
				plugins.POST("", h.Plugin.Create)
				plugins.GET("", h.Plugin.List)
				plugins.GET("/:id", h.Plugin.Get)
				plugins.PUT("/:id", h.Plugin.Update)
				plugins.DELETE("/:id", h.Plugin.Delete)
				plugins.POST("/:id/execute", h.Plugin.Execute)
			}

			toolchains := authed.Group("/toolchains")
			{
				toolchains.POST("", h.Toolchain.Create)
				toolchains.GET("", h.Toolchain.List)
				toolchains.GET("/:id", h.Toolchain.Get)
				toolchains.DELETE("/:id", h.Toolchain.Delete)
			}

			billingGroup := authed.Group("/billing")
			{
				billingGroup.POST("/checkout", h.Billing.Checkout)
				billingGroup.GET("/usage", h.Billing.Usage)
			}

			authed.GET("/chunks/search", h.Chunk.Search)
		}
	}

	return r
}
