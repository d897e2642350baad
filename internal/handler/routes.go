package handler

import (
	"teamflow/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Handlers HTTP处理器集合
type Handlers struct {
	Users     *UserHandler
	Channels  *ChannelHandler
	Bookmarks *BookmarkHandler
	Search    *SearchHandler
	Files     *FileHandler
}

// RegisterRoutes 绑定 /api/v1 与 /uploads 路由，auth 为JWT认证中间件
func RegisterRoutes(router gin.IRouter, h Handlers, auth gin.HandlerFunc) {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(response.JSONFieldName)
	}

	v1 := router.Group("/api/v1")
	{
		users := v1.Group("/users")
		{
			// 公开接口（无需认证）
			users.POST("/register", h.Users.Register)
			users.POST("/login", h.Users.Login)

			authUsers := users.Group("")
			authUsers.Use(auth)
			{
				authUsers.GET("/profile", h.Users.GetProfile)
				authUsers.GET("/:username/status", h.Users.GetStatus)
			}
		}

		channels := v1.Group("/channels")
		channels.Use(auth)
		{
			channels.GET("", h.Channels.List)
			channels.POST("", h.Channels.Create)
			channels.GET("/:id", h.Channels.Get)
			channels.GET("/:id/pins", h.Channels.Pins)
			channels.POST("/:id/files", h.Channels.Upload)
		}

		bookmarks := v1.Group("/bookmarks")
		bookmarks.Use(auth)
		{
			bookmarks.GET("", h.Bookmarks.List)
			bookmarks.POST("/:id", h.Bookmarks.Toggle)
		}

		v1.GET("/search", auth, h.Search.Search)
		v1.GET("/files", auth, h.Files.List)

		rag := v1.Group("/rag")
		rag.Use(auth)
		{
			rag.POST("/query", h.Files.Query)
			rag.POST("/ingest", h.Files.Ingest)
		}
	}

	router.GET("/uploads/*ref", auth, h.Files.Serve)
}
