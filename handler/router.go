package handler

import (
	"time"

	"notes_nest/middleware"
	"notes_nest/service"
	"notes_nest/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// RegisterRoutes 组装服务、处理器和全部路由
// rdb 可为 nil：限流和登出黑名单随之关闭
func RegisterRoutes(r *gin.Engine, db *gorm.DB, rdb *redis.Client, loginRateLimit int) {
	authSvc := service.NewAuthServiceWithRedis(db, rdb)
	userSvc := service.NewUserService(db)
	friendSvc := service.NewFriendshipService(db)
	noteSvc := service.NewNoteService(db)

	authHandler := NewAuthHandler(authSvc)
	userHandler := NewUserHandler(userSvc)
	friendHandler := NewFriendshipHandler(friendSvc)
	noteHandler := NewNoteHandler(noteSvc)

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		utils.SuccessResponse(c, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(db, rdb))
	{
		// 认证
		api.POST("/token",
			middleware.RateLimitMiddleware(rdb, "login", loginRateLimit, time.Minute),
			authHandler.Login)
		api.POST("/token/refresh", authHandler.Refresh)
		api.POST("/logout", authHandler.Logout)

		// 用户
		api.POST("/users", userHandler.Register)
		api.GET("/users", userHandler.List)
		api.GET("/users/:id", userHandler.Get)
		api.PUT("/users/:id", userHandler.Update)
		api.DELETE("/users/:id", middleware.AdminMiddleware(), userHandler.Delete)
		api.POST("/users/:id/role", middleware.AdminMiddleware(), userHandler.ChangeRole)
		api.POST("/users/verify-email/:token", userHandler.VerifyEmail)

		// 好友关系
		api.POST("/friend-requests", friendHandler.SendRequest)
		api.POST("/friend-requests/:id/respond", friendHandler.Respond)
		api.GET("/friend-requests/pending", friendHandler.Pending)
		api.GET("/friend-requests/sent", friendHandler.Sent)
		api.DELETE("/friend-requests/cancel/:id", friendHandler.Cancel)
		api.DELETE("/friends/:id", friendHandler.Remove)
		api.GET("/friends", friendHandler.List)
		api.GET("/friendship-status/:id", friendHandler.Status)

		// 笔记
		api.POST("/notes", noteHandler.Create)
		api.GET("/notes", noteHandler.List)
		api.GET("/notes/my", noteHandler.ListMy)
		api.GET("/notes/:id", noteHandler.Get)
		api.PUT("/notes/:id", noteHandler.Update)
		api.DELETE("/notes/:id", noteHandler.Delete)
		api.GET("/notes/:id/authors", noteHandler.Authors)
		api.POST("/notes/:id/authors", noteHandler.AddAuthor)
		api.DELETE("/notes/:id/authors", noteHandler.RemoveAuthor)
		api.POST("/notes/:id/transfer-ownership", noteHandler.TransferOwnership)
	}
}
