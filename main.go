package main

import (
	"log"
	"time"

	"notes_nest/config"
	"notes_nest/handler"
	"notes_nest/middleware"
	"notes_nest/utils"

	"github.com/gin-gonic/gin"
	ginprometheus "github.com/zsais/go-gin-prometheus"
)

func init() {
	// 服务端统一使用 UTC
	time.Local = time.UTC
}

func main() {
	// 加载配置
	cfg := config.Load()

	// 初始化日志
	utils.InitLogger(cfg.Env)

	// 初始化数据库
	if err := utils.InitDB(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer utils.CloseDB()

	// 初始化 Redis（限流 + 登出黑名单）
	if err := utils.InitRedis(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer utils.CloseRedis()

	// 初始化令牌签发
	utils.InitTokens(cfg.JWTSecret, cfg.AccessTokenExpireMinutes, cfg.RefreshTokenExpireDays)

	// 创建 Gin 路由
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.ErrorHandlerMiddleware())

	// Prometheus 指标（/metrics）
	p := ginprometheus.NewPrometheus("gin")
	p.Use(r)

	// 注册全部业务路由
	handler.RegisterRoutes(r, utils.GetDB(), utils.GetRedis(), cfg.LoginRateLimit)

	// 启动服务
	log.Printf("🚀 notes_nest service starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
