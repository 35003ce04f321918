package router

import (
	"fmt"
	"strings"

	"github.com/invitearena/invitearena/internal/cache"
	"github.com/invitearena/invitearena/internal/config"
	contesthandlers "github.com/invitearena/invitearena/internal/http/handlers/contest"
	"github.com/invitearena/invitearena/internal/logger"
	"github.com/invitearena/invitearena/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	contestHandler := contesthandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "ia"
	}
	redisClient := cache.Client()
	registerRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:register", redisPrefix),
		WindowSeconds: cfg.Security.RegisterRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.RegisterRateLimit.MaxRequests,
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		contest := apiV1.Group("/contest")
		contest.Use(ServiceAuthMiddleware(c.TokenService))
		{
			contest.POST("/register",
				RateLimitMiddleware(redisClient, registerRule, KeyByIPAndJSONField("external_user_id")),
				contestHandler.Register)
			contest.POST("/departure", contestHandler.Departure)
			contest.POST("/task/complete", contestHandler.CompleteTask)
			contest.GET("/stats", contestHandler.GetStats)
			contest.GET("/leaderboard", contestHandler.GetLeaderboard)
			contest.GET("/rank", contestHandler.GetRank)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
