package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jengzang/travel-journal-go/internal/config"
	"github.com/jengzang/travel-journal-go/internal/handler"
	"github.com/jengzang/travel-journal-go/internal/middleware"
	"github.com/jengzang/travel-journal-go/internal/service"
	"github.com/jengzang/travel-journal-go/internal/stream"
)

// Dependencies are the collaborators the router wires into handlers
type Dependencies struct {
	Registry *service.Registry
	Hub      *stream.Hub
	Limiter  *middleware.RateLimiter
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger())

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"message":  "Travel journal API is running",
			"journals": deps.Registry.Len(),
			"streams":  deps.Hub.ClientCount(""),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limiter := deps.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}

	trackingHandler := handler.NewTrackingHandler(deps.Registry)
	statsHandler := handler.NewStatsHandler(deps.Registry)
	placeHandler := handler.NewPlaceHandler(deps.Registry)
	streamHandler := handler.NewStreamHandler(deps.Hub)

	// API 路由组
	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(limiter), middleware.Auth(cfg.Auth.JWTSecret))
	{
		// 定位追踪
		tracking := api.Group("/tracking")
		{
			tracking.POST("/start", trackingHandler.Start)
			tracking.POST("/stop", trackingHandler.Stop)
			tracking.POST("/positions", trackingHandler.IngestPositions)
			tracking.POST("/errors", trackingHandler.ReportError)
			tracking.GET("/status", trackingHandler.GetStatus)
			tracking.GET("/route", trackingHandler.GetRoute)
			tracking.GET("/route/geojson", trackingHandler.GetRouteGeoJSON)
		}

		api.POST("/motion/samples", statsHandler.FeedMotion)

		// 统计与经验值
		stats := api.Group("/stats")
		{
			stats.GET("", statsHandler.GetStats)
			stats.GET("/daily/:date", statsHandler.GetDailyStats)
			stats.GET("/history", statsHandler.GetHistory)
			stats.POST("/steps", statsHandler.AddSteps)
		}

		api.GET("/achievements", statsHandler.GetAchievements)

		// 打卡与回忆
		api.POST("/visits", placeHandler.Visit)
		api.GET("/visits", placeHandler.ListVisits)
		api.POST("/memories", placeHandler.CreateMemory)
		api.GET("/memories", placeHandler.ListMemories)

		api.GET("/stream", streamHandler.Stream)
	}

	return r
}
