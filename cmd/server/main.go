package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/jengzang/travel-journal-go/internal/api"
	"github.com/jengzang/travel-journal-go/internal/config"
	"github.com/jengzang/travel-journal-go/internal/database"
	"github.com/jengzang/travel-journal-go/internal/logging"
	"github.com/jengzang/travel-journal-go/internal/middleware"
	"github.com/jengzang/travel-journal-go/internal/scheduler"
	"github.com/jengzang/travel-journal-go/internal/service"
	"github.com/jengzang/travel-journal-go/internal/stream"
	"github.com/jengzang/travel-journal-go/internal/supervisor"
)

// rateLimiterIdle is how long an idle client IP keeps its bucket
const rateLimiterIdle = time.Hour

func main() {
	// .env 可选
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn().Err(err).Msg("failed to read .env")
	}

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if cfg.Logging.Level != "debug" && cfg.Logging.Level != "trace" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化数据库
	db, err := database.Open(database.Config{Path: cfg.Database.Path})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	writer := service.NewWriter(service.NewWriterConfig(cfg))
	hub := stream.NewHub(0)
	clock := scheduler.RealClock{}
	registry := service.NewRegistry(service.NewJournalConfig(cfg), service.NewSQLiteStores(db), writer, hub, clock)
	limiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)

	// 定时任务
	sched := scheduler.New(clock)
	sched.Every("time-walked", cfg.Scheduler.TimeWalkedInterval, registry.TickAll)
	sched.Every("rollover", cfg.Scheduler.RolloverInterval, registry.RolloverAll)
	sched.Every("ratelimit-cleanup", rateLimiterIdle, func(_ context.Context, now time.Time) {
		if n := limiter.Cleanup(now, rateLimiterIdle); n > 0 {
			logging.Debug().Int("removed", n).Msg("pruned idle rate limiters")
		}
	})

	// 初始化路由
	router := api.SetupRouter(cfg, api.Dependencies{Registry: registry, Hub: hub, Limiter: limiter})
	server := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	tree := supervisor.NewTree(supervisor.TreeConfig{ShutdownTimeout: cfg.Server.ShutdownTimeout})
	tree.AddDataService(writer)
	tree.AddRuntimeService(sched)
	tree.AddRuntimeService(hub)
	tree.AddAPIService(supervisor.NewHTTPService(server, cfg.Server.ShutdownTimeout))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 启动服务器
	logging.Info().Str("addr", cfg.Server.Port).Msg("server starting")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("supervisor exited")
	}
	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		logging.Warn().Int("services", len(report)).Msg("services did not stop before the shutdown timeout")
	}

	// Flush writes still queued at shutdown
	writer.Close()
	if n := writer.Drain(); n > 0 {
		logging.Info().Int("jobs", n).Msg("flushed pending writes")
	}
	logging.Info().Msg("server stopped")
}
