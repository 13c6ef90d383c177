// 排班引擎服务
// 主程序入口

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paiban/roster/internal/config"
	"github.com/paiban/roster/internal/database"
	"github.com/paiban/roster/internal/handler"
	"github.com/paiban/roster/internal/metrics"
	"github.com/paiban/roster/internal/middleware"
	"github.com/paiban/roster/internal/repository"
	"github.com/paiban/roster/pkg/logger"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
		Output: "stdout",
	})

	fmt.Printf("Roster 排班引擎 v%s\n", Version)
	fmt.Printf("Build: %s (%s)\n", BuildTime, GitCommit)
	fmt.Println()

	if cfg.IsDevelopment() {
		defaults := cfg.Scheduler.Rules()
		logger.Debug().
			Int("tolerance", defaults.Tolerance).
			Int("backtrack_depth", defaults.BacktrackDepth).
			Int("max_repair_steps", defaults.MaxRepairSteps).
			Int("max_balance_swaps", defaults.MaxBalanceSwaps).
			Msg("排班默认参数")
	}

	reg := metrics.Default()
	opts := []handler.Option{
		handler.WithObserver(metrics.NewRunObserver(reg)),
		handler.WithMaxBodyBytes(cfg.API.MaxBodyBytes),
	}

	// 数据库可选：未启用时只提供无状态接口
	var db *database.DB
	if cfg.Database.Enabled {
		db, err = database.New(&cfg.Database, database.WithMetrics(reg))
		if err != nil {
			logger.Fatal().Err(err).Msg("数据库连接失败")
		}
		defer db.Close()

		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = db.Migrate(migrateCtx)
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Msg("数据库迁移失败")
		}
		opts = append(opts, handler.WithStore(repository.NewStore(db, cfg.Store.ChunkBytes, cfg.Scheduler.Rules())))
	}

	mux := http.NewServeMux()

	// 健康检查端点
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if db != nil {
			if err := db.Health(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprintf(w, `{"status":"degraded","database":%q}`, err.Error())
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"roster"}`))
	})

	// 版本信息端点
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"version":%q,"build_time":%q,"git_commit":%q}`, Version, BuildTime, GitCommit)
	})

	handler.NewRosterHandler(cfg.Scheduler, opts...).Register(mux)

	if cfg.Metrics.Enabled {
		mux.Handle("GET "+cfg.Metrics.Path, reg.Handler())
	}

	// 中间件执行顺序：recovery -> requestID -> rateLimit -> cors -> logging -> handler
	h := middleware.Chain(mux,
		middleware.Recovery,
		middleware.RequestID,
		middleware.RateLimit(middleware.NewRateLimiter(100), "/health", cfg.Metrics.Path),
		middleware.CORS,
		middleware.SecurityHeaders,
		middleware.Logging(reg),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      h,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.API.Timeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("version", Version).
			Bool("database", db != nil).
			Strs("strategies", cfg.Scheduler.Strategies).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("服务器启动失败")
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Msg("服务器关闭失败")
		return
	}
	logger.Info().Msg("服务器已关闭")
}
