// DutyPlan 值班排班引擎服务
// 主程序入口

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paiban/dutyplan/internal/config"
	"github.com/paiban/dutyplan/internal/database"
	"github.com/paiban/dutyplan/internal/handler"
	"github.com/paiban/dutyplan/internal/metrics"
	"github.com/paiban/dutyplan/internal/middleware"
	"github.com/paiban/dutyplan/internal/repository"
	"github.com/paiban/dutyplan/pkg/engine"
	"github.com/paiban/dutyplan/pkg/logger"
	"github.com/paiban/dutyplan/pkg/stats"
	"github.com/paiban/dutyplan/pkg/swap"
	"github.com/paiban/dutyplan/pkg/validator"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", os.Getenv("APP_CONFIG"), "配置文件路径 (.yaml/.yml/.toml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LoggerConfig())

	if err := run(cfg); err != nil {
		logger.Error().Err(err).Msg("服务异常退出")
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	holidays, err := cfg.Holidays()
	if err != nil {
		return err
	}
	m := metrics.New()
	engineOpts := []engine.Option{engine.WithObserver(m)}

	// 运行记录存储（可选）
	var (
		runHandler *handler.RunHandler
		health     handler.HealthChecker
	)
	if cfg.Database.Enabled {
		db, err := database.New(&cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}
		repo := repository.NewRunRepository(db)
		engineOpts = append(engineOpts, engine.WithRecorder(repo))
		runHandler = handler.NewRunHandler(repo)
		health = db
		if cfg.Database.Retention.Duration > 0 {
			go pruneRuns(ctx, repo, cfg.Database.Retention.Duration)
		}
	}

	eng := engine.New(cfg.EngineConfig(), engineOpts...)
	engineCfg := eng.Config()

	detector := validator.NewConflictDetector(&validator.DetectorConfig{
		DefaultRequired: engineCfg.DefaultRequired,
		PrimaryFacility: engineCfg.PrimaryFacility,
		Requirement:     engineCfg.Requirement,
	})

	routes := &handler.Routes{
		Schedule: handler.NewScheduleHandler(eng,
			handler.WithTimeout(cfg.API.Timeout.Duration),
			handler.WithActiveTracker(m.SolveStarted),
		),
		Analysis: handler.NewAnalysisHandler(
			detector,
			stats.NewFairnessAnalyzer(holidays),
			stats.NewCoverageAnalyzer(holidays),
			m,
		),
		Swap: handler.NewSwapHandler(swap.NewEvaluator(detector, holidays)),
		Runs: runHandler,
		System: handler.NewSystemHandler(handler.BuildInfo{
			Version:   Version,
			BuildTime: BuildTime,
			GitCommit: GitCommit,
		}, health),
	}
	if cfg.Metrics.Enabled {
		routes.Metrics = m.Handler()
		routes.MetricsPath = cfg.Metrics.Path
	}

	mux := http.NewServeMux()
	routes.Register(mux)

	// 中间件执行顺序：recovery -> requestID -> logging -> metrics -> cors -> rateLimit -> handler
	mws := []middleware.Middleware{
		middleware.Recovery,
		middleware.RequestID,
		middleware.Logging,
		middleware.Metrics(m),
	}
	if cfg.API.CORS.Enabled {
		mws = append(mws, middleware.CORS(cfg.API.CORS.Origins))
	}
	if cfg.API.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.API.RateLimit, time.Minute)
		go limiter.Run(ctx)
		mws = append(mws, middleware.RateLimit(limiter))
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      middleware.Chain(mux, mws...),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.API.Timeout.Duration + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("version", Version).
			Str("env", cfg.App.Env).
			Bool("database", cfg.Database.Enabled).
			Str("solver", engineCfg.SolverName).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("正在关闭服务器...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("服务器关闭失败: %w", err)
	}
	logger.Info().Msg("服务器已关闭")
	return nil
}

// pruneRuns 每小时清理超过保留期的运行记录
func pruneRuns(ctx context.Context, repo repository.RunRepositoryInterface, retention time.Duration) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		n, err := repo.DeleteBefore(ctx, time.Now().Add(-retention))
		if err != nil {
			logger.Warn().Err(err).Msg("清理运行记录失败")
		} else if n > 0 {
			logger.Info().Int64("deleted", n).Msg("已清理过期运行记录")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
