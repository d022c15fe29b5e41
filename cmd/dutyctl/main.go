// dutyctl 值班排班命令行工具
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/paiban/dutyplan/internal/config"
	"github.com/paiban/dutyplan/pkg/calendar"
	"github.com/paiban/dutyplan/pkg/engine"
	"github.com/paiban/dutyplan/pkg/logger"
	"github.com/paiban/dutyplan/pkg/validator"
)

// 构建信息（通过 ldflags 注入）
var Version = "dev"

// App 命令共享的依赖
type App struct {
	cfg      *config.Config
	engine   *engine.Engine
	holidays *calendar.StaticHolidays
}

// detector 按引擎配置创建冲突检测器
func (a *App) detector() *validator.ConflictDetector {
	ec := a.engine.Config()
	return validator.NewConflictDetector(&validator.DetectorConfig{
		DefaultRequired: ec.DefaultRequired,
		PrimaryFacility: ec.PrimaryFacility,
		Requirement:     ec.Requirement,
	})
}

// globalFlags 全局参数
type globalFlags struct {
	configPath string
	logLevel   string
	timeLimit  time.Duration
	workers    int
	seed       int64
}

// exitError 携带退出码的错误，已输出结果时不再打印
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	app := &App{}

	root := &cobra.Command{
		Use:           "dutyctl",
		Short:         "住院医月度值班排班工具",
		Long:          "根据住院医、医院容量和不可排日期生成月度值班表，并提供校验、统计和日历查看。",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(cmd, flags, app)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", os.Getenv("APP_CONFIG"), "配置文件路径 (.yaml/.yml/.toml)")
	pf.StringVar(&flags.logLevel, "log-level", "", "日志级别 (debug/info/warn/error)")
	pf.DurationVar(&flags.timeLimit, "time-limit", 0, "求解时长上限，例如 5s")
	pf.IntVar(&flags.workers, "workers", 0, "并行搜索的工作协程数")
	pf.Int64Var(&flags.seed, "seed", 0, "随机种子")

	root.AddCommand(
		solveCmd(app),
		aggregateCmd(app),
		validateCmd(app),
		statsCmd(app),
		swapCmd(app),
		calendarCmd(app),
	)
	return root
}

// initApp 加载配置，命令行参数优先于配置文件和环境变量
func initApp(cmd *cobra.Command, flags *globalFlags, app *App) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}

	pf := cmd.Flags()
	if pf.Changed("log-level") {
		cfg.App.LogLevel = flags.logLevel
	}
	if pf.Changed("time-limit") {
		cfg.Solver.TimeLimit.Duration = flags.timeLimit
	}
	if pf.Changed("workers") {
		cfg.Solver.Workers = flags.workers
	}
	if pf.Changed("seed") {
		cfg.Solver.Seed = flags.seed
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logCfg := cfg.LoggerConfig()
	logCfg.Output = "stderr"
	logger.Init(logCfg)

	holidays, err := cfg.Holidays()
	if err != nil {
		return err
	}

	app.cfg = cfg
	app.holidays = holidays
	app.engine = engine.New(cfg.EngineConfig())
	logger.Debug().
		Str("config", flags.configPath).
		Str("solver", cfg.Solver.Algorithm).
		Dur("time_limit", cfg.Solver.TimeLimit.Duration).
		Int("workers", cfg.Solver.Workers).
		Msg("配置加载完成")
	return nil
}

func statusError(status string) error {
	return &exitError{code: 2, msg: fmt.Sprintf("排班状态: %s", status)}
}
