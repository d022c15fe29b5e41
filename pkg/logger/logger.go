// Package logger 提供统一的日志框架
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level 日志级别
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器
func Init(cfg Config) {
	once.Do(func() {
		level := parseLevel(cfg.Level)
		zerolog.SetGlobalLevel(level)

		var output io.Writer
		switch cfg.Output {
		case "stderr":
			output = os.Stderr
		case "file":
			if cfg.FilePath != "" {
				f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
				if err == nil {
					output = f
				} else {
					output = os.Stdout
				}
			} else {
				output = os.Stdout
			}
		default:
			output = os.Stdout
		}

		if cfg.Format == "console" {
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: cfg.TimeFormat,
			}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器
func Get() *zerolog.Logger {
	if logger.GetLevel() == zerolog.Disabled {
		Init(DefaultConfig())
	}
	return &logger
}

// ctxKey 上下文键类型
type ctxKey string

// RequestIDKey 请求ID在上下文中的键
const RequestIDKey ctxKey = "request_id"

// RunIDKey 求解运行ID在上下文中的键
const RunIDKey ctxKey = "run_id"

// WithRequestID 将请求ID写入上下文
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// RequestID 从上下文读取请求ID
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// WithContext 从上下文创建日志器
func WithContext(ctx context.Context) *zerolog.Logger {
	l := Get().With().Logger()

	if reqID := RequestID(ctx); reqID != "" {
		l = l.With().Str("request_id", reqID).Logger()
	}

	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		l = l.With().Str("run_id", runID).Logger()
	}

	return &l
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// SolverLogger 求解引擎专用日志器
type SolverLogger struct {
	base *zerolog.Logger
}

// NewSolverLogger 创建求解引擎日志器
func NewSolverLogger(ctx context.Context) *SolverLogger {
	l := WithContext(ctx).With().Str("component", "solver").Logger()
	return &SolverLogger{base: &l}
}

// Logger 返回底层日志器
func (l *SolverLogger) Logger() *zerolog.Logger {
	return l.base
}

// StartSolve 记录求解开始
func (l *SolverLogger) StartSolve(month string, residents, days, facilities int) {
	l.base.Info().
		Str("month", month).
		Int("residents", residents).
		Int("days", days).
		Int("facilities", facilities).
		Msg("开始生成排班")
}

// CapacityShortfall 记录容量不足
func (l *SolverLogger) CapacityShortfall(totalCapacity, totalRequired int) {
	l.base.Warn().
		Int("total_capacity", totalCapacity).
		Int("total_required", totalRequired).
		Msg("总容量小于总需求")
}

// Phase 记录求解阶段结果
func (l *SolverLogger) Phase(phase string, coverage, threshold, total int64, duration time.Duration) {
	l.base.Debug().
		Str("phase", phase).
		Int64("coverage", coverage).
		Int64("threshold", threshold).
		Int64("total", total).
		Dur("duration", duration).
		Msg("求解阶段完成")
}

// ConstraintViolation 记录约束违反
func (l *SolverLogger) ConstraintViolation(constraint, details string) {
	l.base.Warn().
		Str("constraint", constraint).
		Str("details", details).
		Msg("约束违反")
}

// UnderAssigned 记录未满足需求的住院医
func (l *SolverLogger) UnderAssigned(names []string) {
	l.base.Warn().
		Strs("residents", names).
		Int("count", len(names)).
		Msg("部分住院医未达到需求次数")
}

// SolveComplete 记录求解完成
func (l *SolverLogger) SolveComplete(status string, duration time.Duration, assigned, required int) {
	l.base.Info().
		Str("status", status).
		Dur("duration", duration).
		Int("total_assigned", assigned).
		Int("total_required", required).
		Msg("排班生成完成")
}
