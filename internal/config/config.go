// Package config 提供配置管理
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/paiban/dutyplan/pkg/calendar"
	"github.com/paiban/dutyplan/pkg/diagnostics"
	"github.com/paiban/dutyplan/pkg/engine"
	"github.com/paiban/dutyplan/pkg/logger"
	"github.com/paiban/dutyplan/pkg/requirement"
	"github.com/paiban/dutyplan/pkg/scheduler/solver"
)

// Config 应用配置
type Config struct {
	App         AppConfig         `yaml:"app" toml:"app"`
	Database    DatabaseConfig    `yaml:"database" toml:"database"`
	API         APIConfig         `yaml:"api" toml:"api"`
	Solver      SolverConfig      `yaml:"solver" toml:"solver"`
	Requirement RequirementConfig `yaml:"requirement" toml:"requirement"`
	Calendar    CalendarConfig    `yaml:"calendar" toml:"calendar"`
	Metrics     MetricsConfig     `yaml:"metrics" toml:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name      string `yaml:"name" toml:"name" validate:"required"`
	Env       string `yaml:"env" toml:"env" validate:"oneof=development test production"`
	Port      int    `yaml:"port" toml:"port" validate:"min=1,max=65535"`
	LogLevel  string `yaml:"log_level" toml:"log_level" validate:"oneof=debug info warn warning error fatal"`
	LogFormat string `yaml:"log_format" toml:"log_format" validate:"oneof=json console"`
}

// DatabaseConfig 数据库配置，未启用时不保存运行记录
type DatabaseConfig struct {
	Enabled         bool     `yaml:"enabled" toml:"enabled"`
	Host            string   `yaml:"host" toml:"host" validate:"required_if=Enabled true"`
	Port            int      `yaml:"port" toml:"port" validate:"min=0,max=65535"`
	Name            string   `yaml:"name" toml:"name"`
	User            string   `yaml:"user" toml:"user"`
	Password        string   `yaml:"password" toml:"password"`
	SSLMode         string   `yaml:"ssl_mode" toml:"ssl_mode"`
	MaxOpenConns    int      `yaml:"max_open_conns" toml:"max_open_conns" validate:"min=0"`
	MaxIdleConns    int      `yaml:"max_idle_conns" toml:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime" toml:"conn_max_lifetime"`
	Retention       Duration `yaml:"retention" toml:"retention"` // 运行记录保留期，0 表示不清理
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// APIConfig API配置
type APIConfig struct {
	RateLimit int        `yaml:"rate_limit" toml:"rate_limit" validate:"min=0"` // 每分钟请求数，0 表示不限
	Timeout   Duration   `yaml:"timeout" toml:"timeout"`
	CORS      CORSConfig `yaml:"cors" toml:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	Enabled bool     `yaml:"enabled" toml:"enabled"`
	Origins []string `yaml:"origins" toml:"origins"`
}

// SolverConfig 排班引擎配置
type SolverConfig struct {
	Algorithm        string   `yaml:"algorithm" toml:"algorithm" validate:"oneof=mip lexsearch greedy"`
	TimeLimit        Duration `yaml:"time_limit" toml:"time_limit"`
	Workers          int      `yaml:"workers" toml:"workers" validate:"min=1,max=256"`
	Seed             int64    `yaml:"seed" toml:"seed"`
	PlateauThreshold int      `yaml:"plateau_threshold" toml:"plateau_threshold" validate:"min=0"`
	MaxKicks         int      `yaml:"max_kicks" toml:"max_kicks" validate:"min=0"`
	MIPMaxVars       int      `yaml:"mip_max_vars" toml:"mip_max_vars" validate:"min=0"`
	MIPShare         float64  `yaml:"mip_share" toml:"mip_share" validate:"min=0,max=1"`
	DefaultRequired  int      `yaml:"default_required" toml:"default_required" validate:"min=1"`
	PrimaryFacility  string   `yaml:"primary_facility" toml:"primary_facility" validate:"required"`
	Shortfall        string   `yaml:"shortfall" toml:"shortfall" validate:"oneof=reject partial"`
}

// RequirementConfig 轮转类别需求表，为空时使用内置表
type RequirementConfig struct {
	Classes map[string]int `yaml:"classes" toml:"classes" validate:"dive,min=0"`
}

// CalendarConfig 节假日配置
type CalendarConfig struct {
	Holidays []calendar.HolidayEntry `yaml:"holidays" toml:"holidays" validate:"dive"`
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path" validate:"required_if=Enabled true"`
}

// Duration 支持 "10s" 形式的时长
type Duration struct {
	time.Duration
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText 实现 encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		App: AppConfig{
			Name:      "dutyplan",
			Env:       "development",
			Port:      7012,
			LogLevel:  "info",
			LogFormat: "console",
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "dutyplan",
			User:            "dutyplan",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: Duration{5 * time.Minute},
		},
		API: APIConfig{
			RateLimit: 100,
			Timeout:   Duration{30 * time.Second},
			CORS:      CORSConfig{Enabled: true, Origins: []string{"*"}},
		},
		Solver: SolverConfig{
			Algorithm:        "mip",
			TimeLimit:        Duration{10 * time.Second},
			Workers:          8,
			Seed:             1,
			PlateauThreshold: 2000,
			MaxKicks:         500,
			MIPMaxVars:       20000,
			MIPShare:         0.5,
			DefaultRequired:  2,
			PrimaryFacility:  engine.DefaultPrimaryFacility,
			Shortfall:        string(diagnostics.ShortfallReject),
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load 加载配置：默认值 → 配置文件（.yaml/.yml/.toml，可为空）→ 环境变量，最后校验
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile 按扩展名解码配置文件
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取配置文件失败: %w", err)
	}
	return Decode(path, data, c)
}

// Decode 按文件扩展名解码 YAML 或 TOML，供配置和请求文件共用
func Decode(path string, data []byte, v interface{}) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("解析 YAML %s 失败: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("解析 TOML %s 失败: %w", path, err)
		}
	default:
		return fmt.Errorf("不支持的配置文件格式: %s", path)
	}
	return nil
}

// applyEnv 环境变量覆盖，未设置的变量保持原值
func (c *Config) applyEnv() {
	c.App.Name = getEnv("APP_NAME", c.App.Name)
	c.App.Env = getEnv("APP_ENV", c.App.Env)
	c.App.Port = getEnvInt("APP_PORT", c.App.Port)
	c.App.LogLevel = getEnv("APP_LOG_LEVEL", c.App.LogLevel)
	c.App.LogFormat = getEnv("APP_LOG_FORMAT", c.App.LogFormat)

	c.Database.Enabled = getEnvBool("DB_ENABLED", c.Database.Enabled)
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("DB_PORT", c.Database.Port)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.SSLMode = getEnv("DB_SSL_MODE", c.Database.SSLMode)
	c.Database.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", c.Database.MaxIdleConns)
	c.Database.ConnMaxLifetime.Duration = getEnvDuration("DB_CONN_MAX_LIFETIME", c.Database.ConnMaxLifetime.Duration)
	c.Database.Retention.Duration = getEnvDuration("DB_RETENTION", c.Database.Retention.Duration)

	c.API.RateLimit = getEnvInt("API_RATE_LIMIT", c.API.RateLimit)
	c.API.Timeout.Duration = getEnvDuration("API_TIMEOUT", c.API.Timeout.Duration)
	c.API.CORS.Enabled = getEnvBool("API_CORS_ENABLED", c.API.CORS.Enabled)

	c.Solver.Algorithm = getEnv("SOLVER_ALGORITHM", c.Solver.Algorithm)
	c.Solver.TimeLimit.Duration = getEnvDuration("SOLVER_TIME_LIMIT", c.Solver.TimeLimit.Duration)
	c.Solver.Workers = getEnvInt("SOLVER_WORKERS", c.Solver.Workers)
	c.Solver.Seed = int64(getEnvInt("SOLVER_SEED", int(c.Solver.Seed)))
	c.Solver.DefaultRequired = getEnvInt("SOLVER_DEFAULT_REQUIRED", c.Solver.DefaultRequired)
	c.Solver.PrimaryFacility = getEnv("SOLVER_PRIMARY_FACILITY", c.Solver.PrimaryFacility)
	c.Solver.Shortfall = getEnv("SOLVER_SHORTFALL", c.Solver.Shortfall)

	c.Metrics.Enabled = getEnvBool("METRICS_ENABLED", c.Metrics.Enabled)
	c.Metrics.Path = getEnv("METRICS_PATH", c.Metrics.Path)
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("配置无效: %w", err)
	}
	if c.Solver.TimeLimit.Duration <= 0 {
		return fmt.Errorf("配置无效: solver.time_limit 必须为正")
	}
	if _, err := calendar.NewStaticHolidays(c.Calendar.Holidays); err != nil {
		return fmt.Errorf("配置无效: %w", err)
	}
	return nil
}

// EngineConfig 转换为引擎配置
func (c *Config) EngineConfig() engine.Config {
	policy := requirement.DefaultPolicy(c.Solver.DefaultRequired)
	if len(c.Requirement.Classes) > 0 {
		policy = requirement.Policy{Default: c.Solver.DefaultRequired, Classes: c.Requirement.Classes}
	}
	return engine.Config{
		Solver: solver.Options{
			TimeLimit:        c.Solver.TimeLimit.Duration,
			Workers:          c.Solver.Workers,
			Seed:             c.Solver.Seed,
			PlateauThreshold: c.Solver.PlateauThreshold,
			MaxKicks:         c.Solver.MaxKicks,
			MIPMaxVars:       c.Solver.MIPMaxVars,
			MIPShare:         c.Solver.MIPShare,
		},
		SolverName:      c.Solver.Algorithm,
		DefaultRequired: c.Solver.DefaultRequired,
		PrimaryFacility: c.Solver.PrimaryFacility,
		Shortfall:       diagnostics.ShortfallPolicy(c.Solver.Shortfall),
		Requirement:     policy,
	}
}

// LoggerConfig 转换为日志配置
func (c *Config) LoggerConfig() logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = c.App.LogLevel
	cfg.Format = c.App.LogFormat
	return cfg
}

// Holidays 构造节假日表
func (c *Config) Holidays() (*calendar.StaticHolidays, error) {
	return calendar.NewStaticHolidays(c.Calendar.Holidays)
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// 辅助函数
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
