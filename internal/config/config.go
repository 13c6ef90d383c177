// Package config 提供配置管理
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/paiban/roster/pkg/model"
)

// Config 应用配置
type Config struct {
	App       AppConfig       `yaml:"app"`
	Database  DatabaseConfig  `yaml:"database"`
	API       APIConfig       `yaml:"api"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Store     StoreConfig     `yaml:"store"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name      string `yaml:"name"`
	Env       string `yaml:"env"`
	Port      int    `yaml:"port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	// SlowQuery 超过该耗时的语句记为慢查询
	SlowQuery time.Duration `yaml:"slow_query"`
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
	Timeout      time.Duration `yaml:"timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

// SchedulerConfig 排班引擎配置
type SchedulerConfig struct {
	Workers         int           `yaml:"workers"`
	Timeout         time.Duration `yaml:"timeout"`
	Tolerance       int           `yaml:"tolerance"`
	BacktrackDepth  int           `yaml:"backtrack_depth"`
	MaxRepairSteps  int           `yaml:"max_repair_steps"`
	MaxBalanceSwaps int           `yaml:"max_balance_swaps"`
	Strategies      []string      `yaml:"strategies"`
}

// Rules 返回叠加了引擎参数的默认规则，作为输入未填写字段的取值
// 配置为 0 的参数保留内置默认值
func (c *SchedulerConfig) Rules() model.Rules {
	r := model.DefaultRules()
	if c.Tolerance > 0 {
		r.Tolerance = c.Tolerance
	}
	if c.BacktrackDepth > 0 {
		r.BacktrackDepth = c.BacktrackDepth
	}
	if c.MaxRepairSteps > 0 {
		r.MaxRepairSteps = c.MaxRepairSteps
	}
	if c.MaxBalanceSwaps > 0 {
		r.MaxBalanceSwaps = c.MaxBalanceSwaps
	}
	return r
}

// StoreConfig 排班存储配置
type StoreConfig struct {
	// ChunkBytes 单行排班数据上限，超过则拆分为多块
	ChunkBytes int `yaml:"chunk_bytes"`
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load 从环境变量加载配置
// files 为可选的 .env 文件，不存在时忽略；已存在的环境变量不会被覆盖
func Load(files ...string) (*Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("加载 %s 失败: %w", f, err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Name:      getEnv("APP_NAME", "roster"),
			Env:       getEnv("APP_ENV", "development"),
			Port:      getEnvInt("APP_PORT", 7012),
			LogLevel:  getEnv("APP_LOG_LEVEL", "info"),
			LogFormat: getEnv("APP_LOG_FORMAT", "console"),
		},
		Database: DatabaseConfig{
			Enabled:         getEnvBool("DB_ENABLED", false),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "roster"),
			User:            getEnv("DB_USER", "roster"),
			Password:        getEnv("DB_PASSWORD", ""),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			SlowQuery:       getEnvDuration("DB_SLOW_QUERY", 100*time.Millisecond),
		},
		API: APIConfig{
			Timeout:      getEnvDuration("API_TIMEOUT", 60*time.Second),
			MaxBodyBytes: int64(getEnvInt("API_MAX_BODY_BYTES", 4<<20)),
		},
		Scheduler: SchedulerConfig{
			Workers:         getEnvInt("SCHEDULER_WORKERS", 4),
			Timeout:         getEnvDuration("SCHEDULER_TIMEOUT", 30*time.Second),
			Tolerance:       getEnvInt("SCHEDULER_TOLERANCE", 0),
			BacktrackDepth:  getEnvInt("SCHEDULER_BACKTRACK_DEPTH", 3),
			MaxRepairSteps:  getEnvInt("SCHEDULER_MAX_REPAIR_STEPS", 500),
			MaxBalanceSwaps: getEnvInt("SCHEDULER_MAX_BALANCE_SWAPS", 200),
			Strategies:      getEnvList("SCHEDULER_STRATEGIES", []string{"v1", "v2", "v3", "v4"}),
		},
		Store: StoreConfig{
			ChunkBytes: getEnvInt("STORE_CHUNK_BYTES", 256<<10),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("APP_PORT 超出范围: %d", c.App.Port)
	}
	if c.Scheduler.Workers < 1 {
		return fmt.Errorf("SCHEDULER_WORKERS 至少为 1")
	}
	if len(c.Scheduler.Strategies) == 0 {
		return fmt.Errorf("SCHEDULER_STRATEGIES 不能为空")
	}
	if c.Store.ChunkBytes < 1024 {
		return fmt.Errorf("STORE_CHUNK_BYTES 至少为 1024")
	}
	return nil
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
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

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
