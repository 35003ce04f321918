package config

import (
	"fmt"
	"strings"

	"github.com/invitearena/invitearena/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	API      APIConfig      `mapstructure:"api"`
	Contest  ContestConfig  `mapstructure:"contest"`
	Security SecurityConfig `mapstructure:"security"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// APIConfig 协作方接口配置
type APIConfig struct {
	JWTSecret   string `mapstructure:"jwt_secret"`   // 协作方服务令牌密钥
	ExpireHours int    `mapstructure:"expire_hours"` // 签发令牌有效期
}

// ContestConfig 活动规则配置
type ContestConfig struct {
	ReferralPoints         int    `mapstructure:"referral_points"`          // 每个有效邀请的积分
	TaskPoints             int    `mapstructure:"task_points"`              // 一次性任务积分
	TaskMinDelaySeconds    int    `mapstructure:"task_min_delay_seconds"`   // 任务完成最小间隔（防自动化）
	CodeLength             int    `mapstructure:"code_length"`              // 邀请码长度
	LeaderboardCacheSecond int    `mapstructure:"leaderboard_cache_seconds"` // 排行榜缓存时长
	PublishIntervalSeconds int    `mapstructure:"publish_interval_seconds"` // 排行榜发布周期
	PublishLimit           int    `mapstructure:"publish_limit"`            // 发布榜单条数
	DedupCacheCapacity     int    `mapstructure:"dedup_cache_capacity"`     // 本地去重缓存容量
	WebhookURL             string `mapstructure:"webhook_url"`              // 事件回调地址（传输层）
	WebhookTimeoutMS       int    `mapstructure:"webhook_timeout_ms"`       // 回调超时
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	RegisterRateLimit RateLimitConfig `mapstructure:"register_rate_limit"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// Load 从 config.yml 加载配置
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("./etc")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "contest.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "./db/contest.db")
	viper.SetDefault("database.pool.max_open_conns", 1)
	viper.SetDefault("database.pool.max_idle_conns", 1)
	viper.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	viper.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", "ia")
	viper.SetDefault("queue.enabled", true)
	viper.SetDefault("queue.host", "127.0.0.1")
	viper.SetDefault("queue.port", 6379)
	viper.SetDefault("queue.password", "")
	viper.SetDefault("queue.db", 1)
	viper.SetDefault("queue.concurrency", 10)
	viper.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
	})
	viper.SetDefault("api.jwt_secret", "change-me-in-production")
	viper.SetDefault("api.expire_hours", 720)
	viper.SetDefault("contest.referral_points", 2)
	viper.SetDefault("contest.task_points", 3)
	viper.SetDefault("contest.task_min_delay_seconds", 30)
	viper.SetDefault("contest.code_length", 8)
	viper.SetDefault("contest.leaderboard_cache_seconds", 60)
	viper.SetDefault("contest.publish_interval_seconds", 3600)
	viper.SetDefault("contest.publish_limit", 10)
	viper.SetDefault("contest.dedup_cache_capacity", 10240)
	viper.SetDefault("contest.webhook_url", "")
	viper.SetDefault("contest.webhook_timeout_ms", 3000)
	viper.SetDefault("security.register_rate_limit.window_seconds", 300)
	viper.SetDefault("security.register_rate_limit.max_requests", 20)

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}

	return &cfg
}
