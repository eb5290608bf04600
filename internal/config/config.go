package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Config 导入服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig

	// 导入特定配置
	Ingest struct {
		UploadDir    string        // 监视/接收上传文件的目录
		WatchEnabled bool          // 是否启动目录监视
		PollInterval time.Duration // 目录扫描间隔
		SettleDelay  time.Duration // 静置等待：新文件落盘稳定前不读取
	}

	HTTP struct {
		ListenAddr string
	}

	Notify struct {
		WebhookURL string // 为空时不发送通知
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 从环境变量加载配置（带默认值）
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "oeeprod")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.Ingest.UploadDir = getEnv("UPLOAD_DIR", "./uploads")
	cfg.Ingest.WatchEnabled = getEnv("WATCH_ENABLED", "true") == "true"
	cfg.Ingest.PollInterval = time.Duration(getEnvInt("WATCH_POLL_INTERVAL_MS", 2000)) * time.Millisecond
	cfg.Ingest.SettleDelay = time.Duration(getEnvInt("WATCH_SETTLE_DELAY_MS", 2000)) * time.Millisecond

	cfg.HTTP.ListenAddr = getEnv("HTTP_LISTEN_ADDR", ":8086")

	cfg.Notify.WebhookURL = getEnv("NOTIFY_WEBHOOK_URL", "")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
