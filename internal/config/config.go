package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config 应用配置，全部来自环境变量（可通过 .env 文件提供）
type Config struct {
	Port              string
	DatabaseURL       string
	RedisURL          string // 为空时使用进程内 LRU 作为举报去重缓存
	SessionSecret     string
	JWTSecret         string
	Debug             bool
	FeedCacheTTL      time.Duration // 0 表示不缓存 feed
	ReportWindow      time.Duration
	ReconcileInterval time.Duration
	AdminEmail        string
	AdminPassword     string
}

// Load 读取 .env 与环境变量
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, reading config from environment")
	}

	return Config{
		Port:              getenv("PORT", "8080"),
		DatabaseURL:       getenv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=forum port=5432 sslmode=disable TimeZone=UTC"),
		RedisURL:          os.Getenv("REDIS_URL"),
		SessionSecret:     getenv("SESSION_SECRET", "secret_key_change_me"),
		JWTSecret:         getenv("JWT_SECRET", "jwt_secret_change_me"),
		Debug:             getenv("DEBUG", "false") == "true",
		FeedCacheTTL:      getDuration("FEED_CACHE_TTL", 30*time.Second),
		ReportWindow:      getDuration("REPORT_WINDOW", 24*time.Hour),
		ReconcileInterval: getDuration("RECONCILE_INTERVAL", 24*time.Hour),
		AdminEmail:        os.Getenv("ADMIN_EMAIL"),
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
	}
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// getDuration 支持 "30s" 这类写法，也兼容纯数字（按秒）
func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Warn().Str("key", key).Str("value", v).Msg("invalid duration, using default")
	return def
}
