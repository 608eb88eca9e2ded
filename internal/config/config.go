package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Redis     RedisConfig
	NATS      NATSConfig
	JWT       JWTConfig
	Log       LogConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Economy   EconomyConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxConns       int32
	MigrationsPath string
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host        string
	Port        int
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NATSConfig is optional; an empty URL disables event publishing.
type NATSConfig struct {
	URL          string
	StreamMaxAge time.Duration
}

type JWTConfig struct {
	AccessSecret string
	Issuer       string
}

type LogConfig struct {
	Level  string
	Format string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
}

// EconomyConfig carries the tunables of the token economy. Free-tier daily
// limits override the built-in free plan.
type EconomyConfig struct {
	Timezone           string
	FreeChatsPerDay    int
	FreeUploadsPerDay  int
	ChatCost           int
	UploadCost         int
	DueCardsLimit      int
	SubscriptionLength time.Duration
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		DB: DBConfig{
			Host:           k.String("db.host"),
			Port:           k.Int("db.port"),
			User:           k.String("db.user"),
			Password:       k.String("db.password"),
			Name:           k.String("db.name"),
			SSLMode:        k.String("db.sslmode"),
			MaxConns:       int32(k.Int("db.max.conns")),
			MigrationsPath: k.String("db.migrations.path"),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
			PoolSize: k.Int("redis.pool.size"),
		},
		NATS: NATSConfig{
			URL: k.String("nats.url"),
		},
		JWT: JWTConfig{
			AccessSecret: k.String("jwt.access.secret"),
			Issuer:       k.String("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
		RateLimit: RateLimitConfig{
			MaxRequests: k.Int("ratelimit.max.requests"),
		},
		Economy: EconomyConfig{
			Timezone:          k.String("economy.timezone"),
			FreeChatsPerDay:   intOr(k, "economy.free.chats.per.day", 10),
			FreeUploadsPerDay: intOr(k, "economy.free.uploads.per.day", 5),
			ChatCost:          intOr(k, "economy.chat.cost", 3),
			UploadCost:        intOr(k, "economy.upload.cost", 3),
			DueCardsLimit:     intOr(k, "economy.due.cards.limit", 20),
		},
	}

	if origins := k.String("cors.allowed.origins"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORS.AllowedOrigins = append(cfg.CORS.AllowedOrigins, o)
			}
		}
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "impify"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "impify"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.DB.MigrationsPath == "" {
		cfg.DB.MigrationsPath = "migrations"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "impify"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.RateLimit.MaxRequests == 0 {
		cfg.RateLimit.MaxRequests = 120
	}
	if cfg.Economy.Timezone == "" {
		cfg.Economy.Timezone = "Asia/Kolkata"
	}

	// Parse durations
	windowStr := k.String("ratelimit.window")
	if windowStr == "" {
		windowStr = "1m"
	}
	cfg.RateLimit.Window, err = time.ParseDuration(windowStr)
	if err != nil {
		return nil, fmt.Errorf("parsing rate limit window: %w", err)
	}

	maxAgeStr := k.String("nats.stream.max.age")
	if maxAgeStr == "" {
		maxAgeStr = "720h"
	}
	cfg.NATS.StreamMaxAge, err = time.ParseDuration(maxAgeStr)
	if err != nil {
		return nil, fmt.Errorf("parsing nats stream max age: %w", err)
	}

	dialStr := k.String("redis.dial.timeout")
	if dialStr == "" {
		dialStr = "2s"
	}
	cfg.Redis.DialTimeout, err = time.ParseDuration(dialStr)
	if err != nil {
		return nil, fmt.Errorf("parsing redis dial timeout: %w", err)
	}

	subLenStr := k.String("economy.subscription.length")
	if subLenStr == "" {
		subLenStr = "720h"
	}
	cfg.Economy.SubscriptionLength, err = time.ParseDuration(subLenStr)
	if err != nil {
		return nil, fmt.Errorf("parsing subscription length: %w", err)
	}

	return cfg, nil
}

// intOr distinguishes an explicit zero from an unset key so a limit can be
// configured down to 0.
func intOr(k *koanf.Koanf, key string, def int) int {
	if !k.Exists(key) {
		return def
	}
	return k.Int(key)
}
