package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Bus kinds accepted by realtime.bus.
const (
	BusNone  = "none"
	BusRedis = "redis"
	BusNATS  = "nats"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                   string
	AppEnv                    string
	AppPort                   string
	DatabaseDriver            string
	DatabaseURL               string
	RedisURL                  string
	NATSURL                   string
	RealtimeChannel           string
	RealtimeBus               string
	TypingTimeout             time.Duration
	SendBuffer                int
	JWTSecret                 string
	MessageRateLimitPerSecond int
	AllowOrigins              string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("KONEKT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Konekt API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("realtime.channel", "konekt:realtime")
	v.SetDefault("realtime.bus", BusNone)
	v.SetDefault("realtime.typing_timeout", "3s")
	v.SetDefault("realtime.send_buffer", 32)
	v.SetDefault("ratelimit.messages_per_second", 10)
	v.SetDefault("cors.allow_origins", "*")

	typingTimeout, err := time.ParseDuration(v.GetString("realtime.typing_timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid typing timeout: %w", err)
	}
	if typingTimeout <= 0 {
		return Config{}, fmt.Errorf("typing timeout must be positive")
	}

	cfg := Config{
		AppName:                   v.GetString("app.name"),
		AppEnv:                    v.GetString("app.env"),
		AppPort:                   v.GetString("app.port"),
		DatabaseDriver:            strings.ToLower(strings.TrimSpace(v.GetString("database.driver"))),
		DatabaseURL:               v.GetString("database.url"),
		RedisURL:                  v.GetString("redis.url"),
		NATSURL:                   v.GetString("nats.url"),
		RealtimeChannel:           v.GetString("realtime.channel"),
		RealtimeBus:               strings.ToLower(strings.TrimSpace(v.GetString("realtime.bus"))),
		TypingTimeout:             typingTimeout,
		SendBuffer:                v.GetInt("realtime.send_buffer"),
		JWTSecret:                 v.GetString("jwt.secret"),
		MessageRateLimitPerSecond: v.GetInt("ratelimit.messages_per_second"),
		AllowOrigins:              v.GetString("cors.allow_origins"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	switch cfg.RealtimeBus {
	case BusNone:
	case BusRedis:
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("redis url must be provided for the redis bus")
		}
	case BusNATS:
		if cfg.NATSURL == "" {
			return Config{}, fmt.Errorf("nats url must be provided for the nats bus")
		}
	default:
		return Config{}, fmt.Errorf("unsupported realtime bus %q", cfg.RealtimeBus)
	}

	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 32
	}
	if cfg.MessageRateLimitPerSecond <= 0 {
		cfg.MessageRateLimitPerSecond = 10
	}

	return cfg, nil
}
