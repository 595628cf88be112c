package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ServerPort string

	StoreDriver string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string

	BrokerDriver string
	NameStore    string
	RedisURL     string
	NATSURL      string

	JWTSecret string
	TokenTTL  time.Duration

	GroupQuota int

	SignInRatePerMinute int
	SignInBurst         int

	AllowedOrigins []string
	NameTTL        time.Duration

	LogLevel       string
	LogDevelopment bool
}

func Load() *Config {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("STORE_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "ruang")
	v.SetDefault("DB_PASSWORD", "ruang_dev_password")
	v.SetDefault("DB_NAME", "ruang")
	v.SetDefault("BROKER_DRIVER", "memory")
	v.SetDefault("NAME_STORE", "memory")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("NATS_URL", "nats://localhost:4222")
	v.SetDefault("JWT_SECRET", "dev-secret-change-me")
	v.SetDefault("TOKEN_TTL", "720h")
	v.SetDefault("GROUP_QUOTA", 10)
	v.SetDefault("SIGNIN_RATE_PER_MINUTE", 30)
	v.SetDefault("SIGNIN_BURST", 5)
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("NAME_TTL", "0s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DEVELOPMENT", false)

	return &Config{
		ServerPort:          v.GetString("SERVER_PORT"),
		StoreDriver:         v.GetString("STORE_DRIVER"),
		DBHost:              v.GetString("DB_HOST"),
		DBPort:              v.GetString("DB_PORT"),
		DBUser:              v.GetString("DB_USER"),
		DBPassword:          v.GetString("DB_PASSWORD"),
		DBName:              v.GetString("DB_NAME"),
		BrokerDriver:        v.GetString("BROKER_DRIVER"),
		NameStore:           v.GetString("NAME_STORE"),
		RedisURL:            v.GetString("REDIS_URL"),
		NATSURL:             v.GetString("NATS_URL"),
		JWTSecret:           v.GetString("JWT_SECRET"),
		TokenTTL:            v.GetDuration("TOKEN_TTL"),
		GroupQuota:          v.GetInt("GROUP_QUOTA"),
		SignInRatePerMinute: v.GetInt("SIGNIN_RATE_PER_MINUTE"),
		SignInBurst:         v.GetInt("SIGNIN_BURST"),
		AllowedOrigins:      splitList(v.GetString("ALLOWED_ORIGINS")),
		NameTTL:             v.GetDuration("NAME_TTL"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		LogDevelopment:      v.GetBool("LOG_DEVELOPMENT"),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
