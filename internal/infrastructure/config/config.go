package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Mongo  MongoConfig
	Redis  RedisConfig
	SMTP   SMTPConfig
	Google GoogleConfig
	Token  TokenConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=medibook"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT, default=587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"`
}

type GoogleConfig struct {
	// ClientID is the OAuth audience that Google ID tokens must be minted for.
	ClientID string `env:"GOOGLE_CLIENT_ID"`
}

type TokenConfig struct {
	JWTSecret       string        `env:"JWT_SECRET"`
	SessionTTL      time.Duration `env:"SESSION_TTL,            default=24h"`
	VerificationTTL time.Duration `env:"VERIFICATION_TOKEN_TTL, default=24h"`
	ResetTTL        time.Duration `env:"RESET_TOKEN_TTL,        default=10m"`
}

// Load reads configuration from environment variables using go-envconfig.
// Configuration is loaded before the logger exists, so failures panic with
// the raw cause.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return &cfg
}
