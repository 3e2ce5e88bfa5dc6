package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds runtime configuration for the sitecrew API service.
type Config struct {
	Port        string `env:"PORT,default=3000"`
	DatabaseDSN string `env:"DATABASE_DSN,required"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	Domain      string `env:"DOMAIN"`
	AppURL      string `env:"APP_URL,default=http://localhost:5173"`

	// Delivery sinks; empty URL disables the sink.
	EmailAPIURL   string `env:"EMAIL_API_URL"`
	EmailAPIKey   string `env:"EMAIL_API_KEY"`
	EmailFrom     string `env:"EMAIL_FROM"`
	PushAPIURL    string `env:"PUSH_API_URL"`
	PushSecretKey string `env:"PUSH_SECRET_KEY"`

	SinkTimeout      time.Duration `env:"SINK_TIMEOUT,default=10s"`
	ReminderInterval time.Duration `env:"REMINDER_INTERVAL,default=1h"`
	ReminderHorizon  time.Duration `env:"REMINDER_HORIZON,default=72h"`
}

// Load returns a Config populated from environment variables.
func Load(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
