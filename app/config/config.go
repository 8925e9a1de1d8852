package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator"
	"github.com/spf13/viper"

	"authgate/app/auth"
)

// Validate is the shared input validator used by the handlers.
var Validate *validator.Validate

type Config struct {
	ServerPort     int    `mapstructure:"SERVER_PORT"`
	Environment    string `mapstructure:"ENVIRONMENT"`
	PublicURL      string `mapstructure:"PUBLIC_URL"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	JWTExpireDays  int    `mapstructure:"JWT_EXPIRE_DAYS"`
	AuthStrategy   string `mapstructure:"AUTH_STRATEGY"`
	MailgunAPIKey  string `mapstructure:"MAILGUN_API_KEY"`
	MailgunDomain  string `mapstructure:"MAILGUN_DOMAIN"`
	MailgunAPIBase string `mapstructure:"MAILGUN_API_BASE"`

	// Strategy is AuthStrategy resolved once at load time.
	Strategy auth.Strategy `mapstructure:"-"`
}

func Load() (*Config, error) {
	viper.SetDefault("SERVER_PORT", 3_000)
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("PUBLIC_URL", "http://localhost:3000")
	viper.SetDefault("JWT_EXPIRE_DAYS", 30)
	viper.SetDefault("AUTH_STRATEGY", "token")

	viper.AutomaticEnv()

	viper.BindEnv("DATABASE_URL")
	viper.BindEnv("JWT_SECRET")

	viper.BindEnv("MAILGUN_API_KEY")
	viper.BindEnv("MAILGUN_DOMAIN")
	viper.BindEnv("MAILGUN_API_BASE")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/authgate/")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// The process refuses to start without a signing secret or a store.
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing JWT signing secret")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("missing database URL")
	}

	strategy, err := auth.ParseStrategy(cfg.AuthStrategy)
	if err != nil {
		return nil, err
	}
	cfg.Strategy = strategy

	Validate = validator.New()

	return &cfg, nil
}

func (cfg *Config) IsProduction() bool {
	return cfg.Environment == "production"
}

func (cfg *Config) TokenLifetime() time.Duration {
	return time.Duration(cfg.JWTExpireDays) * 24 * time.Hour
}
