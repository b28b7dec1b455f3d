package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Ethereal  EtherealConfig  `mapstructure:"ethereal"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type AuthConfig struct {
	// AdminKey protects the project CRUD surface. Empty disables it entirely.
	AdminKey string `mapstructure:"admin_key"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type EtherealConfig struct {
	BaseURL            string `mapstructure:"base_url"`
	TimeoutMs          int    `mapstructure:"timeout_ms"`
	PointsTTLSeconds   int    `mapstructure:"points_ttl_seconds"`
	FillsTTLSeconds    int    `mapstructure:"fills_ttl_seconds"`
	PositionTTLSeconds int    `mapstructure:"position_ttl_seconds"`
	FillsLimit         int    `mapstructure:"fills_limit"`
}

type RateLimitConfig struct {
	QPS   float64 `mapstructure:"qps"`
	Burst int     `mapstructure:"burst"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// Environment variables support
	// e.g. BOTGATE_DATABASE_DSN
	viper.SetEnvPrefix("botgate")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")
	viper.SetDefault("auth.admin_key", "")
	viper.SetDefault("ethereal.base_url", "https://api.ethereal.trade")
	viper.SetDefault("ethereal.timeout_ms", 5000)
	viper.SetDefault("ethereal.points_ttl_seconds", 300)
	viper.SetDefault("ethereal.fills_ttl_seconds", 60)
	viper.SetDefault("ethereal.position_ttl_seconds", 60)
	viper.SetDefault("ethereal.fills_limit", 50)
	viper.SetDefault("rate_limit.qps", 10)
	viper.SetDefault("rate_limit.burst", 20)
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
