package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"

	"github.com/ilyakaznacheev/cleanenv"
)

type (
	Config struct {
		App     `json:"app"     toml:"app"`
		HTTP    `json:"http"    toml:"http"`
		DB      `json:"db"      toml:"db"`
		Log     `json:"logger"  toml:"logger"`
		Redis   `json:"redis"   toml:"redis"`
		Kafka   `json:"kafka"   toml:"kafka"`
		Workers `json:"workers" toml:"workers"`
	}

	App struct {
		Name        string `json:"name"        toml:"name"        env:"APP_NAME"`
		Environment string `json:"environment" toml:"environment" env:"ENV_NAME" env-default:"dev"`
		Debug       bool   `json:"debug"       toml:"debug"       env:"DEBUG"    env-default:"false"`
		Currency    string `json:"currency"    toml:"currency"    env:"WALLET_CURRENCY" env-default:"INR"`
	}

	HTTP struct {
		Port           string   `json:"port"            toml:"port"            env:"HTTP_PORT" env-default:"8080"`
		AllowedOrigins []string `json:"allowed_origins" toml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-separator:","`
	}

	DB struct {
		DatabaseURL       string `json:"database_url"        toml:"database_url"        env:"DATABASE_URL" env-required:"true"`
		PoolMax           int32  `json:"pool_max"            toml:"pool_max"            env:"PG_POOL_MAX" env-default:"10"`
		ConnectTimeout    int    `json:"connect_timeout"     toml:"connect_timeout"     env:"PG_POOL_CONN_TIMEOUT" env-default:"5"`
		HealthCheckPeriod int    `json:"health_check_period" toml:"health_check_period" env:"PG_POOL_HEALTHCHECK" env-default:"1"`
		MigrationsPath    string `json:"migrations_path"     toml:"migrations_path"     env:"MIGRATIONS_PATH"`
	}

	Log struct {
		Level slog.Level `json:"level" toml:"level" env:"LOG_LEVEL"`
	}

	// Redis is optional. An empty address disables the settings cache.
	Redis struct {
		Addr        string `json:"addr"         toml:"addr"         env:"REDIS_ADDR"`
		Password    string `json:"password"     toml:"password"     env:"REDIS_PASSWORD"`
		DB          int    `json:"db"           toml:"db"           env:"REDIS_DB" env-default:"0"`
		SettingsTTL int    `json:"settings_ttl" toml:"settings_ttl" env:"REDIS_SETTINGS_TTL" env-default:"60"`
	}

	// Kafka is optional. Without brokers events are only logged.
	Kafka struct {
		Brokers      []string `json:"brokers"       toml:"brokers"       env:"KAFKA_BROKERS" env-separator:","`
		Topic        string   `json:"topic"         toml:"topic"         env:"KAFKA_TOPIC" env-default:"investment.created"`
		MaxAttempts  int      `json:"max_attempts"  toml:"max_attempts"  env:"KAFKA_MAX_ATTEMPTS" env-default:"3"`
		WriteTimeout int      `json:"write_timeout" toml:"write_timeout" env:"KAFKA_WRITE_TIMEOUT" env-default:"5"`
	}

	Workers struct {
		DisclosureRefreshSchedule string `json:"disclosure_refresh_schedule" toml:"disclosure_refresh_schedule" env:"DISCLOSURE_REFRESH_SCHEDULE" env-default:"@every 1m"`
		DisclosureRefreshTimeout  int    `json:"disclosure_refresh_timeout"  toml:"disclosure_refresh_timeout"  env:"DISCLOSURE_REFRESH_TIMEOUT" env-default:"30"`
	}
)

func LoadConfig() (*Config, error) {
	cfg := &Config{}

	_, b, _, _ := runtime.Caller(0)
	basePath := filepath.Dir(b)

	configTomlPath := filepath.Join(basePath, "config.toml")
	err := cleanenv.ReadConfig(configTomlPath, cfg)
	if err != nil {
		configJsonPath := filepath.Join(basePath, "config.json")
		err = cleanenv.ReadConfig(configJsonPath, cfg)
		if err != nil {
			return nil, fmt.Errorf("config error: %w", err)
		}
	}

	err = cleanenv.ReadEnv(cfg)
	if err != nil {
		return nil, fmt.Errorf("env read error: %w", err)
	}

	return cfg, nil
}
