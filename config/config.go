package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

const envPrefix = "TA"

type Config struct {
	Mode   string `mapstructure:"mode"`
	Server struct {
		HTTPPort        string        `mapstructure:"httpPort"`
		Timeout         time.Duration `mapstructure:"timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	} `mapstructure:"server"`
	Metrics struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"metrics"`
	JWT struct {
		Secret       string `mapstructure:"secret"`
		ExpirationMs int64  `mapstructure:"expirationMs"`
		Issuer       string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`
	Password struct {
		BcryptCost int `mapstructure:"bcryptCost"`
	} `mapstructure:"password"`
	Storage struct {
		Driver string `mapstructure:"driver"`
	} `mapstructure:"storage"`
	Repositories struct {
		Postgres struct {
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMode           string `mapstructure:"sslmode"`
			MaxConns          int32  `mapstructure:"maxConns"`
			MaxConnWaitingSec int    `mapstructure:"maxConnWaitingSec"`
		} `mapstructure:"postgres"`
		Redis struct {
			URL          string `mapstructure:"url"`
			PoolSize     int    `mapstructure:"poolSize"`
			MinIdleConns int    `mapstructure:"minIdleConns"`
			KeyPrefix    string `mapstructure:"keyPrefix"`
		} `mapstructure:"redis"`
	} `mapstructure:"repositories"`
	Security struct {
		SealingSecret string `mapstructure:"sealingSecret"`
		AuditBuffer   int    `mapstructure:"auditBuffer"`
	} `mapstructure:"security"`
	CORS struct {
		AllowedOrigins []string `mapstructure:"allowedOrigins"`
	} `mapstructure:"cors"`
}

// TokenTTL converts jwt.expirationMs to a duration.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWT.ExpirationMs) * time.Millisecond
}

// IsDevelopment reports whether mode selects the development logger and defaults.
func (c *Config) IsDevelopment() bool {
	return c.Mode == "" || strings.EqualFold(c.Mode, "development")
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWT.Secret) == "" {
		errs = append(errs, errors.New("jwt.secret must be set"))
	}
	if c.JWT.ExpirationMs <= 0 {
		errs = append(errs, errors.New("jwt.expirationMs must be positive"))
	}
	switch c.Storage.Driver {
	case "postgres", "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not one of postgres, redis, memory", c.Storage.Driver))
	}
	if strings.TrimSpace(c.Security.SealingSecret) == "" {
		errs = append(errs, errors.New("security.sealingSecret must be set"))
	}
	return errors.Join(errs...)
}

// InitConfig loads .env (if present), then config.yml from the usual paths or the
// embedded copy, then TA_* environment overrides (TA_JWT_SECRET sets jwt.secret).
func InitConfig() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", slog.Any("error", err))
	}

	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")
	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		slog.Warn("Failed to find file-based config, falling back to embedded config", slog.Any("error", err))
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return config, nil
}
