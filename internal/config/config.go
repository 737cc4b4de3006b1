// Package config loads and validates the service configuration.
package config

import (
	"fmt"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port" validate:"gt=0,lte=65535"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host                   string            `mapstructure:"host" validate:"required"`
	Port                   int               `mapstructure:"port" validate:"gt=0,lte=65535"`
	Database               string            `mapstructure:"database" validate:"required"`
	Username               string            `mapstructure:"username" validate:"required"`
	Password               string            `mapstructure:"password"`
	TLS                    bool              `mapstructure:"tls"`
	Params                 map[string]string `mapstructure:"params"`
	MaxOpenConns           int               `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns           int               `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetimeSeconds int               `mapstructure:"conn_max_lifetime_seconds" validate:"gte=0"`
}

func (c DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeSeconds) * time.Second
}

// SchedulerConfig tunes the rating processor and review submissions.
type SchedulerConfig struct {
	GraduationThreshold int `mapstructure:"graduation_threshold" validate:"gte=0"`
	RelearningStepDays  int `mapstructure:"relearning_step_days" validate:"gte=0"`
	LockTimeoutSeconds  int `mapstructure:"lock_timeout_seconds" validate:"gt=0"`
}

func (c SchedulerConfig) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutSeconds) * time.Second
}

type ConfigLoader struct {
	viper      *viper.Viper
	validator  *validator.Validate
	translator ut.Translator
}

// NewConfigLoader creates a loader for the given config file. When configFile
// is empty, it searches for config.yaml in the current directory and
// $HOME/.config/memora.
func NewConfigLoader(configFile string) (*ConfigLoader, error) {
	validate, trans, err := newValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create new validator: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/memora")
	}

	return &ConfigLoader{
		viper:      v,
		validator:  validate,
		translator: trans,
	}, nil
}

func (loader *ConfigLoader) Load() (*Config, error) {
	v := loader.viper

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.database", "memora")
	v.SetDefault("database.username", "memora")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime_seconds", 300)
	v.SetDefault("scheduler.graduation_threshold", 2)
	v.SetDefault("scheduler.relearning_step_days", 1)
	v.SetDefault("scheduler.lock_timeout_seconds", 5)

	// The database password is read from the environment only, so it never
	// has to live in a config file.
	if err := v.BindEnv("database.password", "DB_PASSWORD"); err != nil {
		return nil, fmt.Errorf("failed to bind DB_PASSWORD environment variable: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("configuration file found but could not be read: %w. Please check the file format and permissions", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}

	if err := loader.validator.Struct(cfg); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		errorMsgs := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			errorMsgs = append(errorMsgs, e.Translate(loader.translator))
		}
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errorMsgs, ", "))
	}

	return &cfg, nil
}
