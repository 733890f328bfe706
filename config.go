package rythm

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Config is the engine configuration read by LoadConfig.
type Config struct {
	Environment   string `mapstructure:"ENVIRONMENT"`
	ViewsDir      string `mapstructure:"RYTHM_VIEWS_DIR" validate:"required"`
	Dialect       string `mapstructure:"RYTHM_DIALECT" validate:"omitempty,oneof=basic rythm"`
	Compact       bool   `mapstructure:"RYTHM_COMPACT"`
	MaxDepth      int    `mapstructure:"RYTHM_MAX_DEPTH" validate:"gte=0"`
	MaxAttempts   int    `mapstructure:"RYTHM_MAX_ATTEMPTS" validate:"gte=0"`
	CacheBackend  string `mapstructure:"RYTHM_CACHE" validate:"oneof=none memory redis"`
	CacheSize     int    `mapstructure:"RYTHM_CACHE_SIZE" validate:"gte=0"`
	RedisAddress  string `mapstructure:"RYTHM_REDIS_ADDRESS" validate:"required_if=CacheBackend redis"`
	RedisPassword string `mapstructure:"RYTHM_REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"RYTHM_REDIS_DB" validate:"gte=0"`
	RedisPrefix   string `mapstructure:"RYTHM_REDIS_PREFIX"`
}

var configDefaults = map[string]any{
	"ENVIRONMENT":          "production",
	"RYTHM_VIEWS_DIR":      "views",
	"RYTHM_DIALECT":        "",
	"RYTHM_COMPACT":        false,
	"RYTHM_MAX_DEPTH":      0,
	"RYTHM_MAX_ATTEMPTS":   0,
	"RYTHM_CACHE":          "memory",
	"RYTHM_CACHE_SIZE":     0,
	"RYTHM_REDIS_ADDRESS":  "",
	"RYTHM_REDIS_PASSWORD": "",
	"RYTHM_REDIS_DB":       0,
	"RYTHM_REDIS_PREFIX":   "",
}

// LoadConfig reads rythm.env from path. Environment variables override
// the file, and the file is optional.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("rythm")
	v.SetConfigType("env")
	v.AutomaticEnv()
	for k, d := range configDefaults {
		v.SetDefault(k, d)
	}

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	err = config.Validate()
	return
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Options turns the configuration into engine options.
func (c Config) Options(logger zerolog.Logger) []Option {
	opts := []Option{
		WithLogger(logger),
		WithDialect(c.Dialect),
		WithCompact(c.Compact),
		WithMaxDepth(c.MaxDepth),
		WithMaxAttempts(c.MaxAttempts),
	}
	switch c.CacheBackend {
	case "memory":
		opts = append(opts, WithCache(NewMemoryCache(c.CacheSize)))
	case "redis":
		opts = append(opts, WithCache(NewRedisCache(RedisOptions{
			Addr:     c.RedisAddress,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
			Prefix:   c.RedisPrefix,
		})))
	}
	return opts
}

// NewEngineFromConfig creates an engine over c.ViewsDir.
func NewEngineFromConfig(c Config, logger zerolog.Logger) (*Engine, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return NewEngine(c.ViewsDir, c.Options(logger)...), nil
}
