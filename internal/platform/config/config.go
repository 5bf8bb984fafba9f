// Package config loads storycore runtime settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the server and CLI runtime configuration.
type Config struct {
	HTTPAddr        string        `env:"STORYCORE_HTTP_ADDR" envDefault:":8080"`
	GRPCAddr        string        `env:"STORYCORE_GRPC_ADDR" envDefault:":9090"`
	DBPath          string        `env:"STORYCORE_DB_PATH" envDefault:"storycore.db"`
	PresetDir       string        `env:"STORYCORE_PRESET_DIR" envDefault:"configs"`
	WatchPresets    bool          `env:"STORYCORE_WATCH_PRESETS" envDefault:"true"`
	LogLevel        string        `env:"STORYCORE_LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"STORYCORE_LOG_FORMAT" envDefault:"json"`
	MaxBodyBytes    int64         `env:"STORYCORE_MAX_BODY_BYTES" envDefault:"1048576"`
	ShutdownTimeout time.Duration `env:"STORYCORE_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads Config from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
