package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variables before they are mapped to keys,
// so TXFEED_API_BASEURL sets api.baseurl.
const EnvPrefix = "TXFEED_"

type Config struct {
	API      APIConfig      `koanf:"api"`
	Feed     FeedConfig     `koanf:"feed"`
	HTTP     HTTPConfig     `koanf:"http"`
	Log      LogConfig      `koanf:"log"`
	Operator OperatorConfig `koanf:"operator"`
}

type APIConfig struct {
	BaseURL string        `koanf:"baseurl"`
	Timeout time.Duration `koanf:"timeout"`
}

type FeedConfig struct {
	Interval time.Duration `koanf:"interval"`
}

type HTTPConfig struct {
	Port string `koanf:"port"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

type OperatorConfig struct {
	Workers int `koanf:"workers"`
}

// In all cases the defaults target a commission service running locally.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"api.baseurl":      "http://localhost:8080/api",
		"api.timeout":      "30s",
		"feed.interval":    "5s",
		"http.port":        "9446",
		"log.level":        "info",
		"operator.workers": 1,
	}
}

// Load builds the configuration from defaults, then the optional YAML file at
// path, then the environment (a .env file in the working directory included).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("config.defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config.file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config.dotenv: %w", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config.env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config.unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("config: api.baseurl is required")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("config: api.timeout must be positive, got %s", c.API.Timeout)
	}
	if c.Feed.Interval <= 0 {
		return fmt.Errorf("config: feed.interval must be positive, got %s", c.Feed.Interval)
	}
	if c.Operator.Workers < 1 {
		return fmt.Errorf("config: operator.workers must be at least 1, got %d", c.Operator.Workers)
	}
	return nil
}
