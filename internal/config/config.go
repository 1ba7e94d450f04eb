// Package config loads the server configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the webui server.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
	Cache   CacheConfig   `yaml:"cache"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// BackendConfig configures the connection to the execution backend.
type BackendConfig struct {
	Endpoint     string   `yaml:"endpoint"`
	PageSize     uint32   `yaml:"page_size"`
	PollInterval Duration `yaml:"poll_interval"`
}

// Duration is a time.Duration that unmarshals from YAML strings like "2.5s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// CacheConfig selects the source cache backend. Options are decoded
// per-backend, so each backend can carry its own keys.
type CacheConfig struct {
	Backend string         `yaml:"backend"`
	Options map[string]any `yaml:"options"`
}

// RedisOptions are the cache options for the "redis" backend.
type RedisOptions struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Backend: BackendConfig{
			PageSize:     500,
			PollInterval: Duration(2500 * time.Millisecond),
		},
		Cache: CacheConfig{
			Backend: "memory",
		},
	}
}

// Load reads a YAML configuration file. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks the configuration for values that cannot work.
func (c Config) Validate() error {
	switch c.Cache.Backend {
	case "", "memory", "redis":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if c.Backend.PageSize == 0 {
		return fmt.Errorf("backend page_size must be positive")
	}
	if c.Backend.PollInterval <= 0 {
		return fmt.Errorf("backend poll_interval must be positive")
	}
	return nil
}

// RedisOptions decodes the cache options for the redis backend.
func (c CacheConfig) RedisOptions() (RedisOptions, error) {
	opts := RedisOptions{
		Addr: "localhost:6379",
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     &opts,
	})
	if err != nil {
		return opts, err
	}
	if err := decoder.Decode(c.Options); err != nil {
		return opts, fmt.Errorf("failed to decode redis cache options: %w", err)
	}
	return opts, nil
}
