// Package config loads the sio-server configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix         = "SIO"
	defaultConfigName = "sio-server.yaml"
)

// Command line flags and the keys they override.
var flagKeys = map[string]string{
	"addr":       "addr",
	"log-level":  "log_level",
	"serializer": "serializer",
	"adapter":    "adapter.type",
	"redis-addr": "adapter.redis.addr",
}

// Load builds configuration from defaults, the config file and env vars,
// and returns the resolved path.
// Precedence: defaults < config file < env vars (SIO_*) < flags.
// A default config file is written if none exists at path.
// Only the flags of flags that were set take effect; flags may be nil.
func Load(logger *zerolog.Logger, explicitPath string, flags *pflag.FlagSet) (Config, string, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, cfg)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			flag := flags.Lookup(name)
			if flag == nil {
				continue
			}
			err := v.BindPFlag(key, flag)
			if err != nil {
				return cfg, "", fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	configPath, err := resolveConfigPath(explicitPath)
	if err != nil {
		return cfg, "", err
	}
	v.SetConfigFile(configPath)

	err = v.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return cfg, configPath, fmt.Errorf("read config: %w", err)
		}
		writeErr := writeDefaultConfig(configPath, cfg)
		if logger != nil {
			if writeErr != nil {
				logger.Warn().Err(writeErr).Str("path", configPath).Msg("failed to write default config")
			} else {
				logger.Info().Str("path", configPath).Msg("created default config")
			}
		}
	}

	err = v.Unmarshal(&cfg)
	if err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}
	err = cfg.Validate()
	if err != nil {
		return cfg, configPath, err
	}
	return cfg, configPath, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("addr", cfg.Addr)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)
	v.SetDefault("connect_timeout", cfg.ConnectTimeout)
	v.SetDefault("adapter_timeout", cfg.AdapterTimeout)
	v.SetDefault("serializer", cfg.Serializer)
	v.SetDefault("adapter.type", cfg.Adapter.Type)
	v.SetDefault("adapter.redis.addr", cfg.Adapter.Redis.Addr)
	v.SetDefault("adapter.redis.password", cfg.Adapter.Redis.Password)
	v.SetDefault("adapter.redis.db", cfg.Adapter.Redis.DB)
	v.SetDefault("adapter.redis.prefix", cfg.Adapter.Redis.Prefix)
	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Serializer {
	case "std", "go-json", "sonic", "fast":
	default:
		return fmt.Errorf("config: unknown serializer %q", c.Serializer)
	}
	switch c.Adapter.Type {
	case AdapterMemory:
	case AdapterRedis:
		if c.Adapter.Redis.Addr == "" {
			return errors.New("config: adapter.redis.addr is required for the redis adapter")
		}
	default:
		return fmt.Errorf("config: unknown adapter type %q", c.Adapter.Type)
	}
	if c.ShutdownTimeout < 0 || c.ConnectTimeout < 0 || c.AdapterTimeout < 0 {
		return errors.New("config: timeouts must not be negative")
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("config: metrics.path must start with '/': %q", c.Metrics.Path)
	}
	return nil
}

func resolveConfigPath(explicitPath string) (string, error) {
	if explicitPath != "" {
		return explicitPath, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return filepath.Join(cwd, defaultConfigName), nil
}

func writeDefaultConfig(path string, cfg Config) error {
	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
