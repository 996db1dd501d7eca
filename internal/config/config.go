package config

import "time"

const (
	AdapterMemory = "memory"
	AdapterRedis  = "redis"
)

// Config holds the sio-server configuration.
type Config struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	LogLevel        string        `mapstructure:"log_level" yaml:"log_level"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
	AdapterTimeout  time.Duration `mapstructure:"adapter_timeout" yaml:"adapter_timeout"`
	// One of std, go-json, sonic, fast.
	Serializer string `mapstructure:"serializer" yaml:"serializer"`

	Adapter AdapterConfig `mapstructure:"adapter" yaml:"adapter"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

type AdapterConfig struct {
	// memory or redis.
	Type  string      `mapstructure:"type" yaml:"type"`
	Redis RedisConfig `mapstructure:"redis" yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
	// Channel prefix shared by every node of the cluster.
	Prefix string `mapstructure:"prefix" yaml:"prefix"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:            ":3000",
		LogLevel:        "info",
		ShutdownTimeout: 10 * time.Second,
		ConnectTimeout:  45 * time.Second,
		AdapterTimeout:  5 * time.Second,
		Serializer:      "fast",
		Adapter: AdapterConfig{
			Type: AdapterMemory,
			Redis: RedisConfig{
				Addr:   "127.0.0.1:6379",
				Prefix: "sio",
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
