package main

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the configuration file of respctl.
type Config struct {
	Servers []string      `mapstructure:"servers"`
	Pool    PoolConfig    `mapstructure:"pool"`
	Call    CallConfig    `mapstructure:"call"`
	Breaker BreakerConfig `mapstructure:"breaker"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// PoolConfig defines the connection pool of each server
type PoolConfig struct {
	Kind                string        `mapstructure:"kind"` // channel, puddle
	MaxSize             int32         `mapstructure:"max_size"`
	MaxConnLifetime     time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime     time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval"`
	DialTimeout         time.Duration `mapstructure:"dial_timeout"`
}

// CallConfig defines the deadlines of dispatched calls
type CallConfig struct {
	Timeout        time.Duration `mapstructure:"timeout"`
	BlockingMargin time.Duration `mapstructure:"blocking_margin"`
}

// BreakerConfig defines the circuit breaker of each server
type BreakerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxRequests uint32        `mapstructure:"max_requests"` // allowed in half-open state
	Interval    time.Duration `mapstructure:"interval"`     // closed state counter reset period
	Timeout     time.Duration `mapstructure:"timeout"`      // open state duration
}

// LogConfig defines logging verbosity and output style
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// MetricsConfig defines the Prometheus endpoint
type MetricsConfig struct {
	Address string `mapstructure:"address"` // empty disables the endpoint
}

// LoadConfig reads respctl.yaml from path and overrides it with RESPCTL_* environment variables
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("respctl")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	v.AddConfigPath(".")

	v.SetEnvPrefix("RESPCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults populates viper with fallback values if they are not provided via file or ENV
func setDefaults(v *viper.Viper) {
	v.SetDefault("servers", []string{"localhost:6379"})

	// Pool
	v.SetDefault("pool.kind", "channel")
	v.SetDefault("pool.max_size", 4)
	v.SetDefault("pool.max_conn_lifetime", "30m")
	v.SetDefault("pool.max_conn_idle_time", "5m")
	v.SetDefault("pool.health_check_interval", "30s")
	v.SetDefault("pool.dial_timeout", "2s")

	// Calls
	v.SetDefault("call.timeout", "5s")
	v.SetDefault("call.blocking_margin", "1s")

	// Circuit breaker
	v.SetDefault("breaker.enabled", true)
	v.SetDefault("breaker.max_requests", 1)
	v.SetDefault("breaker.interval", "10s")
	v.SetDefault("breaker.timeout", "5s")

	// Logger
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("metrics.address", "")
}
