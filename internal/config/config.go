// Package config loads gateway settings from an optional YAML file and MCP_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "MCP"
	configFileName = "gateway"
	configFileType = "yaml"

	KeyLogLevel            = "log_level"
	KeyQueryTimeout        = "query_timeout"
	KeyConnectTimeout      = "connect_timeout"
	KeySweepInterval       = "sweep_interval"
	KeyIdleTimeout         = "idle_timeout"
	KeyMaxRows             = "max_rows"
	KeyKeyIncludesPassword = "key_includes_password"
	KeyReadOnly            = "read_only"
	KeyMetricsAddr         = "metrics_addr"
	KeyExportDir           = "export_dir"
)

// Config is the resolved gateway configuration.
type Config struct {
	LogLevel            string        `validate:"oneof=debug info warn warning error"`
	QueryTimeout        time.Duration `validate:"gt=0"`
	ConnectTimeout      time.Duration `validate:"gt=0"`
	SweepInterval       time.Duration `validate:"gt=0"`
	IdleTimeout         time.Duration `validate:"gt=0"`
	MaxRows             int           `validate:"gte=0"`
	KeyIncludesPassword bool
	ReadOnly            bool
	MetricsAddr         string `validate:"omitempty,hostname_port"`
	ExportDir           string
	// File is the config file actually read, empty when none was found.
	File string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyQueryTimeout, "30s")
	v.SetDefault(KeyConnectTimeout, "10s")
	v.SetDefault(KeySweepInterval, "60s")
	v.SetDefault(KeyIdleTimeout, "300s")
	v.SetDefault(KeyMaxRows, 0)
	v.SetDefault(KeyKeyIncludesPassword, false)
	v.SetDefault(KeyReadOnly, false)
	v.SetDefault(KeyMetricsAddr, "")
	v.SetDefault(KeyExportDir, ".")
}

// New returns a viper instance with defaults and environment binding but no
// file. Flags may be bound onto it before Load.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (or gateway.yaml from the working directory and the user
// config directory when path is empty) into v and resolves the result. Only
// an explicitly named file has to exist.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(dir + "/mcp-db-gateway")
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return resolve(v)
}

func resolve(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		LogLevel:            strings.ToLower(strings.TrimSpace(v.GetString(KeyLogLevel))),
		MaxRows:             v.GetInt(KeyMaxRows),
		KeyIncludesPassword: v.GetBool(KeyKeyIncludesPassword),
		ReadOnly:            v.GetBool(KeyReadOnly),
		MetricsAddr:         v.GetString(KeyMetricsAddr),
		ExportDir:           v.GetString(KeyExportDir),
		File:                v.ConfigFileUsed(),
	}

	var err error
	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{KeyQueryTimeout, &cfg.QueryTimeout},
		{KeyConnectTimeout, &cfg.ConnectTimeout},
		{KeySweepInterval, &cfg.SweepInterval},
		{KeyIdleTimeout, &cfg.IdleTimeout},
	} {
		if *d.dst, err = ParseDuration(v.GetString(d.key)); err != nil {
			return nil, fmt.Errorf("%s: %w", d.key, err)
		}
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ParseDuration accepts Go duration strings and bare integers, which are
// read as seconds (MCP_QUERY_TIMEOUT=45).
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}
