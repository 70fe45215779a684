package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. CLIPFORGE_WORKDIR
// or CLIPFORGE_JOBS_THRESHOLD_GIB.
const EnvPrefix = "CLIPFORGE"

// ConfigFileName is the base name of the optional config file
// (clipforge.yaml) searched in the current directory.
const ConfigFileName = "clipforge"

var (
	configMu  sync.RWMutex
	appConfig *Config
)

// Load builds the configuration and caches it for GetConfig. Runtime
// overrides (nested maps keyed like the config file) take precedence over
// environment variables and the file.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := viper.New()
	for key, val := range defaults() {
		v.SetDefault(key, val)
	}

	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, o := range overrides {
		for key, val := range flatten("", o) {
			v.Set(key, val)
		}
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	configMu.Lock()
	appConfig = &cfg
	configMu.Unlock()
	return &cfg, nil
}

// GetConfig returns the last loaded configuration, or nil before Load.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Workdir) == "" {
		return fmt.Errorf("workdir must not be empty")
	}
	if c.Jobs.ThresholdGiB <= 0 {
		return fmt.Errorf("jobs.threshold_gib must be positive, got %v", c.Jobs.ThresholdGiB)
	}
	if c.Jobs.Retention <= 0 {
		return fmt.Errorf("jobs.retention must be positive, got %v", c.Jobs.Retention)
	}
	if c.Jobs.MinutesPerGiB <= 0 {
		return fmt.Errorf("jobs.minutes_per_gib must be positive, got %v", c.Jobs.MinutesPerGiB)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Source.Enabled {
		hasID := c.Source.AccessKeyID != ""
		hasSecret := c.Source.SecretAccessKey != ""
		if hasID != hasSecret {
			return fmt.Errorf("source.access_key_id and source.secret_access_key must be set together")
		}
	}
	return nil
}

// flatten turns nested override maps into dotted viper keys.
func flatten(prefix string, m map[string]any) map[string]any {
	out := map[string]any{}
	for key, val := range m {
		full := key
		if prefix != "" {
			full = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			for k, v := range flatten(full, nested) {
				out[k] = v
			}
			continue
		}
		out[full] = val
	}
	return out
}
