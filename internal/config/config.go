// Package config loads clipforge configuration.
//
// Precedence, highest first: runtime overrides, CLIPFORGE_* environment
// variables, an optional clipforge.yaml in the working directory, built-in
// defaults.
package config

import (
	"time"

	"github.com/3leaps/clipforge/pkg/jobs"
)

// Config is the full runtime configuration.
type Config struct {
	// Workdir roots all media paths named by tool calls.
	Workdir string `mapstructure:"workdir"`

	FFmpegBin  string `mapstructure:"ffmpeg_bin"`
	FFprobeBin string `mapstructure:"ffprobe_bin"`

	Jobs    JobsConfig    `mapstructure:"jobs"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Source  SourceConfig  `mapstructure:"source"`
}

// JobsConfig tunes background execution.
type JobsConfig struct {
	// ThresholdGiB is the size at or above which work goes to background.
	ThresholdGiB float64 `mapstructure:"threshold_gib"`

	// Retention is how long finished jobs stay visible in job_status.
	Retention time.Duration `mapstructure:"retention"`

	// MinutesPerGiB drives completion estimates.
	MinutesPerGiB float64 `mapstructure:"minutes_per_gib"`
}

// ServerConfig tunes the optional HTTP status server.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// SourceConfig configures the optional S3 source fetcher. Fetching stays
// disabled until Enabled is set.
type SourceConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	Profile         string `mapstructure:"profile"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
	BytesPerSecond  int64  `mapstructure:"bytes_per_second"`
}

func defaults() map[string]any {
	return map[string]any{
		"workdir":     ".",
		"ffmpeg_bin":  "ffmpeg",
		"ffprobe_bin": "ffprobe",

		"jobs.threshold_gib":   jobs.DefaultThresholdGiB,
		"jobs.retention":       jobs.DefaultRetention,
		"jobs.minutes_per_gib": jobs.DefaultMinutesPerGiB,

		"server.host":             "localhost",
		"server.port":             8080,
		"server.read_timeout":     30 * time.Second,
		"server.write_timeout":    30 * time.Second,
		"server.idle_timeout":     120 * time.Second,
		"server.shutdown_timeout": 10 * time.Second,

		"logging.level": "info",

		"source.enabled":           false,
		"source.region":            "",
		"source.endpoint":          "",
		"source.profile":           "",
		"source.access_key_id":     "",
		"source.secret_access_key": "",
		"source.force_path_style":  false,
		"source.bytes_per_second":  int64(0),
	}
}
