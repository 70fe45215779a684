package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("LoadDefaults", func(t *testing.T) {
		cfg, err := Load(ctx)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, ".", cfg.Workdir)
		assert.Equal(t, "ffmpeg", cfg.FFmpegBin)
		assert.Equal(t, "ffprobe", cfg.FFprobeBin)

		assert.Equal(t, 1.0, cfg.Jobs.ThresholdGiB)
		assert.Equal(t, time.Hour, cfg.Jobs.Retention)
		assert.Equal(t, 3.0, cfg.Jobs.MinutesPerGiB)

		assert.Equal(t, "localhost", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
		assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)

		assert.Equal(t, "info", cfg.Logging.Level)
		assert.False(t, cfg.Source.Enabled)
	})

	t.Run("RuntimeOverrides", func(t *testing.T) {
		overrides := map[string]any{
			"workdir": "/srv/media",
			"jobs": map[string]any{
				"threshold_gib": 2.5,
			},
			"logging": map[string]any{
				"level": "debug",
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)

		assert.Equal(t, "/srv/media", cfg.Workdir)
		assert.Equal(t, 2.5, cfg.Jobs.ThresholdGiB)
		assert.Equal(t, "debug", cfg.Logging.Level)

		// Non-overridden values keep their defaults.
		assert.Equal(t, time.Hour, cfg.Jobs.Retention)
		assert.Equal(t, 8080, cfg.Server.Port)
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		t.Setenv("CLIPFORGE_WORKDIR", "/mnt/footage")
		t.Setenv("CLIPFORGE_JOBS_RETENTION", "30m")
		t.Setenv("CLIPFORGE_SERVER_PORT", "9100")
		t.Setenv("CLIPFORGE_LOGGING_LEVEL", "warn")

		cfg, err := Load(ctx)
		require.NoError(t, err)

		assert.Equal(t, "/mnt/footage", cfg.Workdir)
		assert.Equal(t, 30*time.Minute, cfg.Jobs.Retention)
		assert.Equal(t, 9100, cfg.Server.Port)
		assert.Equal(t, "warn", cfg.Logging.Level)
	})

	t.Run("ConfigPrecedence", func(t *testing.T) {
		t.Setenv("CLIPFORGE_SERVER_PORT", "4000")

		overrides := map[string]any{
			"server": map[string]any{
				"port": 5000,
			},
		}

		cfg, err := Load(ctx, overrides)
		require.NoError(t, err)

		// Runtime override beats the env var.
		assert.Equal(t, 5000, cfg.Server.Port)
	})

	t.Run("ConfigFile", func(t *testing.T) {
		dir := t.TempDir()
		body := "workdir: /data/clips\njobs:\n  minutes_per_gib: 5\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, "clipforge.yaml"), []byte(body), 0o644))

		cwd, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(dir))
		defer func() { _ = os.Chdir(cwd) }()

		cfg, err := Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, "/data/clips", cfg.Workdir)
		assert.Equal(t, 5.0, cfg.Jobs.MinutesPerGiB)
	})
}

func TestLoadValidation(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		overrides map[string]any
		errPart   string
	}{
		{
			name:      "empty workdir",
			overrides: map[string]any{"workdir": "  "},
			errPart:   "workdir",
		},
		{
			name:      "non-positive threshold",
			overrides: map[string]any{"jobs": map[string]any{"threshold_gib": 0.0}},
			errPart:   "threshold_gib",
		},
		{
			name:      "negative retention",
			overrides: map[string]any{"jobs": map[string]any{"retention": -time.Minute}},
			errPart:   "retention",
		},
		{
			name:      "port out of range",
			overrides: map[string]any{"server": map[string]any{"port": 70000}},
			errPart:   "port",
		},
		{
			name: "partial source credentials",
			overrides: map[string]any{"source": map[string]any{
				"enabled":       true,
				"access_key_id": "AKIA123",
			}},
			errPart: "secret_access_key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(ctx, tt.overrides)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestGetConfig(t *testing.T) {
	ctx := context.Background()

	cfg, err := Load(ctx, map[string]any{"workdir": "/tmp/x"})
	require.NoError(t, err)

	retrieved := GetConfig()
	require.NotNil(t, retrieved)
	assert.Equal(t, cfg.Workdir, retrieved.Workdir)
}

func TestFlatten(t *testing.T) {
	got := flatten("", map[string]any{
		"workdir": "/a",
		"jobs": map[string]any{
			"retention": "1h",
			"nested":    map[string]any{"deep": 1},
		},
	})

	assert.Equal(t, map[string]any{
		"workdir":          "/a",
		"jobs.retention":   "1h",
		"jobs.nested.deep": 1,
	}, got)
}
