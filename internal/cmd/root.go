// Package cmd wires the clipforge command tree.
package cmd

import (
	"fmt"
	"os"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/clipforge/internal/config"
	"github.com/3leaps/clipforge/internal/observability"
)

// versionInfo is populated by SetVersionInfo from build-time ldflags.
var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "unknown",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata before Execute runs.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

var (
	flagWorkdir  string
	flagLogLevel string
)

// appConfig is the loaded configuration, available to every subcommand after
// PersistentPreRunE.
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "clipforge",
	Short: "Video editing tool server for agent clients",
	Long: `clipforge exposes ffmpeg-backed video editing operations to agent
clients: extract segments, concatenate clips, change playback speed, probe
metadata, and assemble highlight reels.

Small inputs are processed synchronously; inputs at or above the size
threshold run as background jobs that the client polls with job_status.

Run 'clipforge serve' for the line-oriented JSON protocol on stdin/stdout,
or use the subcommands directly for one-shot operations.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := observability.InitCLILogger(flagLogLevel); err != nil {
			return exitError(foundry.ExitInvalidArgument, "Invalid log level", err)
		}

		overrides := map[string]any{}
		if cmd.Flags().Changed("workdir") {
			overrides["workdir"] = flagWorkdir
		}
		if cmd.Flags().Changed("log-level") {
			overrides["logging"] = map[string]any{"level": flagLogLevel}
		}

		cfg, err := config.Load(cmd.Context(), overrides)
		if err != nil {
			return exitError(foundry.ExitInvalidArgument, "Failed to load configuration", err)
		}
		appConfig = cfg
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagWorkdir, "workdir", ".", "Working directory that roots all media paths")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

// Execute runs the command tree and returns a process exit code.
func Execute() int {
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)",
		versionInfo.Version, versionInfo.Commit, versionInfo.BuildDate)

	defer observability.Sync()

	if err := rootCmd.Execute(); err != nil {
		observability.CLILogger.Error("command failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func exitError(code int, message string, err error) error {
	return fmt.Errorf("%s: %w (exit code %d)", message, err, code)
}
