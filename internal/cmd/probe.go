package cmd

import (
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe <path>",
	Short: "Inspect media metadata",
	Long: `Print container, duration, size, bitrate, and per-stream details for a
media file, as reported by ffprobe.

Examples:
  clipforge probe raw/interview.mp4`,
	Args: cobra.ExactArgs(1),
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	return runTool(cmd.Context(), "probe", map[string]any{
		"path": args[0],
	})
}
