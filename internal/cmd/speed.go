package cmd

import (
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
)

var speedFactor float64

var speedCmd = &cobra.Command{
	Use:   "speed <input> <output>",
	Short: "Change playback speed",
	Long: `Re-time a video by a speed factor, keeping audio pitch-corrected.

A factor above 1 speeds the video up, below 1 slows it down. Audio is
re-timed with atempo, chained as needed for factors outside [0.5, 2.0].

Examples:
  clipforge speed raw/lecture.mp4 out/lecture_1.5x.mp4 --factor 1.5
  clipforge speed raw/replay.mp4 out/replay_slow.mp4 --factor 0.25`,
	Args: cobra.ExactArgs(2),
	RunE: runSpeed,
}

func init() {
	rootCmd.AddCommand(speedCmd)
	speedCmd.Flags().Float64Var(&speedFactor, "factor", 0, "Speed multiplier (e.g. 2 for double speed)")
	_ = speedCmd.MarkFlagRequired("factor")
}

func runSpeed(cmd *cobra.Command, args []string) error {
	if speedFactor <= 0 {
		return exitError(foundry.ExitInvalidArgument, "Invalid speed factor",
			fmt.Errorf("factor must be positive, got %v", speedFactor))
	}

	return runTool(cmd.Context(), "change_speed", map[string]any{
		"input":  args[0],
		"output": args[1],
		"factor": speedFactor,
	})
}
