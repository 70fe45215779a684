package cmd

import (
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
)

var (
	extractStart    float64
	extractEnd      float64
	extractReencode bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <input> <output>",
	Short: "Extract a time segment from a video",
	Long: `Extract the [start, end) segment of a video into a new file.

By default the segment is stream-copied, which is fast but cuts on keyframe
boundaries. Use --reencode for frame-accurate cuts.

Examples:
  clipforge extract raw/talk.mp4 out/talk_intro.mp4 --start 0 --end 90
  clipforge extract raw/talk.mp4 out/talk_q3.mp4 --start 610.5 --end 755 --reencode`,
	Args: cobra.ExactArgs(2),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().Float64Var(&extractStart, "start", 0, "Segment start in seconds")
	extractCmd.Flags().Float64Var(&extractEnd, "end", 0, "Segment end in seconds (exclusive)")
	extractCmd.Flags().BoolVar(&extractReencode, "reencode", false, "Re-encode for frame-accurate cuts")
	_ = extractCmd.MarkFlagRequired("end")
}

func runExtract(cmd *cobra.Command, args []string) error {
	if extractEnd <= extractStart {
		return exitError(foundry.ExitInvalidArgument, "Invalid segment bounds",
			fmt.Errorf("end (%v) must be greater than start (%v)", extractEnd, extractStart))
	}

	return runTool(cmd.Context(), "extract_segment", map[string]any{
		"input":    args[0],
		"output":   args[1],
		"start":    extractStart,
		"end":      extractEnd,
		"reencode": extractReencode,
	})
}
