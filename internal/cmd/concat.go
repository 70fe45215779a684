package cmd

import (
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
)

var concatOutput string

var concatCmd = &cobra.Command{
	Use:   "concat <input>...",
	Short: "Concatenate video files",
	Long: `Concatenate two or more video files into one, in argument order.

Inputs are stream-copied through the concat demuxer, so they should share
codec parameters. Mixed-codec inputs need a re-encoding reel instead.

Examples:
  clipforge concat clips/a.mp4 clips/b.mp4 --output out/joined.mp4`,
	Args: cobra.MinimumNArgs(2),
	RunE: runConcat,
}

func init() {
	rootCmd.AddCommand(concatCmd)
	concatCmd.Flags().StringVar(&concatOutput, "output", "", "Output file path")
	_ = concatCmd.MarkFlagRequired("output")
}

func runConcat(cmd *cobra.Command, args []string) error {
	if concatOutput == "" {
		return exitError(foundry.ExitInvalidArgument, "Missing output path",
			fmt.Errorf("--output is required"))
	}

	return runTool(cmd.Context(), "concat", map[string]any{
		"inputs": args,
		"output": concatOutput,
	})
}
