package cmd

import (
	"github.com/spf13/cobra"
)

var reelCmd = &cobra.Command{
	Use:   "reel <plan-file>",
	Short: "Assemble a highlight reel from a plan file",
	Long: `Assemble a highlight reel described by a YAML or JSON plan.

The plan names source files, the segments to pull from them, an optional
overall speed factor, and the output path. Paths in the plan are relative to
the working directory.

Example plan:
  version: "1.0"
  sources:
    - raw/game1.mp4
    - raw/game2.mp4
  segments:
    - {source: 0, start: 312, end: 318}
    - {source: 1, start: 95, end: 102}
  speed: 1.0
  output: out/highlights.mp4

Examples:
  clipforge reel plans/week12.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runReel,
}

func init() {
	rootCmd.AddCommand(reelCmd)
}

func runReel(cmd *cobra.Command, args []string) error {
	return runTool(cmd.Context(), "assemble_reel", map[string]any{
		"plan_path": args[0],
	})
}
