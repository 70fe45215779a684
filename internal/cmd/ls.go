package cmd

import (
	"github.com/spf13/cobra"
)

var lsPattern string

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List media files in the working directory",
	Long: `List media files under the working directory, with sizes and
modification times. Non-media files are hidden.

Examples:
  clipforge ls
  clipforge ls --pattern 'raw/**/*.mp4'`,
	Args: cobra.NoArgs,
	RunE: runLs,
}

func init() {
	rootCmd.AddCommand(lsCmd)
	lsCmd.Flags().StringVar(&lsPattern, "pattern", "", "Glob pattern relative to the working directory")
}

func runLs(cmd *cobra.Command, _ []string) error {
	args := map[string]any{}
	if lsPattern != "" {
		args["pattern"] = lsPattern
	}
	return runTool(cmd.Context(), "list_files", args)
}
