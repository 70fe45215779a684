package cmd

import (
	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Show background job status",
	Long: `Show active background jobs plus recently completed and failed ones.

Job state lives in the serve session's memory, so this command is mostly
useful against the HTTP status server; run standalone it reports an empty
registry.

Examples:
  clipforge jobs`,
	Args: cobra.NoArgs,
	RunE: runJobs,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, _ []string) error {
	return runTool(cmd.Context(), "job_status", map[string]any{})
}
