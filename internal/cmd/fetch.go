package cmd

import (
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <s3-uri>",
	Short: "Fetch a remote source into the working directory",
	Long: `Download a source file from S3-compatible storage into the working
directory so it can be probed and edited.

Fetching must be enabled in configuration (source.enabled, plus region or
endpoint and credentials as needed).

Examples:
  clipforge fetch s3://media-vault/raw/interview.mp4`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	return runTool(cmd.Context(), "fetch_source", map[string]any{
		"uri": args[0],
	})
}
