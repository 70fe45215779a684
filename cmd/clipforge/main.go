package main

import (
	"os"

	"github.com/3leaps/clipforge/internal/cmd"
)

// Overridden at build time via -ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	os.Exit(cmd.Execute())
}
