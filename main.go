// Package main is the entry point for the flixctl CLI
package main

import (
	"os"

	"github.com/alt-project/flixctl/cmd"
	"github.com/alt-project/flixctl/internal/output"
)

// Set at build time via ldflags
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	cmd.SetVersion(version)
	cmd.SetBuildInfo(commit, buildTime)
	if err := cmd.Execute(); err != nil {
		cmd.PrintError(err)
		os.Exit(output.ExitCodeOf(err))
	}
}
