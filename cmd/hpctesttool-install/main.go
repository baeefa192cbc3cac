// Package main is the entry point for the hpctesttool-install CLI.
//
// This binary recreates the hpctesttool virtual environment and writes
// its redirect scripts. It delegates all functionality to the internal/cli
// package, which defines the cobra command.
//
// Build-time variables (version, commit, date) are injected via ldflags.
// During development, they default to "dev", "none", and "unknown".
package main

import (
	"github.com/shinji-kodama/hpctesttool-install/internal/cli"
)

// version, commit, and date are set at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	rootCmd := cli.NewRootCommand()
	cli.Execute(rootCmd)
}
