// Package model defines the domain types and value objects for the
// hpctesttool-install CLI.
//
// This package contains pure data structures with no external dependencies.
// Plan describes the paths of one run, Shim and Result describe what the
// run produced, and Project carries pyproject.toml metadata.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
