// Package cli — install.go runs the install sequence and prints its report.
//
// The orchestration itself lives in internal/installer; this file only
// wires the process runner and logger to it and formats the outcome.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/hpctesttool-install/internal/installer"
	"github.com/shinji-kodama/hpctesttool-install/internal/model"
	"github.com/shinji-kodama/hpctesttool-install/internal/process"
)

// newRunner creates the runner for real subprocesses.
//
// In text mode the child's stdout (pip's progress) goes to our stdout, as
// a plain script would do. In json/yaml mode stdout carries the report, so
// child output is redirected to stderr.
func newRunner() process.Runner {
	var childStdout io.Writer = os.Stdout
	if outputFormat != OutputText {
		childStdout = os.Stderr
	}
	return process.NewExecRunner(childStdout, os.Stderr, logger)
}

// runInstall executes the install plan and writes the report to w.
func runInstall(ctx context.Context, plan model.Plan, runner process.Runner, w io.Writer) error {
	VerboseLog("Environment: %s", plan.EnvPath)
	VerboseLog("Wheels: %s", plan.WheelDir)
	VerboseLog("Source: %s", plan.SourcePath)

	result, err := installer.New(runner, logger).Install(ctx, plan)
	if err != nil {
		return err
	}

	return printResult(w, result)
}

// report is the serialized form of a successful run.
type report struct {
	EnvPath    string         `json:"envPath" yaml:"envPath"`
	WheelDir   string         `json:"wheelDir" yaml:"wheelDir"`
	SourcePath string         `json:"sourcePath" yaml:"sourcePath"`
	Python     string         `json:"basePython" yaml:"basePython"`
	Project    *model.Project `json:"project,omitempty" yaml:"project,omitempty"`
	PipArgs    [][]string     `json:"pipArgs" yaml:"pipArgs"`
	Shims      []model.Shim   `json:"shims" yaml:"shims"`

	// Duration is rendered as a Go duration string (e.g. "12.5s").
	Duration string `json:"duration" yaml:"duration"`
}

func newReport(result *model.Result) report {
	return report{
		EnvPath:    result.Plan.EnvPath,
		WheelDir:   result.Plan.WheelDir,
		SourcePath: result.Plan.SourcePath,
		Python:     result.Plan.BasePython,
		Project:    result.Project,
		PipArgs:    result.PipArgs,
		Shims:      result.Shims,
		Duration:   result.Duration.Round(time.Millisecond).String(),
	}
}

// printResult writes the report in the format selected by --output.
func printResult(w io.Writer, result *model.Result) error {
	switch outputFormat {
	case OutputJSON:
		data, err := json.MarshalIndent(newReport(result), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err

	case OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(newReport(result)); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		return enc.Close()

	default:
		printResultText(w, result)
		return nil
	}
}

// printResultText writes a short human-readable summary.
func printResultText(w io.Writer, result *model.Result) {
	fmt.Fprintf(w, "Installed %s into %s (%s)\n",
		model.ToolBinary, result.Plan.EnvPath, result.Duration.Round(time.Millisecond))

	if p := result.Project; p != nil && p.Name != "" {
		desc := p.Name
		if p.Version != "" {
			desc += " " + p.Version
		}
		if p.BuildBackend != "" {
			desc += fmt.Sprintf(" (%s)", p.BuildBackend)
		}
		fmt.Fprintf(w, "  Project:  %s\n", desc)
	}

	if len(result.Shims) > 0 {
		fmt.Fprintln(w, "  Shims:")
		for _, s := range result.Shims {
			fmt.Fprintf(w, "    %-12s %s\n", s.Name, s)
		}
	}
}
