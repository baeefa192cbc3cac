// Package cli implements the cobra-based command line of hpctesttool-install.
//
// The tool has a single command with five positional paths. This file
// defines that root command, its flags and the error/exit-code handling;
// install.go holds the orchestration call and result output.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/hpctesttool-install/internal/model"
)

// Output formats accepted by --output.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// Global flag variables, bound in NewRootCommand.
var (
	// outputFormat selects how the final report and errors are printed.
	outputFormat = OutputText

	// verbose switches the logger to debug level, which logs every
	// command line before it runs.
	verbose bool

	// basePython is the interpreter that creates the environment.
	basePython = model.DefaultBasePython
)

// version, commit, and date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// logger is the process-wide logger. It writes to stderr so stdout stays
// free for pip output (text mode) or the report (json/yaml mode).
var logger = newLogger(os.Stderr, false)

func newLogger(w io.Writer, debug bool) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		Prefix: "hpctesttool-install",
	})
	if debug {
		l.SetLevel(log.DebugLevel)
	}
	return l
}

// NewRootCommand creates and configures the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hpctesttool-install <venv> <wheels> <src> <hpctesttool-shim> <python-shim>",
		Short: "Install hpctesttool into a fresh virtual environment, offline",
		Long: `hpctesttool-install recreates a Python virtual environment and installs the
hpctesttool source tree into it in editable mode, using only the wheels found
in a local directory. It then writes two redirect scripts that exec the
environment's hpctesttool and python.

Arguments:
  venv              virtual environment directory (destroyed and recreated)
  wheels            directory of vendored wheels, the only package source
  src               hpctesttool source tree
  hpctesttool-shim  output path of the hpctesttool redirect script
  python-shim       output path of the python redirect script

Examples:
  hpctesttool-install build/venv subprojects/wheels src/hpctesttool build/hpctesttool build/python
  hpctesttool-install --python python3.12 -o json /tmp/envX /tmp/wheels /tmp/srcpkg /tmp/bin/tool /tmp/bin/python`,

		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(5)(cmd, args); err != nil {
				return model.WrapCLIError(model.ExitInvalidInput, "wrong number of arguments", err)
			}
			return nil
		},

		// SilenceUsage prevents cobra from printing usage on every error.
		SilenceUsage: true,

		// SilenceErrors lets Execute format errors (text, JSON or YAML).
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch outputFormat {
			case OutputText, OutputJSON, OutputYAML:
			default:
				return model.NewCLIError(model.ExitInvalidInput,
					fmt.Sprintf("invalid --output %q (valid: text, json, yaml)", outputFormat))
			}
			logger = newLogger(os.Stderr, verbose)
			return nil
		},

		RunE: func(cmd *cobra.Command, args []string) error {
			plan := model.Plan{
				EnvPath:        args[0],
				WheelDir:       args[1],
				SourcePath:     args[2],
				ToolShimPath:   args[3],
				PythonShimPath: args[4],
				BasePython:     basePython,
			}
			return runInstall(cmd.Context(), plan, newRunner(), cmd.OutOrStdout())
		},
	}

	rootCmd.Flags().StringVar(&basePython, "python", model.DefaultBasePython, "Interpreter used to create the virtual environment")
	rootCmd.Flags().StringVarP(&outputFormat, "output", "o", OutputText, "Report format: text, json or yaml")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log every command before it runs")

	return rootCmd
}

// Execute runs the root command and handles exit codes.
//
// CLIError values carry their own exit codes, including argument count
// errors (ExitInvalidInput); anything else exits with ExitGeneralError.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(int(exitCode(err)))
	}
}

// exitCode maps an error returned by the root command to a process exit code.
func exitCode(err error) model.ExitCode {
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	return model.ExitGeneralError
}

// printError outputs an error message in the format chosen by --output.
func printError(w io.Writer, err error) {
	message := err.Error()
	var detail string
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) && cliErr.Err != nil {
		message = cliErr.Message
		detail = cliErr.Err.Error()
	}

	// An unknown --output value is itself the error being reported, so
	// anything but json or yaml falls back to text.
	if outputFormat != OutputJSON && outputFormat != OutputYAML {
		fmt.Fprintf(w, "Error: %s\n", err)
		return
	}

	type errorBody struct {
		Message string `json:"message" yaml:"message"`
		Detail  string `json:"detail,omitempty" yaml:"detail,omitempty"`
		Code    int    `json:"code" yaml:"code"`
	}
	errObj := map[string]errorBody{
		"error": {Message: message, Detail: detail, Code: int(exitCode(err))},
	}

	// Errors go to stderr even in structured modes; stdout is reserved
	// for the report of a successful run.
	if outputFormat == OutputYAML {
		data, _ := yaml.Marshal(errObj)
		fmt.Fprint(w, string(data))
		return
	}
	data, _ := json.MarshalIndent(errObj, "", "  ")
	fmt.Fprintln(w, string(data))
}

// VerboseLog logs a debug message; it is shown only with --verbose.
func VerboseLog(format string, args ...interface{}) {
	logger.Debugf(format, args...)
}
