// Package model defines the domain types for the hpctesttool-install CLI.
//
// All entities in this package are transient: they describe a single
// install run and are never persisted. The only durable state produced by
// the tool lives on the filesystem (the virtual environment and the shims).
package model

import (
	"fmt"
	"time"
)

// Fixed names used by the install procedure. These are not configurable:
// the shims always point at these binaries inside the environment.
const (
	// ToolBinary is the console script installed by the source tree.
	ToolBinary = "hpctesttool"

	// PythonBinary is the interpreter inside the virtual environment.
	PythonBinary = "python"

	// BuildBackendPackage is the PEP 517 build backend the source tree
	// needs. It is installed from the wheel directory before the source.
	BuildBackendPackage = "poetry.core"

	// PipPackage is the installer's own distribution name, upgraded first.
	PipPackage = "pip"

	// DefaultBasePython is the interpreter used to create the environment
	// when --python is not given.
	DefaultBasePython = "python3"
)

// Plan holds every path an install run operates on.
//
// EnvPath and the two shim paths are owned by the run and get destroyed
// and recreated. WheelDir and SourcePath are read-only inputs.
type Plan struct {
	// EnvPath is the virtual environment directory. Removed and recreated.
	EnvPath string `json:"envPath" yaml:"envPath"`

	// WheelDir is the local directory of vendored wheels. It is the only
	// package source pip is allowed to use.
	WheelDir string `json:"wheelDir" yaml:"wheelDir"`

	// SourcePath is the source tree installed in editable mode.
	SourcePath string `json:"sourcePath" yaml:"sourcePath"`

	// ToolShimPath is where the hpctesttool redirect shim is written.
	ToolShimPath string `json:"toolShimPath" yaml:"toolShimPath"`

	// PythonShimPath is where the python redirect shim is written.
	PythonShimPath string `json:"pythonShimPath" yaml:"pythonShimPath"`

	// BasePython is the interpreter used to run `-m venv`.
	BasePython string `json:"basePython" yaml:"basePython"`
}

// Validate checks that no path in the plan is empty.
// It does not touch the filesystem; existence checks happen in the
// installer's preflight step.
func (p *Plan) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"environment path", p.EnvPath},
		{"wheel directory", p.WheelDir},
		{"source path", p.SourcePath},
		{ToolBinary + " shim path", p.ToolShimPath},
		{PythonBinary + " shim path", p.PythonShimPath},
		{"base python", p.BasePython},
	}
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("%s must not be empty", f.name)
		}
	}
	return nil
}

// Shims returns the (binary name, output path) pairs in the order the
// shims are generated.
func (p *Plan) Shims() [][2]string {
	return [][2]string{
		{ToolBinary, p.ToolShimPath},
		{PythonBinary, p.PythonShimPath},
	}
}

// Shim describes a generated redirect script.
type Shim struct {
	// Name is the binary name inside <env>/bin.
	Name string `json:"name" yaml:"name"`

	// Path is the output file the script was written to.
	Path string `json:"path" yaml:"path"`

	// Target is the absolute, symlink-free path the script execs.
	Target string `json:"target" yaml:"target"`
}

// String returns "path -> target".
func (s Shim) String() string {
	return fmt.Sprintf("%s -> %s", s.Path, s.Target)
}

// Project is the subset of pyproject.toml metadata the installer reports.
type Project struct {
	Name          string   `json:"name,omitempty" yaml:"name,omitempty"`
	Version       string   `json:"version,omitempty" yaml:"version,omitempty"`
	BuildBackend  string   `json:"buildBackend,omitempty" yaml:"buildBackend,omitempty"`
	BuildRequires []string `json:"buildRequires,omitempty" yaml:"buildRequires,omitempty"`

	// Scripts lists console script names declared by the project.
	Scripts []string `json:"scripts,omitempty" yaml:"scripts,omitempty"`

	// Problems lists metadata that could not be read. They are reported
	// as warnings and never stop an install.
	Problems []string `json:"problems,omitempty" yaml:"problems,omitempty"`
}

// Provides reports whether the project declares a console script named bin.
func (p *Project) Provides(bin string) bool {
	if p == nil {
		return false
	}
	for _, s := range p.Scripts {
		if s == bin {
			return true
		}
	}
	return false
}

// Result summarizes a successful install run.
type Result struct {
	Plan Plan `json:"plan" yaml:"plan"`

	// Project is nil when the source tree has no pyproject.toml.
	Project *Project `json:"project,omitempty" yaml:"project,omitempty"`

	// PipArgs holds the package arguments of each pip invocation, in order.
	PipArgs [][]string `json:"pipArgs" yaml:"pipArgs"`

	Shims    []Shim        `json:"shims" yaml:"shims"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// ExitCode defines the process exit codes of the CLI.
// Each fatal failure source maps to its own code so callers (build
// systems, CI scripts) can tell which step broke.
type ExitCode int

const (
	// ExitSuccess indicates the install completed.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitInvalidInput indicates bad arguments or unreadable input paths.
	ExitInvalidInput ExitCode = 2

	// ExitEnvCreateFailed indicates the virtual environment could not be
	// removed or created.
	ExitEnvCreateFailed ExitCode = 3

	// ExitPipFailed indicates a pip invocation exited non-zero.
	ExitPipFailed ExitCode = 4

	// ExitShimFailed indicates a shim target was missing or the shim could
	// not be written.
	ExitShimFailed ExitCode = 5
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
