// Package venv creates the isolated Python environment the tool is
// installed into.
//
// Design decisions:
//   - Creation shells out to `<python> -m venv` rather than laying out the
//     directory by hand, because only the interpreter knows its own prefix,
//     stdlib location and ensurepip bundle.
//   - --copies is passed so bin/python is a real file. The redirect shims
//     resolve symlinks; with a symlinked interpreter the python shim would
//     point at the system interpreter and lose the environment.
//   - The directory is removed before creation. The environment is owned
//     exclusively by one install run and is never reused.
package venv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/shinji-kodama/hpctesttool-install/internal/model"
	"github.com/shinji-kodama/hpctesttool-install/internal/process"
)

// BinDir returns the scripts directory of the environment at env.
func BinDir(env string) string {
	return filepath.Join(env, "bin")
}

// Python returns the path of the environment's own interpreter.
func Python(env string) string {
	return filepath.Join(BinDir(env), model.PythonBinary)
}

// Provisioner creates virtual environments using a base interpreter.
type Provisioner struct {
	runner     process.Runner
	basePython string
	logger     *log.Logger
}

// NewProvisioner creates a Provisioner that runs basePython through runner.
func NewProvisioner(runner process.Runner, basePython string, logger *log.Logger) *Provisioner {
	if logger == nil {
		logger = log.Default()
	}
	return &Provisioner{runner: runner, basePython: basePython, logger: logger}
}

// Create destroys anything at path and creates a fresh environment there.
//
// The new environment has pip installed (the venv module's default) and
// does not see system site-packages. A missing path is not an error.
// Failures are returned as model.CLIError with ExitEnvCreateFailed.
func (p *Provisioner) Create(ctx context.Context, path string) error {
	p.logger.Debug("removing previous environment", "path", path)
	if err := os.RemoveAll(path); err != nil {
		return model.WrapCLIError(
			model.ExitEnvCreateFailed,
			fmt.Sprintf("failed to remove existing environment at %s", path),
			err,
		)
	}

	if err := p.runner.Run(ctx, p.basePython, CreateArgs(path)...); err != nil {
		return model.WrapCLIError(
			model.ExitEnvCreateFailed,
			fmt.Sprintf("failed to create virtual environment at %s", path),
			err,
		)
	}
	return nil
}

// CreateArgs returns the interpreter arguments that create an environment
// at path.
func CreateArgs(path string) []string {
	return []string{"-m", "venv", "--clear", "--copies", path}
}
