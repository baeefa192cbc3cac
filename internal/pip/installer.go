// Package pip invokes the package installer embedded in a virtual
// environment, locked down for offline use.
//
// Every invocation carries the same fixed flags: no prompts, no cache, no
// self-update check, must run inside the environment, no index queries,
// PEP 517 builds, and the wheel directory as the only package source.
// Callers only choose the package arguments.
package pip

import (
	"context"
	"fmt"
	"strings"

	"github.com/shinji-kodama/hpctesttool-install/internal/model"
	"github.com/shinji-kodama/hpctesttool-install/internal/process"
	"github.com/shinji-kodama/hpctesttool-install/internal/venv"
)

// globalFlags go between `-m pip` and the `install` subcommand.
var globalFlags = []string{
	"--no-input",                  // never prompt
	"--no-cache-dir",              // never read or write the pip cache
	"--disable-pip-version-check", // never ask the index about newer pip
	"--require-virtualenv",        // refuse to run outside the environment
}

// installFlags go after `install`, before the package arguments.
var installFlags = []string{
	"--no-warn-script-location", // bin/ is not expected to be on PATH
	"--no-index",                // never contact a package index
	"--use-pep517",              // build source trees through their backend
}

// Installer runs pip inside one environment against one wheel directory.
type Installer struct {
	runner   process.Runner
	envPath  string
	wheelDir string
}

// NewInstaller creates an Installer for the environment at envPath.
func NewInstaller(runner process.Runner, envPath, wheelDir string) *Installer {
	return &Installer{runner: runner, envPath: envPath, wheelDir: wheelDir}
}

// Command returns the full argv for installing args, program first.
func (i *Installer) Command(args ...string) []string {
	argv := make([]string, 0, 4+len(globalFlags)+len(installFlags)+len(args))
	argv = append(argv, venv.Python(i.envPath), "-m", "pip")
	argv = append(argv, globalFlags...)
	argv = append(argv, "install")
	argv = append(argv, installFlags...)
	argv = append(argv, "--find-links="+i.wheelDir)
	argv = append(argv, args...)
	return argv
}

// Install runs `pip install` with the fixed flags followed by args and
// blocks until pip exits. A non-zero exit is returned as model.CLIError
// with ExitPipFailed. There is no retry.
func (i *Installer) Install(ctx context.Context, args ...string) error {
	argv := i.Command(args...)
	if err := i.runner.Run(ctx, argv[0], argv[1:]...); err != nil {
		return model.WrapCLIError(
			model.ExitPipFailed,
			fmt.Sprintf("pip install %s failed", strings.Join(args, " ")),
			err,
		)
	}
	return nil
}
