package pip

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/hpctesttool-install/internal/model"
	"github.com/shinji-kodama/hpctesttool-install/internal/process"
	"github.com/shinji-kodama/hpctesttool-install/internal/process/processtest"
)

// TestCommand verifies the exact argv, including flag placement relative
// to the install subcommand.
func TestCommand(t *testing.T) {
	i := NewInstaller(nil, "/tmp/envX", "/tmp/wheels")

	got := i.Command("--force-reinstall", "--editable", "/tmp/srcpkg")
	want := []string{
		"/tmp/envX/bin/python", "-m", "pip",
		"--no-input",
		"--no-cache-dir",
		"--disable-pip-version-check",
		"--require-virtualenv",
		"install",
		"--no-warn-script-location",
		"--no-index",
		"--use-pep517",
		"--find-links=/tmp/wheels",
		"--force-reinstall", "--editable", "/tmp/srcpkg",
	}
	assert.Equal(t, want, got)
}

// TestCommand_DoesNotAliasFlagLists guards the package-level flag slices
// against being modified through a returned argv.
func TestCommand_DoesNotAliasFlagLists(t *testing.T) {
	i := NewInstaller(nil, "/tmp/envX", "/tmp/wheels")

	first := i.Command("pip")
	first[3] = "mutated"

	second := i.Command("pip")
	assert.Equal(t, "--no-input", second[3])
}

func TestInstall_RunsCommand(t *testing.T) {
	rec := &processtest.Recorder{}
	i := NewInstaller(rec, "/tmp/envX", "/tmp/wheels")

	require.NoError(t, i.Install(context.Background(), "--upgrade", "pip"))

	calls := rec.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/tmp/envX/bin/python", calls[0].Name)
	assert.Equal(t, i.Command("--upgrade", "pip"), calls[0].Argv())
}

// TestInstall_Failure verifies a pip failure maps to ExitPipFailed and
// names the package arguments.
func TestInstall_Failure(t *testing.T) {
	procErr := &process.ExitError{
		Command:  []string{"/tmp/envX/bin/python"},
		ExitCode: 1,
		Stderr:   "ERROR: No matching distribution found for poetry.core",
		Err:      errors.New("exit status 1"),
	}
	rec := &processtest.Recorder{Hook: func(processtest.Call) error { return procErr }}
	i := NewInstaller(rec, "/tmp/envX", "/tmp/wheels")

	err := i.Install(context.Background(), "poetry.core")
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitPipFailed, cliErr.Code)
	assert.Contains(t, err.Error(), "pip install poetry.core failed")
	assert.Contains(t, err.Error(), "No matching distribution")
	assert.ErrorIs(t, err, procErr)
}
