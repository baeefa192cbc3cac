package venv

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/hpctesttool-install/internal/model"
	"github.com/shinji-kodama/hpctesttool-install/internal/process"
	"github.com/shinji-kodama/hpctesttool-install/internal/process/processtest"
)

func TestPaths(t *testing.T) {
	assert.Equal(t, "/tmp/envX/bin", BinDir("/tmp/envX"))
	assert.Equal(t, "/tmp/envX/bin/python", Python("/tmp/envX"))
}

// TestCreate_RemovesStaleEnvironment verifies that a previous environment
// is gone before the interpreter runs, and that the venv arguments are the
// fixed ones.
func TestCreate_RemovesStaleEnvironment(t *testing.T) {
	env := filepath.Join(t.TempDir(), "venv")
	stale := filepath.Join(env, "lib", "stale.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))

	rec := &processtest.Recorder{
		Hook: func(call processtest.Call) error {
			_, err := os.Stat(env)
			assert.True(t, os.IsNotExist(err), "environment should be removed before venv runs")
			return nil
		},
	}

	p := NewProvisioner(rec, "python3", log.New(os.Stderr))
	require.NoError(t, p.Create(context.Background(), env))

	calls := rec.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"python3", "-m", "venv", "--clear", "--copies", env}, calls[0].Argv())
}

// TestCreate_MissingPathIsNotAnError checks the first-run case.
func TestCreate_MissingPathIsNotAnError(t *testing.T) {
	env := filepath.Join(t.TempDir(), "does", "not", "exist")
	rec := &processtest.Recorder{}

	p := NewProvisioner(rec, "python3", nil)
	require.NoError(t, p.Create(context.Background(), env))
	assert.Len(t, rec.Calls(), 1)
}

// TestCreate_InterpreterFailure verifies that a venv failure is reported
// with the environment exit code and keeps the process error in the chain.
func TestCreate_InterpreterFailure(t *testing.T) {
	env := filepath.Join(t.TempDir(), "venv")
	procErr := &process.ExitError{Command: []string{"python3"}, ExitCode: 1, Err: errors.New("exit status 1")}
	rec := &processtest.Recorder{Hook: func(processtest.Call) error { return procErr }}

	p := NewProvisioner(rec, "python3", nil)
	err := p.Create(context.Background(), env)
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitEnvCreateFailed, cliErr.Code)
	assert.ErrorIs(t, err, procErr)
}

// TestCreate_RealInterpreter builds a real environment when python3 with
// the venv module is available. It mirrors what the installer relies on:
// bin/python exists and is not a symlink.
func TestCreate_RealInterpreter(t *testing.T) {
	python, err := exec.LookPath("python3")
	if err != nil {
		t.Skip("python3 not available")
	}
	if exec.Command(python, "-c", "import venv, ensurepip").Run() != nil {
		t.Skip("python3 lacks venv/ensurepip")
	}

	env := filepath.Join(t.TempDir(), "venv")
	runner := process.NewExecRunner(nil, nil, nil)
	p := NewProvisioner(runner, python, nil)
	require.NoError(t, p.Create(context.Background(), env))

	info, err := os.Lstat(Python(env))
	require.NoError(t, err)
	assert.Zero(t, info.Mode()&os.ModeSymlink, "bin/python should be a copy, not a symlink")

	_, err = os.Stat(filepath.Join(env, "pyvenv.cfg"))
	assert.NoError(t, err)
}
