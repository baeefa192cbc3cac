package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/shinji-kodama/hpctesttool-install/internal/model"
	"github.com/shinji-kodama/hpctesttool-install/internal/pip"
	"github.com/shinji-kodama/hpctesttool-install/internal/process"
	"github.com/shinji-kodama/hpctesttool-install/internal/project"
	"github.com/shinji-kodama/hpctesttool-install/internal/shim"
	"github.com/shinji-kodama/hpctesttool-install/internal/venv"
)

// Step is one pip invocation of the install sequence.
type Step struct {
	// Name is a short description used in logs.
	Name string

	// Args are the package arguments appended after pip's fixed flags.
	Args []string
}

// Steps returns the pip invocations for installing the source tree at src,
// in the order they run.
//
// pip upgrades itself first; the newer pip must be present in the wheel
// directory or the run stops there. The build backend is installed
// explicitly because --no-index disables build isolation downloads.
// The source is force-reinstalled so a rerun always picks up the tree.
func Steps(src string) []Step {
	return []Step{
		{Name: "upgrade pip", Args: []string{"--upgrade", model.PipPackage}},
		{Name: "install build backend", Args: []string{model.BuildBackendPackage}},
		{Name: "install source (editable)", Args: []string{"--force-reinstall", "--editable", src}},
	}
}

// Installer runs the full install sequence.
type Installer struct {
	runner process.Runner
	logger *log.Logger
}

// New creates an Installer that spawns processes through runner.
func New(runner process.Runner, logger *log.Logger) *Installer {
	if logger == nil {
		logger = log.Default()
	}
	return &Installer{runner: runner, logger: logger}
}

// Install provisions the environment, installs into it and writes the
// shims. Each step blocks until done; the first failure aborts the run
// and is returned as a model.CLIError.
//
// A failed run may leave a half-built environment behind. The next run
// removes it before doing anything else.
func (in *Installer) Install(ctx context.Context, plan model.Plan) (*model.Result, error) {
	start := time.Now()

	plan, proj, err := in.preflight(plan)
	if err != nil {
		return nil, err
	}

	in.logger.Info("creating virtual environment", "path", plan.EnvPath, "python", plan.BasePython)
	provisioner := venv.NewProvisioner(in.runner, plan.BasePython, in.logger)
	if err := provisioner.Create(ctx, plan.EnvPath); err != nil {
		return nil, err
	}

	result := &model.Result{Plan: plan, Project: proj}

	pipInstaller := pip.NewInstaller(in.runner, plan.EnvPath, plan.WheelDir)
	for _, step := range Steps(plan.SourcePath) {
		in.logger.Info(step.Name, "args", strings.Join(step.Args, " "))
		if err := pipInstaller.Install(ctx, step.Args...); err != nil {
			return nil, err
		}
		result.PipArgs = append(result.PipArgs, step.Args)
	}

	for _, s := range plan.Shims() {
		name, out := s[0], s[1]
		written, err := shim.Write(plan.EnvPath, name, out)
		if err != nil {
			return nil, err
		}
		if err := shim.Verify(written); err != nil {
			return nil, err
		}
		in.logger.Info("wrote shim", "path", written.Path, "target", written.Target)
		result.Shims = append(result.Shims, written)
	}

	result.Duration = time.Since(start)
	return result, nil
}

// preflight validates the plan, makes every path absolute and inspects the
// source tree. Nothing on disk is modified.
func (in *Installer) preflight(plan model.Plan) (model.Plan, *model.Project, error) {
	if err := plan.Validate(); err != nil {
		return plan, nil, model.WrapCLIError(model.ExitInvalidInput, "invalid arguments", err)
	}

	abs, err := absolutePlan(plan)
	if err != nil {
		return plan, nil, model.WrapCLIError(model.ExitInvalidInput, "cannot resolve paths", err)
	}

	if err := requireDir(abs.WheelDir, "wheel directory"); err != nil {
		return abs, nil, err
	}
	if err := requireDir(abs.SourcePath, "source path"); err != nil {
		return abs, nil, err
	}

	// The environment is removed recursively; it must not swallow an input.
	// Symlinks are resolved so an aliased path cannot slip past the check.
	env, err := resolveExisting(abs.EnvPath)
	if err != nil {
		return abs, nil, model.WrapCLIError(model.ExitInvalidInput, fmt.Sprintf("cannot resolve environment path %s", abs.EnvPath), err)
	}
	for _, input := range []struct{ label, path string }{
		{"source path", abs.SourcePath},
		{"wheel directory", abs.WheelDir},
	} {
		resolved, err := filepath.EvalSymlinks(input.path)
		if err != nil {
			return abs, nil, model.WrapCLIError(model.ExitInvalidInput, fmt.Sprintf("cannot resolve %s %s", input.label, input.path), err)
		}
		if within(env, resolved) {
			return abs, nil, model.NewCLIError(
				model.ExitInvalidInput,
				fmt.Sprintf("environment path %s would delete the %s %s", abs.EnvPath, input.label, input.path),
			)
		}
	}

	proj, err := project.Load(abs.SourcePath)
	if err != nil {
		return abs, nil, err
	}
	if proj != nil {
		in.logger.Debug("source project", "name", proj.Name, "version", proj.Version, "backend", proj.BuildBackend)
	}
	for _, w := range project.Warnings(proj) {
		in.logger.Warn(w)
	}

	return abs, proj, nil
}

// absolutePlan returns a copy of plan with every filesystem path made
// absolute. BasePython is left alone: a bare name is looked up on PATH.
func absolutePlan(plan model.Plan) (model.Plan, error) {
	for _, p := range []*string{
		&plan.EnvPath,
		&plan.WheelDir,
		&plan.SourcePath,
		&plan.ToolShimPath,
		&plan.PythonShimPath,
	} {
		abs, err := filepath.Abs(*p)
		if err != nil {
			return plan, err
		}
		*p = abs
	}
	return plan, nil
}

func requireDir(path, label string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.WrapCLIError(model.ExitInvalidInput, fmt.Sprintf("%s %s does not exist", label, path), err)
		}
		return model.WrapCLIError(model.ExitInvalidInput, fmt.Sprintf("cannot access %s %s", label, path), err)
	}
	if !info.IsDir() {
		return model.NewCLIError(model.ExitInvalidInput, fmt.Sprintf("%s %s is not a directory", label, path))
	}
	return nil
}

// resolveExisting evaluates symlinks in the longest existing prefix of
// path and appends the remaining components unchanged. path must be
// absolute and clean.
func resolveExisting(path string) (string, error) {
	var rest []string
	for dir := path; ; dir = filepath.Dir(dir) {
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			return filepath.Join(append([]string{resolved}, rest...)...), nil
		}
		if !errors.Is(err, os.ErrNotExist) || dir == filepath.Dir(dir) {
			return "", err
		}
		rest = append([]string{filepath.Base(dir)}, rest...)
	}
}

// within reports whether path is dir itself or lies below it.
// Both arguments must be absolute and clean.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
