package shim

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"

	"github.com/shinji-kodama/hpctesttool-install/internal/model"
	"github.com/shinji-kodama/hpctesttool-install/internal/venv"
)

// Shebang is the first line of every generated shim.
const Shebang = "#!/bin/sh"

// execBits are set for owner, group and other on every shim.
const execBits os.FileMode = 0o111

// Write generates the redirect shim for the environment binary name at out.
//
// Order of operations:
//  1. Remove whatever is at out. A missing file is fine; a non-empty
//     directory is an error.
//  2. Resolve <env>/bin/<name> to an absolute path with symlinks evaluated.
//     The binary must exist.
//  3. Write the script.
//  4. Keep the owner's permission bits, drop group/other read and write,
//     and set execute for everyone.
//
// All failures are model.CLIError with ExitShimFailed.
func Write(env, name, out string) (model.Shim, error) {
	if err := os.Remove(out); err != nil && !errors.Is(err, os.ErrNotExist) {
		return model.Shim{}, shimError(fmt.Sprintf("failed to remove existing %s", out), err)
	}

	target, err := Resolve(env, name)
	if err != nil {
		return model.Shim{}, err
	}

	content, err := Render(target)
	if err != nil {
		return model.Shim{}, shimError(fmt.Sprintf("cannot render shim for %s", target), err)
	}

	// #nosec G306 — permissions are narrowed by the chmod below.
	if err := os.WriteFile(out, []byte(content), 0o644); err != nil {
		return model.Shim{}, shimError(fmt.Sprintf("failed to write %s", out), err)
	}

	info, err := os.Stat(out)
	if err != nil {
		return model.Shim{}, shimError(fmt.Sprintf("failed to stat %s", out), err)
	}
	if err := os.Chmod(out, Mode(info.Mode())); err != nil {
		return model.Shim{}, shimError(fmt.Sprintf("failed to chmod %s", out), err)
	}

	return model.Shim{Name: name, Path: out, Target: target}, nil
}

// Resolve returns the absolute, symlink-free path of <env>/bin/<name>.
// It fails if the binary does not exist.
func Resolve(env, name string) (string, error) {
	abs, err := filepath.Abs(filepath.Join(venv.BinDir(env), name))
	if err != nil {
		return "", shimError(fmt.Sprintf("cannot resolve %s", name), err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", shimError(fmt.Sprintf("%s was not installed into %s", name, env), err)
	}
	return resolved, nil
}

// Mode computes the permission bits of a freshly written shim from the
// mode the file was created with.
func Mode(current os.FileMode) os.FileMode {
	return current.Perm()&0o700 | execBits
}

// Render returns the script body that execs target with all arguments.
// The target is shell-quoted only if it needs to be.
func Render(target string) (string, error) {
	quoted, err := syntax.Quote(target, syntax.LangPOSIX)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s\nexec %s \"$@\"\n", Shebang, quoted), nil
}

// Parse validates a shim script and returns the path it execs.
// It accepts exactly the shape Render produces.
func Parse(content string) (string, error) {
	if !strings.HasPrefix(content, Shebang+"\n") {
		return "", fmt.Errorf("missing %q line", Shebang)
	}

	file, err := syntax.NewParser(syntax.Variant(syntax.LangPOSIX)).Parse(strings.NewReader(content), "shim")
	if err != nil {
		return "", fmt.Errorf("shim syntax error: %w", err)
	}
	if len(file.Stmts) != 1 {
		return "", fmt.Errorf("expected 1 statement, found %d", len(file.Stmts))
	}

	call, ok := file.Stmts[0].Cmd.(*syntax.CallExpr)
	if !ok || len(call.Args) != 3 || call.Args[0].Lit() != "exec" {
		return "", fmt.Errorf("expected `exec <target> \"$@\"`")
	}
	if !forwardsAllArgs(call.Args[2]) {
		return "", fmt.Errorf("shim does not forward \"$@\"")
	}

	target, err := expand.Literal(nil, call.Args[1])
	if err != nil {
		return "", fmt.Errorf("cannot expand shim target: %w", err)
	}
	return target, nil
}

// Verify re-reads a written shim and checks that it still execs s.Target.
func Verify(s model.Shim) error {
	content, err := os.ReadFile(s.Path)
	if err != nil {
		return shimError(fmt.Sprintf("failed to read back %s", s.Path), err)
	}
	target, err := Parse(string(content))
	if err != nil {
		return shimError(fmt.Sprintf("%s is not a valid shim", s.Path), err)
	}
	if target != s.Target {
		return model.NewCLIError(model.ExitShimFailed, fmt.Sprintf("%s execs %s, expected %s", s.Path, target, s.Target))
	}
	return nil
}

// forwardsAllArgs reports whether w is exactly "$@".
func forwardsAllArgs(w *syntax.Word) bool {
	if len(w.Parts) != 1 {
		return false
	}
	dq, ok := w.Parts[0].(*syntax.DblQuoted)
	if !ok || len(dq.Parts) != 1 {
		return false
	}
	pe, ok := dq.Parts[0].(*syntax.ParamExp)
	return ok && pe.Short && pe.Param.Value == "@"
}

func shimError(message string, err error) error {
	return model.WrapCLIError(model.ExitShimFailed, message, err)
}
