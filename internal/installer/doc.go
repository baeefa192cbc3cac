// Package installer orchestrates a complete install run.
//
// Orchestration steps:
//  1. Preflight: validate and absolutize paths, check the inputs exist,
//     read pyproject.toml.
//  2. Recreate the virtual environment.
//  3. pip: upgrade pip, install poetry.core, force-reinstall the source
//     tree in editable mode.
//  4. Write the hpctesttool and python shims.
//
// Everything runs sequentially on the caller's goroutine. Subprocesses go
// through a process.Runner so tests can replace them.
package installer
