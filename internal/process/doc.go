// Package process runs the external commands the installer depends on:
// the base interpreter's venv module and the environment's pip.
//
// Commands are executed directly via os/exec, never through a shell, and
// block until the child exits. There is no retry and no timeout; the
// context passed to Run is the only way to stop a child early.
package process
