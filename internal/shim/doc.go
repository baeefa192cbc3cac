// Package shim writes redirect scripts that exec a binary inside the
// virtual environment, forwarding all arguments:
//
//	#!/bin/sh
//	exec /abs/path/to/env/bin/hpctesttool "$@"
//
// The target is resolved once, at generation time, to an absolute path
// with symlinks evaluated, so the shim keeps working regardless of the
// caller's working directory. Quoting and validation use
// mvdan.cc/sh/v3/syntax; ordinary paths are written unquoted.
package shim
