// Package processtest provides a recording process.Runner for tests that
// must not spawn real interpreters.
package processtest

import (
	"context"
	"sync"
)

// Call is one recorded Run invocation.
type Call struct {
	Name string
	Args []string
}

// Argv returns the call as a single argv slice, program first.
func (c Call) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

// Recorder records every Run call. If Hook is set it is invoked for each
// call and its error is returned, which lets tests simulate side effects
// (creating files a real command would create) and failures.
type Recorder struct {
	Hook func(call Call) error

	mu    sync.Mutex
	calls []Call
}

// Run records the call and delegates to Hook.
func (r *Recorder) Run(_ context.Context, name string, args ...string) error {
	call := Call{Name: name, Args: append([]string(nil), args...)}

	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()

	if r.Hook != nil {
		return r.Hook(call)
	}
	return nil
}

// Calls returns a copy of the recorded calls in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}
