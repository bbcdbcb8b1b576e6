package script

import (
	"errors"
	"fmt"
)

// Errors for script execution.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutorClosed is returned when attempting to use a closed executor.
	ErrExecutorClosed = errors.New("script executor is closed")

	// ErrQueueFull is returned when the executor queue cannot take more work.
	ErrQueueFull = errors.New("script executor queue full")

	// ErrScriptTimeout is returned when a script exceeds its time limit.
	ErrScriptTimeout = errors.New("script timeout")

	// ErrCommitEnclosing is raised by history.commit when the innermost open
	// transaction belongs to an enclosing history.transaction call.
	ErrCommitEnclosing = errors.New("history.commit cannot close a history.transaction")
)

// ScriptError reports a failed script run.
type ScriptError struct {
	// Script is the chunk name, usually the file path.
	Script string
	// Err is the underlying error. Go errors raised from host functions are
	// preserved, so errors.Is works across the Lua boundary.
	Err error
}

// Error implements the error interface.
func (e *ScriptError) Error() string {
	return fmt.Sprintf("script %s: %v", e.Script, e.Err)
}

// Unwrap returns the underlying error.
func (e *ScriptError) Unwrap() error {
	return e.Err
}
