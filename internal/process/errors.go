package process

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrLaunch matches every *LaunchError.
	ErrLaunch = errors.New("process: launch failed")
	// ErrExternalCommand matches every *ExternalCommandError.
	ErrExternalCommand = errors.New("process: command exited non-zero")
)

// LaunchError reports a command that could not be started at all
// (missing shell, permission denied, pipe allocation failure).
type LaunchError struct {
	Command string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %q: %v", e.Command, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

func (e *LaunchError) Is(target error) bool { return target == ErrLaunch }

// ExternalCommandError reports a command that ran and exited with a non-zero
// status. Stderr holds everything the command wrote to its error stream.
type ExternalCommandError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExternalCommandError) Error() string {
	msg := fmt.Sprintf("command %q exited with code %d", e.Command, e.ExitCode)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

func (e *ExternalCommandError) Is(target error) bool { return target == ErrExternalCommand }
