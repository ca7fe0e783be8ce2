package exec

import (
	"errors"
	"os/exec"
	"syscall"
)

// StorageCommandError is returned when a storage tool exits with a non-zero status.
// Error() is the tool's stderr, byte for byte.
type StorageCommandError struct {
	Command  string
	Args     []string
	ExitCode int
	Stderr   string
}

func (e *StorageCommandError) Error() string {
	return e.Stderr
}

// IsStorageCommandError reports whether err or anything it wraps is a *StorageCommandError.
func IsStorageCommandError(err error) bool {
	var sce *StorageCommandError
	return errors.As(err, &sce)
}

func ExitStatus(err error) (int, bool) {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		waitStatus, ok := exitErr.ProcessState.Sys().(syscall.WaitStatus)
		if ok {
			if waitStatus.Signaled() {
				return 128 + int(waitStatus.Signal()), true
			}
			return waitStatus.ExitStatus(), true
		}
		return exitErr.ExitCode(), true
	}
	return 0, false
}
