package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// usageError marks a failure caused by how memscopectl was invoked -
// a bad flag, a missing argument, a target program or trace file that
// cannot be opened - as opposed to a command that ran but whose target
// failed on its own terms. main exits 2 for these and 1 for anything
// else, the same split cmd/viewcore makes between bad usage and a
// command that ran but failed.
type usageError struct {
	err error
}

func usageErrorf(format string, args ...interface{}) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// IsUsageError reports whether err (or something it wraps) is a usage
// error, for main to decide between exit code 2 and exit code 1.
func IsUsageError(err error) bool {
	var u *usageError
	return errors.As(err, &u)
}

// ExitError carries a traced child process's own exit status so main
// can propagate it instead of collapsing every run failure to the same
// code.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

// wrapUsageArgs adapts a cobra.PositionalArgs validator so its errors
// (wrong argument count, unknown positional) are treated as usage
// errors rather than ordinary command failures.
func wrapUsageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}
