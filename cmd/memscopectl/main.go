// Command memscopectl is the operator-facing front end to the
// interposer library: it launches a target under the tracker, shells
// out to the companion plotter, and inspects trace files without
// requiring a Python environment just to look at the numbers.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/memscopetrack/memscopetrack/cmd/memscopectl/cmd"
)

func main() {
	err := cmd.NewRootCommand().Execute()
	if err == nil {
		return
	}

	var exitErr *cmd.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}

	fmt.Fprintln(os.Stderr, err)
	if cmd.IsUsageError(err) {
		os.Exit(2)
	}
	os.Exit(1)
}
