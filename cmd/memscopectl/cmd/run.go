package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/memscopetrack/memscopetrack/internal/config"
	"github.com/memscopetrack/memscopetrack/sampler"
)

// killGracePeriod is how long the child is given to exit after the
// first SIGINT/SIGTERM before run escalates to SIGKILL.
const killGracePeriod = 5 * time.Second

func newRunCommand() *cobra.Command {
	var libPath, outfile, logfile, scriptDir string

	cmd := &cobra.Command{
		Use:   "run -- <program> [args...]",
		Short: "run a program under the allocation tracker",
		Args:  wrapUsageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib := libPath
			if lib == "" {
				var err error
				lib, err = defaultLibPath()
				if err != nil {
					return err
				}
			}
			return runUnderTracker(lib, outfile, logfile, scriptDir, args)
		},
	}

	cmd.Flags().StringVar(&libPath, "lib", "", "path to libmemscopetrack.so (default: alongside this binary)")
	cmd.Flags().StringVar(&outfile, "outfile", "", "trace output path (default: random mem-scope-track.<suffix>.gz)")
	cmd.Flags().StringVar(&logfile, "log", "", "diagnostic log destination: stdout, stderr, a path, or empty to discard")
	cmd.Flags().StringVar(&scriptDir, "script-dir", "", "directory containing timeline.py, for the printed plotter command")

	return cmd
}

// defaultLibPath looks for libmemscopetrack.so next to the memscopectl
// binary itself, the layout produced by building both cmd/ targets into
// the same output directory.
func defaultLibPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", usageErrorf("memscopectl: cannot locate own executable to find libmemscopetrack.so: %w", err)
	}
	return filepath.Join(filepath.Dir(exe), "libmemscopetrack.so"), nil
}

func runUnderTracker(libPath, outfile, logfile, scriptDir string, args []string) error {
	if _, err := os.Stat(libPath); err != nil {
		return usageErrorf("memscopectl: %w (pass --lib to point at it explicitly)", err)
	}

	// The tracefile name is resolved here, not left to the child
	// library, so that the plotter command printed below after the
	// child exits is guaranteed to name the file the child actually
	// wrote, even if the caller never passed --outfile.
	tracefile := outfile
	if tracefile == "" {
		tracefile = sampler.OutputPath(config.ForTest(nil))
	}

	childEnv := os.Environ()
	childEnv = append(childEnv, "LD_PRELOAD="+libPath)
	childEnv = append(childEnv, config.EnvOutfile+"="+tracefile)
	if logfile != "" {
		childEnv = append(childEnv, config.EnvLogfile+"="+logfile)
	}

	child := exec.Command(args[0], args[1:]...)
	child.Env = childEnv
	child.Stdin = os.Stdin
	child.Stdout = os.Stdout
	child.Stderr = os.Stderr

	if err := child.Start(); err != nil {
		return usageErrorf("memscopectl: could not start %q: %w", args[0], err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	go forwardSignalsWithGrace(ctx, sigs, child.Process.Pid)

	waitErr := child.Wait()
	cancel()

	dir := scriptDir
	if dir == "" {
		dir = filepath.Join(filepath.Dir(libPath), "python")
	}
	fmt.Println(sampler.PlotterCommand(dir, tracefile))

	return exitError(waitErr)
}

// forwardSignalsWithGrace relays the first SIGINT/SIGTERM it sees to
// pid verbatim, then starts a grace-period timer: if the child has not
// exited (ctx cancelled) by the time the timer fires, it escalates to
// SIGKILL. Further signals during the grace period are ignored rather
// than restarting the timer, since the child has already been told
// once to stop.
func forwardSignalsWithGrace(ctx context.Context, sigs <-chan os.Signal, pid int) {
	select {
	case <-ctx.Done():
		return
	case sig := <-sigs:
		s, ok := sig.(syscall.Signal)
		if !ok {
			return
		}
		_ = unix.Kill(pid, s)
	}

	timer := time.NewTimer(killGracePeriod)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
		_ = unix.Kill(pid, syscall.SIGKILL)
	}
}

// exitError translates the error returned by (*exec.Cmd).Wait into an
// ExitError carrying the child's own exit code, so main can propagate
// it instead of always reporting a generic failure. Errors that are not
// about the child's exit status (it was never started, I/O setup
// failed) are returned unchanged.
func exitError(err error) error {
	if err == nil {
		return nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return &ExitError{Code: exitErr.ExitCode()}
	}
	return err
}
