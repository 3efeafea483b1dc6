package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newPlotCommand() *cobra.Command {
	var outfile string
	var logScale bool
	var limit int
	var exclude []string
	var scriptDir string

	cmd := &cobra.Command{
		Use:   "plot <tracefile>",
		Short: "render a trace file with the companion timeline plotter",
		Args:  wrapUsageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := scriptDir
			if dir == "" {
				exe, err := os.Executable()
				if err != nil {
					return fmt.Errorf("memscopectl: cannot locate python/timeline.py: %w", err)
				}
				dir = filepath.Join(filepath.Dir(exe), "python")
			}

			plotArgs := []string{filepath.Join(dir, "timeline.py"), args[0]}
			if outfile != "" {
				plotArgs = append(plotArgs, "--outfile", outfile)
			}
			if logScale {
				plotArgs = append(plotArgs, "--log")
			}
			if limit > 0 {
				plotArgs = append(plotArgs, "--limit", fmt.Sprint(limit))
			}
			for _, e := range exclude {
				plotArgs = append(plotArgs, "--exclude", e)
			}

			c := exec.Command("python3", plotArgs...)
			c.Stdin = os.Stdin
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			return c.Run()
		},
	}

	cmd.Flags().StringVar(&outfile, "outfile", "", "write the rendered plot to this path (default: the trace path without .gz, plus .png)")
	cmd.Flags().BoolVar(&logScale, "log", false, "plot the y-axis on a log scale")
	cmd.Flags().IntVar(&limit, "limit", 0, "only plot the top N scopes by peak bytes")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "scope name to omit, may be repeated")
	cmd.Flags().StringVar(&scriptDir, "script-dir", "", "directory containing timeline.py (default: python/ next to this binary)")

	return cmd
}
