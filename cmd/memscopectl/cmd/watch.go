package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/memscopetrack/memscopetrack/trace"
)

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <tracefile>",
		Short: "interactively re-read a trace file and show the current scope leaderboard",
		Args:  wrapUsageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return watchLoop(args[0])
		},
	}
	return cmd
}

// watchLoop re-parses tracefile on every <Enter>, since the sampler
// keeps appending to it while the REPL is open. Typing a scope name
// before pressing <Enter> filters the leaderboard to scopes whose name
// contains that text; an empty line shows everything.
func watchLoop(tracefile string) error {
	rl, err := readline.New(fmt.Sprintf("%s> ", tracefile))
	if err != nil {
		return fmt.Errorf("memscopectl: could not start REPL: %w", err)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		records, err := trace.ReadAll(tracefile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "memscopetrack:", err)
			continue
		}
		if len(records) == 0 {
			fmt.Println("(no records yet)")
			continue
		}

		filter := strings.TrimSpace(line)
		printLeaderboard(os.Stdout, records[len(records)-1].Extents, filter)
	}
}

func printLeaderboard(w io.Writer, extents map[string]uint64, filter string) {
	type entry struct {
		scope string
		bytes uint64
	}
	var entries []entry
	for scope, bytes := range extents {
		if filter != "" && !strings.Contains(scope, filter) {
			continue
		}
		entries = append(entries, entry{scope, bytes})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].bytes != entries[j].bytes {
			return entries[i].bytes > entries[j].bytes
		}
		return entries[i].scope < entries[j].scope
	})
	if len(entries) == 0 {
		fmt.Fprintln(w, "(no matching scopes)")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%10d  %s\n", e.bytes, e.scope)
	}
}
